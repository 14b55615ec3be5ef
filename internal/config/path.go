// Package config provides configuration loading and validation for the pipeline.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// ResolvePath expands name and, when it is relative, places it under dir.
// An empty name stays empty.
func ResolvePath(dir, name string) string {
	if name == "" {
		return ""
	}
	name = ExpandPath(name)
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(ExpandPath(dir), name)
}
