// Package runlog writes the human-readable, append-only pipeline log.
package runlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimestampFormat prefixes every log line.
const TimestampFormat = "2006-01-02 15:04:05"

// RunLog appends timestamped lines to a writer and mirrors them to slog.
// Each call results in a single Write, so runs sharing a file interleave
// only at line boundaries.
type RunLog struct {
	w      io.Writer
	closer io.Closer
	logger *slog.Logger
	now    func() time.Time
	path   string
	mu     sync.Mutex
}

// Open opens path for appending, creating it and its directory if needed.
func Open(path string) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	l := New(f)
	l.closer = f
	l.path = path
	return l, nil
}

// New writes to w. The caller keeps ownership of w.
func New(w io.Writer) *RunLog {
	return &RunLog{w: w, logger: slog.Default(), now: time.Now}
}

// WithClock replaces the time source, for tests.
func (l *RunLog) WithClock(now func() time.Time) *RunLog {
	l.now = now
	return l
}

// WithLogger replaces the slog mirror.
func (l *RunLog) WithLogger(logger *slog.Logger) *RunLog {
	l.logger = logger
	return l
}

// Path returns the file backing the log, if any.
func (l *RunLog) Path() string {
	return l.path
}

// Info records a pipeline event.
func (l *RunLog) Info(msg string, args ...any) {
	l.write(slog.LevelInfo, "", msg, args)
}

// Warn records a non-fatal anomaly.
func (l *RunLog) Warn(msg string, args ...any) {
	l.write(slog.LevelWarn, "WARNING: ", msg, args)
}

// Error records a failure.
func (l *RunLog) Error(msg string, args ...any) {
	l.write(slog.LevelError, "ERROR: ", msg, args)
}

// Block records multi-line text such as the final report, one timestamped
// line per input line. Blank lines are kept so the layout survives.
func (l *RunLog) Block(text string) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	l.emit(lines)
}

// Close flushes and closes the underlying file. Closing a log created with
// New is a no-op.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.w = io.Discard
	return err
}

func (l *RunLog) write(level slog.Level, prefix, msg string, args []any) {
	if l.logger != nil {
		l.logger.Log(context.Background(), level, msg, args...)
	}

	line := prefix + msg + formatArgs(args)
	l.emit(strings.Split(line, "\n"))
}

func (l *RunLog) emit(lines []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().Format(TimestampFormat)
	var buf bytes.Buffer
	for _, line := range lines {
		fmt.Fprintf(&buf, "[%s] %s\n", ts, strings.TrimRight(line, "\r"))
	}
	// a failed log write must not abort the run
	_, _ = l.w.Write(buf.Bytes())
}

// formatArgs renders slog-style key/value pairs as " k=v k2=v2".
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fmt.Fprintf(&b, " %v", args[i])
			break
		}
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	return b.String()
}
