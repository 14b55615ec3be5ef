package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Artifact file names inside the output directory.
const (
	RulesFile    = "rules.csv"
	ItemsetsFile = "frequent_itemsets.csv"
	TopRulesFile = "top_rules.csv"
	SummaryFile  = "pipeline_summary.json"
)

// Artifacts is everything a successful run publishes.
type Artifacts struct {
	Report   *model.RunReport
	Rules    []model.Rule
	Itemsets []model.Itemset
	TopRules []model.Rule
}

// Writer publishes artifacts into a directory. Each file is written to a
// temporary sibling and renamed into place, so readers never see a partial
// file.
type Writer struct {
	dir string
}

// NewWriter creates a writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the location of an artifact.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteSuccess publishes the rules, itemsets and top rules, then the summary.
// The summary goes last so its presence with status=success implies the
// other files are current. If a rename fails partway, files already renamed
// are rolled back to their previous contents and nothing is reported written.
func (w *Writer) WriteSuccess(a Artifacts) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	steps := []struct {
		write func(io.Writer) error
		name  string
	}{
		{name: RulesFile, write: func(out io.Writer) error { return WriteRulesCSV(out, a.Rules) }},
		{name: ItemsetsFile, write: func(out io.Writer) error { return WriteItemsetsCSV(out, a.Itemsets) }},
		{name: TopRulesFile, write: func(out io.Writer) error { return WriteRulesCSV(out, a.TopRules) }},
		{name: SummaryFile, write: func(out io.Writer) error { return writeSummary(out, a.Report) }},
	}

	// stage everything first so a failure publishes nothing
	staged := make([]string, 0, len(steps))
	defer func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}()
	for _, s := range steps {
		tmp, err := stage(w.Path(s.name), s.write)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", s.name, err)
		}
		staged = append(staged, tmp)
	}

	// copies of the current files, so a failed rename can be undone
	backups := make([]string, len(steps))
	defer func() {
		for _, b := range backups {
			if b != "" {
				_ = os.Remove(b)
			}
		}
	}()
	for i, s := range steps {
		b, err := backup(w.Path(s.name))
		if err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", s.name, err)
		}
		backups[i] = b
	}

	written := make([]string, 0, len(steps))
	for i, s := range steps {
		path := w.Path(s.name)
		if err := os.Rename(staged[i], path); err != nil {
			pubErr := fmt.Errorf("failed to publish %s: %w", s.name, err)
			if rbErr := restore(written, backups[:len(written)]); rbErr != nil {
				return nil, errors.Join(pubErr, rbErr)
			}
			return nil, pubErr
		}
		written = append(written, path)
	}
	staged = nil
	return written, nil
}

// restore puts back the previous version of each published path, or removes
// the path when it had none. Restored backups are cleared from backups.
func restore(published, backups []string) error {
	var errs []error
	for i, path := range published {
		if backups[i] == "" {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err))
			}
			continue
		}
		if err := os.Rename(backups[i], path); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", filepath.Base(path), err))
			continue
		}
		backups[i] = ""
	}
	return errors.Join(errs...)
}

// backup copies the regular file at path to a temp sibling. It returns ""
// when there is no regular file to keep.
func backup(path string) (string, error) {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", nil
	}
	return stage(path, func(out io.Writer) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(out, f)
		return err
	})
}

// WriteFailure publishes only the summary. Rule and itemset files from a
// previous run are left untouched.
func (w *Writer) WriteFailure(report *model.RunReport) (string, error) {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := w.Path(SummaryFile)
	if err := writeAtomic(path, func(out io.Writer) error { return writeSummary(out, report) }); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", SummaryFile, err)
	}
	return path, nil
}

// ReadSummary loads a summary written by the writer.
func ReadSummary(path string) (*model.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r model.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &r, nil
}

// MarshalSummary renders the report as indented JSON.
func MarshalSummary(report *model.RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return append(data, '\n'), nil
}

func writeSummary(out io.Writer, report *model.RunReport) error {
	data, err := MarshalSummary(report)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// writeAtomic writes path through a staged temp file.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := stage(path, write)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// stage writes a temp file next to path and returns its name. The temp file
// is removed on every failure path.
func stage(path string, write func(io.Writer) error) (name string, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	if err = os.Chmod(tmp.Name(), 0640); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}
