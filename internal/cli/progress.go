package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// StageProgress draws a progress bar that advances once per pipeline stage.
type StageProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewStageProgress creates a bar for the given number of stages.
func NewStageProgress(writer io.Writer, stages int) *StageProgress {
	if writer == nil {
		writer = os.Stderr
	}
	p := &StageProgress{writer: writer}
	p.bar = progressbar.NewOptions(stages,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Mining baskets...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// StageStarted updates the bar description.
func (p *StageProgress) StageStarted(name string) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s...[reset]", name))
}

// StageFinished advances the bar. A failed stage stops it where it is.
func (p *StageProgress) StageFinished(name string, _ time.Duration, err error) {
	if err != nil {
		if _, werr := fmt.Fprintln(p.writer); werr != nil {
			slog.Warn("Failed to write newline after progress bar", "error", werr)
		}
		return
	}
	if addErr := p.bar.Add(1); addErr != nil {
		slog.Warn("Failed to update progress bar", "stage", name, "error", addErr)
	}
}
