package view

import (
	"fmt"
	"io"
	"sync"

	"github.com/bitrise-io/go-compressor/workflow"
	"github.com/charmbracelet/bubbles/progress"
)

const progressWidth = 40

// Terminal renders the workflow on a text terminal.
type Terminal struct {
	out io.Writer
	bar progress.Model

	mu           sync.Mutex
	inputEnabled bool
	progressLine bool
}

// NewTerminal ...
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:          out,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
		inputEnabled: true,
	}
}

// InputEnabled reports whether a new file may be selected.
func (t *Terminal) InputEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputEnabled
}

// SetInputEnabled ...
func (t *Terminal) SetInputEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputEnabled = enabled
}

// ShowFileInfo ...
func (t *Terminal) ShowFileInfo(name string, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.endProgressLineLocked()
	t.printlnLocked(HeaderStyle.Render(fmt.Sprintf("File Name: %s", name)))
	t.printlnLocked(InfoStyle.Render(fmt.Sprintf("Size: %s", FormatBytes(size))))
}

// ShowProgress redraws the progress line in place.
func (t *Terminal) ShowProgress(percent int, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = fmt.Fprintf(t.out, "\r%s %s", t.bar.ViewAs(float64(percent)/100), DimStyle.Render(status))
	t.progressLine = true
}

// HideProgress ...
func (t *Terminal) HideProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.endProgressLineLocked()
}

// ShowResult ...
func (t *Terminal) ShowResult(result workflow.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.endProgressLineLocked()
	for _, line := range ResultLines(result) {
		t.printlnLocked(line)
	}
}

// Notify ...
func (t *Terminal) Notify(notice workflow.Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.endProgressLineLocked()
	t.printlnLocked(ErrorStyle.Render("❌ " + notice.Message))
	if notice.Err != nil {
		t.printlnLocked(DimStyle.Render(notice.Err.Error()))
	}
}

// Clear ends any open progress line; printed output stays in the scrollback.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.endProgressLineLocked()
}

// ResultLines renders the result panel.
func ResultLines(result workflow.Result) []string {
	return []string{
		SuccessStyle.Render("✅ Compression complete!"),
		fmt.Sprintf("Original Size:   %s", FormatBytes(result.OriginalSize)),
		fmt.Sprintf("Compressed Size: %s", FormatBytes(result.CompressedSize)),
		fmt.Sprintf("Reduction:       %s", FormatReduction(result.ReductionPercentage)),
		fmt.Sprintf("Download:        %s", result.DownloadURL),
	}
}

func (t *Terminal) endProgressLineLocked() {
	if t.progressLine {
		_, _ = fmt.Fprintln(t.out)
		t.progressLine = false
	}
}

func (t *Terminal) printlnLocked(line string) {
	_, _ = fmt.Fprintln(t.out, line)
}
