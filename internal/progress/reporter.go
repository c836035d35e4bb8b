package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter provides progress feedback while paragraphs are translated.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Fail(paragraph int, err error)
	Finish()
}

// NewReporter returns a progress bar when out is an interactive terminal,
// and line-by-line output in CI or when out is redirected.
func NewReporter(out *os.File) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" || !term.IsTerminal(int(out.Fd())) {
		return &CIReporter{Out: out}
	}
	return &TerminalReporter{Out: out}
}

// TerminalReporter draws a progress bar and prints a summary when done.
type TerminalReporter struct {
	Out io.Writer

	bar    *progressbar.ProgressBar
	total  int
	failed int
}

func (r *TerminalReporter) Start(total int) {
	r.total, r.failed = total, 0
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Translating"),
		progressbar.OptionSetWriter(r.Out),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(message)
	_ = r.bar.Set(current)
}

func (r *TerminalReporter) Fail(paragraph int, err error) {
	r.failed++
}

func (r *TerminalReporter) Finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	fmt.Fprintln(r.Out, summary(r.total, r.failed))
}

// CIReporter prints one line per event, suitable for logs.
type CIReporter struct {
	Out io.Writer

	total  int
	failed int
}

func (r *CIReporter) Start(total int) {
	r.total, r.failed = total, 0
	fmt.Fprintf(r.Out, "Translating %d paragraphs\n", total)
}

func (r *CIReporter) Update(current int, message string) {
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Fail(paragraph int, err error) {
	r.failed++
	fmt.Fprintf(r.Out, "paragraph %d failed: %v\n", paragraph, err)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.Out, summary(r.total, r.failed))
}

func summary(total, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("Translated %d paragraphs", total)
	}
	return fmt.Sprintf("Translated %d paragraphs, %d failed", total-failed, failed)
}
