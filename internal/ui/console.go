package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"testpass/internal/domain"
	"testpass/internal/engine"
)

// ConsoleOptions control what the console reporter prints.
type ConsoleOptions struct {
	// Verbose prints passing and skipped tests too.
	Verbose bool
	// Quiet prints only the final summary.
	Quiet bool
	// Progress shows a progress bar while the run is active. Failures are
	// printed after the bar completes.
	Progress bool
	// ProjectPath makes printed file paths relative.
	ProjectPath string
}

// ConsoleReporter prints run events as they happen.
type ConsoleReporter struct {
	out  io.Writer
	opts ConsoleOptions

	bar      *ProgressBar
	passed   int
	failed   int
	deferred []func()
}

var _ engine.Reporter = (*ConsoleReporter)(nil)

var (
	passColor   = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
	skipColor   = color.New(color.FgYellow)
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
)

// NewConsoleReporter creates a reporter writing to out.
func NewConsoleReporter(out io.Writer, opts ConsoleOptions) *ConsoleReporter {
	return &ConsoleReporter{out: out, opts: opts}
}

func (c *ConsoleReporter) rel(path string) string {
	if c.opts.ProjectPath == "" {
		return path
	}
	if rel, err := filepath.Rel(c.opts.ProjectPath, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// print runs fn now, or after the progress bar when one is shown.
func (c *ConsoleReporter) print(fn func()) {
	if c.bar != nil {
		c.deferred = append(c.deferred, fn)
		return
	}
	fn()
}

func (c *ConsoleReporter) RunStarted(files int) {
	if c.opts.Progress && !c.opts.Quiet && files > 0 {
		c.bar = NewProgressBar(files, c.out)
	}
}

func (c *ConsoleReporter) FileStarted(file *domain.File) {
	if c.opts.Quiet || file.Header == "" {
		return
	}
	header := file.Header
	c.print(func() {
		headerColor.Fprintf(c.out, "\n%s\n", header)
	})
}

func (c *ConsoleReporter) TestFinished(r *domain.TestResult) {
	switch {
	case r.Skipped:
		if c.opts.Verbose && !c.opts.Quiet {
			c.print(func() { skipColor.Fprintf(c.out, "Skip: %s\n", r.Name) })
		}
	case r.Passed:
		c.passed++
		if c.opts.Verbose && !c.opts.Quiet {
			c.print(func() { passColor.Fprintf(c.out, "Pass: %s\n", r.Name) })
		}
	default:
		c.failed++
		if !c.opts.Quiet {
			c.print(func() { c.printFailure(r) })
		}
	}
	if c.bar != nil {
		c.bar.Update(c.passed, c.failed)
	}
}

func (c *ConsoleReporter) printFailure(r *domain.TestResult) {
	failColor.Fprintf(c.out, "Fail: %s", r.Name)
	if r.Line > 0 {
		dimColor.Fprintf(c.out, " (%s:%d)", c.rel(r.FilePath), r.Line)
	}
	fmt.Fprintln(c.out)
	for _, f := range r.Failures {
		for _, line := range strings.Split(f.String(), "\n") {
			fmt.Fprintf(c.out, "    %s\n", line)
		}
	}
	if len(r.Logs) > 0 {
		dimColor.Fprintln(c.out, "    Output:")
		for _, line := range r.Logs {
			fmt.Fprintf(c.out, "      %s\n", line)
		}
	}
}

func (c *ConsoleReporter) HookFailed(e *domain.HookError) {
	if c.opts.Quiet {
		return
	}
	c.print(func() {
		failColor.Fprintf(c.out, "Error: %v", e)
		if e.File != "" {
			dimColor.Fprintf(c.out, " (%s)", c.rel(e.File))
		}
		fmt.Fprintln(c.out)
	})
}

func (c *ConsoleReporter) FileFinished(*domain.FileResult) {
	if c.bar != nil {
		c.bar.FileDone()
	}
}

func (c *ConsoleReporter) ReloadFailed(err *engine.ReloadError) {
	failColor.Fprintf(c.out, "Error: failed to load %s\n", c.rel(err.Path))
	for _, line := range strings.Split(err.Err.Error(), "\n") {
		fmt.Fprintf(c.out, "    %s\n", line)
	}
}

func (c *ConsoleReporter) RunFinished(r *domain.RunResult) {
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
	for _, fn := range c.deferred {
		fn()
	}
	c.deferred = nil

	fmt.Fprintln(c.out)
	switch r.Status {
	case domain.StatusStopped:
		skipColor.Fprintln(c.out, "Stopped")
		return
	case domain.StatusErrored:
		failColor.Fprintln(c.out, "Run aborted by an internal error")
		return
	case domain.StatusEmpty:
		skipColor.Fprintln(c.out, "No tests were run")
		return
	}

	summary := passColor
	if r.Status == domain.StatusFailed {
		summary = failColor
	}
	summary.Fprintf(c.out, "%d / %d tests passed", r.PassCount, r.TestCount)
	if r.SkipCount > 0 {
		skipColor.Fprintf(c.out, ", %d skipped", r.SkipCount)
	}
	dimColor.Fprintf(c.out, " (%s)\n", r.Duration.Round(time.Millisecond))
}
