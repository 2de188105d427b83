// File: internal/runner/console.go
// Brief: Console presentation of run events.

package runner

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/example/deps/internal/project"
	"github.com/example/deps/internal/ui"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// MsgPrefix starts every diagnostic line written to the error stream.
const MsgPrefix = "deps: "

type ConsoleOptions struct {
	// Verbose prints progress headers, timings and return codes.
	Verbose bool
	// DryRun prints what each project would execute even when not verbose.
	DryRun bool
	// GitHub groups each project in a collapsible GitHub Actions log section.
	GitHub bool
	// Summary repeats every failure once the run completes.
	Summary bool
	// Width caps separators and headers; zero means the width of the output terminal.
	Width int
}

// Console renders run events. Diagnostics go to errOut, everything else to out. It is safe for
// concurrent use.
type Console struct {
	out    io.Writer
	errOut io.Writer
	opts   ConsoleOptions

	mu        sync.Mutex
	groupOpen bool
	failures  []string
}

var (
	separatorColor = color.New(color.FgHiBlack, color.Bold)
	headerColor    = color.New(color.FgBlue, color.Bold)
	skippedColor   = color.New(color.FgMagenta)
	ignoredColor   = color.New(color.FgYellow)
	reasonColor    = color.New(color.FgCyan)
	finishedColor  = color.New(color.FgWhite)
	errorColor     = color.New(color.FgRed, color.Bold)
)

func NewConsole(out, errOut io.Writer, opts ConsoleOptions) *Console {
	if opts.Width <= 0 {
		opts.Width = ui.LineWidth(out)
	}
	return &Console{out: out, errOut: errOut, opts: opts}
}

func (c *Console) ObserveEvent(ev Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case NodeStarted:
		c.nodeStarted(ev)
	case NodeSkipped:
		c.nodeSkipped(ev)
	case NodeFinished:
		c.nodeFinished(ev)
	case RunCompleted:
		c.runCompleted(ev)
	}
}

// ReportIgnored lists projects left out by --ignore-project.
func (c *Console) ReportIgnored(projects []*project.Project) {
	if c == nil || !(c.opts.Verbose || c.opts.DryRun) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range projects {
		c.separator()
		headerColor.Fprint(c.out, p.Name)
		ignoredColor.Fprintln(c.out, " ignored")
	}
}

func (c *Console) nodeStarted(ev Event) {
	if c.opts.Verbose {
		c.separator()
		header := fmt.Sprintf("%s (%d/%d)", ev.Project.Name, ev.Progress, ev.Total)
		if c.opts.GitHub {
			c.endGroup()
			fmt.Fprintln(c.out, "::group::"+header)
			c.groupOpen = true
		} else {
			headerColor.Fprintln(c.out, runewidth.Truncate(header, c.opts.Width, "…"))
		}
	}
	if c.opts.Verbose || c.opts.DryRun {
		for _, line := range ev.Details {
			c.diag(line)
		}
	}
}

func (c *Console) nodeSkipped(ev Event) {
	if ev.Reason == "" || !(c.opts.Verbose || c.opts.DryRun) {
		return
	}
	if ev.Reason != ReasonSkipProject {
		reasonColor.Fprintln(c.out, ev.Reason)
		return
	}
	c.separator()
	if c.opts.GitHub {
		c.endGroup()
		fmt.Fprint(c.out, "::group::"+ev.Project.Name)
		c.groupOpen = true
	} else {
		headerColor.Fprint(c.out, ev.Project.Name)
	}
	skippedColor.Fprintln(c.out, " skipped")
}

func (c *Console) nodeFinished(ev Event) {
	if c.opts.Verbose {
		finishedColor.Fprintf(c.out, "Finished: %s in %.2fs\n", ev.Project.Name, ev.Elapsed.Seconds())
	}
	if len(ev.Stdout) > 0 {
		fmt.Fprintln(c.out, "=== STDOUT ===")
		fmt.Fprintln(c.out, trimNewline(ev.Stdout))
	}
	if len(ev.Stderr) > 0 {
		errorColor.Fprintln(c.out, "=== STDERR ===")
		errorColor.Fprintln(c.out, trimNewline(ev.Stderr))
	}
	if c.opts.Verbose {
		if ev.Parallel {
			c.diag(fmt.Sprintf("return code for project %s: %d", ev.Project.Name, ev.ExitCode))
		} else {
			c.diag(fmt.Sprintf("return code: %d", ev.ExitCode))
		}
	}
	if ev.Status == StatusFailed {
		msg := (&CommandExecutionFailure{Project: ev.Project}).Error()
		c.failures = append(c.failures, msg)
		c.errorLine(msg)
	}
}

func (c *Console) runCompleted(ev Event) {
	if c.opts.Summary && len(c.failures) > 0 {
		c.errorLine(c.separatorText())
		c.errorLine("A list of all errors follow:")
		for _, msg := range c.failures {
			c.errorLine(msg)
		}
	}
	if c.opts.Verbose {
		fmt.Fprintf(c.out, "Total time: %.2fs\n", ev.Elapsed.Seconds())
	}
	c.endGroup()
}

func (c *Console) separatorText() string {
	if c.opts.GitHub {
		return ""
	}
	return "\n" + strings.Repeat("=", c.opts.Width)
}

func (c *Console) separator() {
	if c.opts.GitHub {
		return
	}
	separatorColor.Fprintln(c.out, c.separatorText())
}

func (c *Console) endGroup() {
	if c.groupOpen {
		fmt.Fprintln(c.out, "::endgroup::")
		c.groupOpen = false
	}
}

func (c *Console) diag(msg string) {
	fmt.Fprintln(c.errOut, MsgPrefix+msg)
}

func (c *Console) errorLine(msg string) {
	errorColor.Fprint(c.errOut, MsgPrefix+"error: ")
	errorColor.Fprintln(c.errOut, msg)
}

func trimNewline(b []byte) string {
	return string(bytes.TrimRight(b, "\r\n"))
}
