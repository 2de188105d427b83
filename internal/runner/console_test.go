package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/deps/internal/project"
	"github.com/fatih/color"
)

func plainColors(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = prev
	})
}

func runWithConsole(t *testing.T, opts ConsoleOptions, runOpts Options) (string, string) {
	t.Helper()
	plainColors(t)
	var out, errOut bytes.Buffer
	opts.Width = 20
	c := NewConsole(&out, &errOut, opts)
	runOpts.Observers = append(runOpts.Observers, c)
	if _, err := Run(context.Background(), runOpts); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String(), errOut.String()
}

func TestConsole_QuietOnSuccess(t *testing.T) {
	out, errOut := runWithConsole(t, ConsoleOptions{}, Options{Order: diamondOrder(t), Action: newRecorder()})
	if out != "" || errOut != "" {
		t.Fatalf("expected no output, got stdout=%q stderr=%q", out, errOut)
	}
}

func TestConsole_VerboseProgress(t *testing.T) {
	order := diamondOrder(t)
	order[2].Skip = true // C
	out, errOut := runWithConsole(t, ConsoleOptions{Verbose: true}, Options{
		Order:  order,
		Action: &CommandAction{Command: []string{"true"}, DryRun: true},
	})
	for _, want := range []string{
		strings.Repeat("=", 20),
		"D (1/4)",
		"Finished: D in ",
		"C skipped",
		"A (4/4)",
		"Total time: ",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("stdout missing %q:\n%s", want, out)
		}
	}
	for _, want := range []string{"deps: executing: true", "deps: from:      /ws/D", "deps: return code: 0"} {
		if !strings.Contains(errOut, want) {
			t.Fatalf("stderr missing %q:\n%s", want, errOut)
		}
	}
}

func TestConsole_DryRunShowsCommands(t *testing.T) {
	_, errOut := runWithConsole(t, ConsoleOptions{DryRun: true}, Options{
		Order:  diamondOrder(t),
		Action: &CommandAction{Command: []string{"make", "{name}"}, DryRun: true},
	})
	if !strings.Contains(errOut, "deps: executing: make B") {
		t.Fatalf("stderr:\n%s", errOut)
	}
}

func TestConsole_FailuresAndSummary(t *testing.T) {
	rec := newRecorder()
	rec.exitCodes["B"] = 1
	rec.exitCodes["C"] = 4
	_, errOut := runWithConsole(t, ConsoleOptions{Summary: true}, Options{
		Order:             diamondOrder(t),
		ContinueOnFailure: true,
		Action:            rec,
	})
	if strings.Count(errOut, "deps: error: Command failed (project: B)") != 2 {
		t.Fatalf("expected the failure inline and in the summary:\n%s", errOut)
	}
	if !strings.Contains(errOut, "deps: error: A list of all errors follow:") {
		t.Fatalf("missing summary header:\n%s", errOut)
	}
	if strings.Index(errOut, "(project: B)") > strings.Index(errOut, "(project: C)") {
		t.Fatalf("failures out of order:\n%s", errOut)
	}
}

func TestConsole_BufferedOutput(t *testing.T) {
	plainColors(t)
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, ConsoleOptions{Width: 20})
	p := &project.Project{Name: "lib", Path: "/ws/lib"}
	c.ObserveEvent(Event{Type: NodeFinished, Project: p, Parallel: true, Status: StatusFailed, ExitCode: 2,
		Stdout: []byte("built\n"), Stderr: []byte("warning\n"), Elapsed: time.Second})
	want := "=== STDOUT ===\nbuilt\n=== STDERR ===\nwarning\n"
	if out.String() != want {
		t.Fatalf("stdout=%q want %q", out.String(), want)
	}
	if errOut.String() != "deps: error: Command failed (project: lib)\n" {
		t.Fatalf("stderr=%q", errOut.String())
	}
	if got := c.Failures(); len(got) != 1 {
		t.Fatalf("failures=%v", got)
	}
}

func TestConsole_GitHubGroups(t *testing.T) {
	out, _ := runWithConsole(t, ConsoleOptions{Verbose: true, GitHub: true}, Options{
		Order:  diamondOrder(t),
		Action: newRecorder(),
	})
	if strings.Contains(out, "====") {
		t.Fatalf("separators must not be printed on GitHub:\n%s", out)
	}
	if strings.Count(out, "::group::") != 4 || strings.Count(out, "::endgroup::") != 4 {
		t.Fatalf("expected one group per project:\n%s", out)
	}
	if !strings.HasSuffix(out, "::endgroup::\n") {
		t.Fatalf("last group must be closed:\n%s", out)
	}
}

func TestConsole_ReportIgnored(t *testing.T) {
	plainColors(t)
	var out bytes.Buffer
	c := NewConsole(&out, &out, ConsoleOptions{Verbose: true, Width: 10})
	c.ReportIgnored([]*project.Project{{Name: "legacy"}})
	if !strings.Contains(out.String(), "legacy ignored\n") {
		t.Fatalf("out=%q", out.String())
	}
}

// Failures returns the failure messages rendered so far.
func (c *Console) Failures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.failures...)
}
