// File: internal/runner/action.go
// Brief: Actions run per project: the user command and the listing printer.

package runner

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/example/deps/internal/project"
)

// Action is run once per dispatched project. A non-zero ExitCode or a non-nil Err marks the
// project failed.
type Action interface {
	Run(ctx context.Context, p *project.Project) Outcome
}

// Gate is implemented by actions that can decline a project before it starts. A declined
// project is skipped with the returned reason.
type Gate interface {
	Admit(p *project.Project) (ok bool, reason string)
}

// Describer is implemented by actions that can say what they are about to do.
type Describer interface {
	Describe(p *project.Project) []string
}

type Outcome struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elapsed  time.Duration
	Err      error
}

// CommandAction runs the user command in each project.
type CommandAction struct {
	// Command is formatted with {name} and {abs} per project.
	Command []string
	// Here keeps the current working directory instead of entering the project.
	Here         bool
	DryRun       bool
	BufferOutput bool
	RequireFiles []string
	// Env is appended to the parent environment, e.g. DEPS_WORK_DIR.
	Env []string

	Out    io.Writer
	ErrOut io.Writer
}

func (a *CommandAction) Admit(p *project.Project) (bool, string) {
	if ok, missing := project.RequireFiles(p, a.RequireFiles); !ok {
		return false, fmt.Sprintf("%s: skipping since %q does not exist", p.Name, missing)
	}
	return true, ""
}

func (a *CommandAction) Describe(p *project.Project) []string {
	args := a.args(p)
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = strings.ReplaceAll(arg, " ", `\ `)
	}
	lines := []string{"executing: " + strings.Join(quoted, " ")}
	if dir := a.dir(p); dir != "" {
		lines = append(lines, "from:      "+dir)
	}
	return lines
}

func (a *CommandAction) Run(ctx context.Context, p *project.Project) Outcome {
	if a.DryRun {
		return Outcome{}
	}
	res := Exec(ctx, ExecRequest{
		Args:   a.args(p),
		Dir:    a.dir(p),
		Env:    a.Env,
		Buffer: a.BufferOutput,
		Stdout: a.Out,
		Stderr: a.ErrOut,
	})
	return Outcome{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Elapsed:  res.Elapsed,
		Err:      res.Err,
	}
}

// args formats the command for p. A single-string command is split later, so the substituted
// values are quoted to stay one word each.
func (a *CommandAction) args(p *project.Project) []string {
	if len(a.Command) == 1 {
		r := strings.NewReplacer("{name}", quoteWord(p.Name), "{abs}", quoteWord(p.Path))
		return []string{r.Replace(a.Command[0])}
	}
	out := make([]string, len(a.Command))
	for i, arg := range a.Command {
		out[i] = project.FormatTemplate(arg, p)
	}
	return out
}

// quoteWord quotes s for the shell-style splitting of a single-string command when it holds
// characters that would break it apart or be interpreted.
func quoteWord(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]#~%") {
		return s
	}
	if runtime.GOOS == "windows" {
		return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (a *CommandAction) dir(p *project.Project) string {
	if a.Here {
		return ""
	}
	return p.Path
}

// PrintAction writes the name of each admitted project on its own line. Skipped projects and
// projects missing a required file are left out silently.
type PrintAction struct {
	Out          io.Writer
	RequireFiles []string
}

func (a *PrintAction) Admit(p *project.Project) (bool, string) {
	ok, _ := project.RequireFiles(p, a.RequireFiles)
	return ok, ""
}

func (a *PrintAction) Run(_ context.Context, p *project.Project) Outcome {
	if _, err := fmt.Fprintln(a.Out, p.Name); err != nil {
		return Outcome{ExitCode: 1, Err: err}
	}
	return Outcome{}
}
