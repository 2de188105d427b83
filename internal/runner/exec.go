// File: internal/runner/exec.go
// Brief: Process spawning for a single project.

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"
)

// ExecRequest describes one process to spawn.
type ExecRequest struct {
	Args []string
	// Dir is the working directory, empty for the current one. A leading ~ is expanded.
	Dir string
	// Env is appended to the parent environment.
	Env []string
	// Buffer captures stdout and stderr instead of writing them to Stdout and Stderr.
	Buffer bool
	Stdout io.Writer
	Stderr io.Writer
}

type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elapsed  time.Duration
	Err      error
}

// Exec runs req to completion. ctx is not used to kill the process: once started, a command
// always runs to its end.
func Exec(_ context.Context, req ExecRequest) ExecResult {
	var stdout, stderr bytes.Buffer
	outW, errW := req.Stdout, req.Stderr
	if req.Buffer || outW == nil {
		outW = &stdout
	}
	if req.Buffer || errW == nil {
		errW = &stderr
	}
	finish := func(res ExecResult) ExecResult {
		res.Stdout, res.Stderr = stdout.Bytes(), stderr.Bytes()
		return res
	}

	dir := req.Dir
	if dir != "" {
		if expanded, err := homedir.Expand(dir); err == nil {
			dir = expanded
		}
		if _, err := os.Stat(dir); err != nil {
			msg := fmt.Sprintf("Error: %s does not exist.\n", dir)
			_, _ = io.WriteString(errW, msg)
			return finish(ExecResult{ExitCode: 1, Err: fmt.Errorf("working directory %s: %w", dir, err)})
		}
	}

	name, args, err := commandLine(req.Args, req.Env)
	if err != nil {
		_, _ = fmt.Fprintf(errW, "Error: %v\n", err)
		return finish(ExecResult{ExitCode: 1, Err: err})
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), req.Env...)
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := time.Now()
	err = cmd.Run()
	res := ExecResult{Elapsed: time.Since(start)}
	if err == nil {
		return finish(res)
	}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == -1 {
			// Killed by a signal.
			res.ExitCode = 1
			res.Err = err
		}
	case errors.Is(err, exec.ErrNotFound):
		res.ExitCode = 127
		res.Err = err
		_, _ = fmt.Fprintf(errW, "Error: %v\n", err)
	default:
		res.ExitCode = 1
		res.Err = err
		_, _ = fmt.Fprintf(errW, "Error: %v\n", err)
	}
	return finish(res)
}

// commandLine turns the argument vector into a program and its arguments. A single argument
// is split like a shell would, expanding variables from env before the process environment;
// if it uses shell operators it is handed to the platform shell.
func commandLine(argv, env []string) (string, []string, error) {
	if len(argv) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	if len(argv) > 1 {
		return argv[0], argv[1:], nil
	}
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	parser.Getenv = lookupEnv(env)
	words, err := parser.Parse(argv[0])
	if err != nil {
		return "", nil, fmt.Errorf("parse command %q: %w", argv[0], err)
	}
	if parser.Position >= 0 {
		return shellCommand(argv[0])
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return words[0], words[1:], nil
}

// lookupEnv resolves a variable from env, last assignment winning, and falls back to os.Getenv.
func lookupEnv(env []string) func(string) string {
	return func(key string) string {
		prefix := key + "="
		for i := len(env) - 1; i >= 0; i-- {
			if strings.HasPrefix(env[i], prefix) {
				return env[i][len(prefix):]
			}
		}
		return os.Getenv(key)
	}
}

func shellCommand(line string) (string, []string, error) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", line}, nil
	}
	return "sh", []string{"-c", line}, nil
}
