// File: cmd/deps/run.go
// Brief: CLI command wiring and implementation for the root command.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/example/deps/internal/config"
	"github.com/example/deps/internal/eventcast"
	"github.com/example/deps/internal/logging"
	"github.com/example/deps/internal/manifest"
	"github.com/example/deps/internal/project"
	"github.com/example/deps/internal/runner"
	"github.com/example/deps/internal/ui"
	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

func runDeps(cmd *cobra.Command, opts *config.Options) error {
	opts.MergeEnv(nil)
	if err := opts.Validate(); err != nil {
		return err
	}
	restoreColor := ui.ConfigureColor(opts.ForceColor)
	defer restoreColor()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logger, err := logging.New(opts.LogLevel, errOut)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	rootDirs, problems := project.ResolveRoots(opts.Projects, opts.Manifest)
	builder := project.NewBuilder(manifest.NewLoader(opts.Manifest), project.NewFilter(opts.IgnoreProjects, opts.SkipProjects), logger)
	roots, buildErrs := builder.Build(rootDirs)
	problems = append(problems, buildErrs...)
	logger.V(1).Info("dependency graph built", "roots", len(roots), "projects", builder.Len(), "problems", len(problems))
	for _, p := range problems {
		reportError(errOut, p.Error())
	}
	if len(problems) > 0 && !opts.ContinueOnFailure {
		return &exitError{code: 1}
	}

	if opts.Repos {
		if roots, err = project.ObtainRepos(roots); err != nil {
			return err
		}
	}

	switch {
	case opts.PrettyPrint:
		if err := project.PrintTree(out, roots); err != nil {
			return err
		}
		return finish(0, problems)
	case opts.Graph == "dot":
		if err := project.PrintGraphDOT(out, roots); err != nil {
			return err
		}
		return finish(0, problems)
	case opts.Graph == "mermaid":
		if err := project.PrintGraphMermaid(out, roots); err != nil {
			return err
		}
		return finish(0, problems)
	}

	order := project.Linearize(roots, opts.DepsReversed)

	if len(opts.Command) == 0 {
		res, err := runner.Run(ctx, runner.Options{
			Order:  order,
			Mode:   runner.Sequential,
			Action: &runner.PrintAction{Out: out, RequireFiles: opts.RequireFiles},
			Logger: logger,
		})
		if err != nil {
			return err
		}
		return finish(res.ExitCode(), problems)
	}

	workDir, err := runner.NewWorkDir(os.Getenv("RUNNER_TEMP"))
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer workDir.Cleanup()

	console := runner.NewConsole(out, errOut, runner.ConsoleOptions{
		Verbose: opts.Verbose,
		DryRun:  opts.DryRun,
		GitHub:  os.Getenv("GITHUB_WORKSPACE") != "",
		Summary: opts.ContinueOnFailure || opts.Parallel(),
	})
	console.ReportIgnored(project.IgnoredProjects(roots))
	observers := []runner.Observer{console}
	if opts.EventsListen != "" {
		feed, stop, err := startEventFeed(ctx, opts.EventsListen, logger)
		if err != nil {
			return err
		}
		defer stop()
		observers = append(observers, feed)
	}

	res, err := runner.Run(ctx, runner.Options{
		Order:             order,
		Mode:              executionMode(opts),
		Jobs:              opts.Jobs,
		ContinueOnFailure: opts.ContinueOnFailure,
		Action: &runner.CommandAction{
			Command:      opts.Command,
			Here:         opts.Here,
			DryRun:       opts.DryRun,
			BufferOutput: opts.Parallel(),
			RequireFiles: opts.RequireFiles,
			Env:          workDir.Env(),
			Out:          out,
			ErrOut:       errOut,
		},
		Observers: observers,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	code := res.ExitCode()
	if code == 0 && ctx.Err() != nil && res.Count(runner.StatusNotRun) > 0 {
		return ctx.Err()
	}
	return finish(code, problems)
}

// startEventFeed binds addr before the run starts. The feed outlives a cancelled ctx so
// subscribers still receive RUN_COMPLETED; stop shuts it down.
func startEventFeed(ctx context.Context, addr string, logger logr.Logger) (*eventcast.Server, func(), error) {
	feed := eventcast.New(addr, logger.WithName("events"))
	ln, err := feed.Listen()
	if err != nil {
		return nil, nil, err
	}
	serveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := feed.Serve(serveCtx, ln); err != nil {
			logger.Error(err, "event feed stopped")
		}
	}()
	return feed, func() {
		cancel()
		<-done
	}, nil
}

func executionMode(opts *config.Options) runner.Mode {
	switch {
	case !opts.Parallel():
		return runner.Sequential
	case opts.JobsUnordered:
		return runner.UnorderedParallel
	default:
		return runner.OrderedParallel
	}
}

// finish turns the run exit code into the command result. Problems reported before the run
// still make the invocation fail.
func finish(code int, problems []error) error {
	if code == 0 && len(problems) > 0 {
		code = 1
	}
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

func reportError(w io.Writer, msg string) {
	c := color.New(color.FgRed, color.Bold)
	c.Fprint(w, runner.MsgPrefix+"error: ")
	c.Fprintln(w, msg)
}
