// File: internal/config/config.go
// Brief: Internal config package implementation for 'config'.

// Package config defines the flag plumbing and runtime options of the deps command, translating
// Cobra/Viper flag values into a strongly typed struct that the graph builder and the runner
// consume.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// DefaultManifest is the per-project file declaring includes.
const DefaultManifest = "environment.devenv.yml"

// Environment variables holding list values separated by os.PathListSeparator.
const (
	EnvIgnoreProject = "DEPS_IGNORE_PROJECT"
	EnvSkipProject   = "DEPS_SKIP_PROJECT"
)

// ListFlags are merged with their environment variable instead of being overridden by it.
var ListFlags = []string{"ignore-project", "skip-project"}

// Options holds all CLI configuration.
type Options struct {
	Projects          []string
	PrettyPrint       bool
	Graph             string
	RequireFiles      []string
	Here              bool
	DryRun            bool
	Verbose           bool
	ContinueOnFailure bool
	IgnoreProjects    []string
	SkipProjects      []string
	ForceColor        bool
	Repos             bool
	Jobs              int
	JobsUnordered     bool
	DepsReversed      bool
	Manifest          string
	LogLevel          string
	// EventsListen is the address of the WebSocket run-event feed; empty disables it.
	EventsListen string

	// Command is everything after the flags; empty means list the projects.
	Command []string
}

// NewOptions returns Options with defaults applied.
func NewOptions() *Options {
	return &Options{
		Projects: []string{"."},
		Jobs:     1,
		Manifest: DefaultManifest,
		LogLevel: "info",
	}
}

// AddFlags binds configuration flags to the provided Cobra command.
func (o *Options) AddFlags(cmd *cobra.Command) {
	o.BindFlags(cmd.Flags())
}

// BindFlags attaches the deps flags to an arbitrary FlagSet.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&o.Projects, "project", "p", o.Projects, "Project to find dependencies of (repeat or use comma-separated values for multiple)")
	fs.BoolVar(&o.PrettyPrint, "pretty-print", false, "Pretty print dependencies in a tree")
	fs.StringVar(&o.Graph, "graph", "", "Print the dependency graph instead of running: dot or mermaid")
	fs.StringArrayVarP(&o.RequireFiles, "require-file", "f", nil, "Only run the command if the file exists (relative to the project directory; {name} and {abs} are replaced)")
	fs.BoolVar(&o.Here, "here", false, "Do not change the working directory")
	fs.BoolVarP(&o.DryRun, "dry-run", "n", false, "Do not execute, only print what would be executed")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "Print progress, timings and return codes")
	fs.BoolVar(&o.ContinueOnFailure, "continue-on-failure", false, "Keep running commands when one fails (the exit code is still non-zero)")
	fs.StringArrayVarP(&o.IgnoreProjects, "ignore-project", "i", nil, "Project name to leave out entirely, without recursing into it (env "+EnvIgnoreProject+")")
	fs.StringArrayVarP(&o.SkipProjects, "skip-project", "s", nil, "Project name whose command is skipped while its dependencies still run (env "+EnvSkipProject+")")
	fs.BoolVar(&o.ForceColor, "force-color", false, "Always use colors, even when the output is not a terminal")
	fs.BoolVar(&o.Repos, "repos", false, "Enumerate the containing repositories instead of the projects")
	fs.IntVarP(&o.Jobs, "jobs", "j", o.Jobs, "Number of commands to run in parallel")
	fs.BoolVar(&o.JobsUnordered, "jobs-unordered", false, "With --jobs > 1, run commands without waiting for dependencies")
	fs.BoolVar(&o.DepsReversed, "deps-reversed", false, "Run in reversed dependency order (only with --jobs=1)")
	fs.StringVar(&o.Manifest, "manifest", o.Manifest, "Manifest file name looked up in each project")
	fs.StringVar(&o.EventsListen, "events-listen", "", "Serve run events as JSON over WebSocket at ADDR/ws while commands run")
}

// MergeEnv adds the entries of the list environment variables to the values given on the
// command line. getenv defaults to os.Getenv.
func (o *Options) MergeEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	o.IgnoreProjects = union(o.IgnoreProjects, SplitList(getenv(EnvIgnoreProject)))
	o.SkipProjects = union(o.SkipProjects, SplitList(getenv(EnvSkipProject)))
}

// SplitList splits an environment value on the OS path list separator.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Validate ensures provided options are coherent.
func (o *Options) Validate() error {
	if o.Jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", o.Jobs)
	}
	if o.DepsReversed && o.Jobs > 1 {
		return fmt.Errorf("--deps-reversed can only be used with --jobs=1")
	}
	o.Graph = strings.ToLower(strings.TrimSpace(o.Graph))
	switch o.Graph {
	case "", "dot", "mermaid":
	default:
		return fmt.Errorf("invalid --graph value %q (allowed: dot, mermaid)", o.Graph)
	}
	if o.PrettyPrint && o.Graph != "" {
		return fmt.Errorf("cannot combine --pretty-print with --graph")
	}
	o.Manifest = strings.TrimSpace(o.Manifest)
	if o.Manifest == "" {
		o.Manifest = DefaultManifest
	}
	var projects []string
	for _, p := range o.Projects {
		if p = strings.TrimSpace(p); p != "" {
			projects = append(projects, p)
		}
	}
	if len(projects) == 0 {
		projects = []string{"."}
	}
	o.Projects = projects
	return nil
}

// Parallel reports whether commands run concurrently.
func (o *Options) Parallel() bool {
	return o.Jobs > 1
}
