// main.go bootstraps deps: it builds the root Cobra command and executes it with a
// signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/example/deps/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	handleError(os.Stderr, err)
	os.Exit(exitCode(err))
}

const longHelp = `List the development dependencies of a project, or execute a command for each of them.

Dependencies are declared in the "includes" list of the manifest file of every project
(environment.devenv.yml by default). The manifest is rendered as a template first, so
{{ root }} expands to the directory of the project. Only {{ ... }} expressions are
understood; jinja blocks such as {% if %} make the manifest malformed.

To list the dependencies of the project in the current directory, one per line:

    deps

Pass -p to start from the first ancestor of a directory holding a manifest:

    deps -p mylib10 -p myotherlib20

To execute a command for each dependency, in dependency order:

    deps [flags] <command>

Use "--" to stop deps from parsing the flags of the command:

    deps [flags] -- <command> --with --flags

The command may contain these variables:
    {name}  the project name (e.g. eden)
    {abs}   the absolute project path (e.g. /ws/eden)

With --require-file, projects lacking the file (relative to the project directory) are
skipped:

    deps --require-file Makefile -- make clean

Repeatable flags can also be given through the environment, entries separated by the OS
path list separator (":" on unix, ";" on windows):

    export DEPS_IGNORE_PROJECT=old_project:fuzzy_project

Every command sees DEPS_WORK_DIR, a staging directory shared by the whole invocation and
removed when deps exits.`

func newRootCommand() *cobra.Command {
	opts := config.NewOptions()
	cmd := &cobra.Command{
		Use:           "deps [flags] [--] [command...]",
		Short:         "Run a command over local project checkouts in dependency order",
		Long:          longHelp,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionString(),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = args
			return runDeps(cmd, opts)
		},
	}
	cmd.SetVersionTemplate("deps {{.Version}}\n")
	cmd.Flags().SetInterspersed(false)
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level for diagnostics (debug, info, warn, error)")
	opts.AddFlags(cmd)
	cmd.Example = `  # Build every dependency of the current project, dependencies first
  deps -- make build

  # Four at a time, continuing past failures
  deps -j 4 --continue-on-failure -- git pull

  # Show the tree, ignoring a legacy project
  deps --pretty-print -i legacy`
	bindViper(cmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("DEPS")
	v.AutomaticEnv()
	configFile := os.Getenv("DEPS_CONFIG")
	configureConfigFile(v, configFile)

	skip := map[string]struct{}{"help": {}, "version": {}}
	for _, name := range config.ListFlags {
		skip[name] = struct{}{}
	}

	// Bound per command rather than through cobra.OnInitialize, which is process global.
	root := commands[0]
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				return err
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		for _, cmd := range commands {
			flagSets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
			for _, fs := range flagSets {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if _, ok := skip[f.Name]; ok {
						// List flags are merged with the CLI values by Options.MergeEnv.
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					for _, val := range flagValues(v.Get(f.Name)) {
						_ = f.Value.Set(val)
					}
				})
			}
		}
		return nil
	}
}

// flagValues flattens a config or env value into the strings a flag accepts.
func flagValues(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case []string:
		return v
	default:
		if s := fmt.Sprintf("%v", v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// exitError carries the exit code of a run whose failures were already reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 1
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return
	}
	message := err.Error()
	if errors.Is(err, context.Canceled) {
		message = fmt.Sprintf("%s\nHint: interrupted; commands already running were allowed to finish.", err)
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "deps"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "deps"))
		add(filepath.Join(home, ".deps"))
	}
	return dirs
}
