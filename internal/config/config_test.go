// config_test.go verifies Options defaults, flag binding, env merging and validation.
package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func TestNewOptionsDefaults(t *testing.T) {
	opts := NewOptions()
	if opts.Jobs != 1 {
		t.Fatalf("jobs default mismatch, got %d", opts.Jobs)
	}
	if len(opts.Projects) != 1 || opts.Projects[0] != "." {
		t.Fatalf("project default mismatch, got %v", opts.Projects)
	}
	if opts.Manifest != DefaultManifest {
		t.Fatalf("manifest default mismatch, got %q", opts.Manifest)
	}
}

func TestBindFlagsParsesRepeatedValues(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("deps", pflag.ContinueOnError)
	opts.BindFlags(fs)
	args := []string{"-p", "a,b", "--project", "c", "-i", "x", "-i", "y", "-s", "z", "-j", "3", "-f", "{name}.txt", "-n", "-v"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(opts.Projects, ",") != "a,b,c" {
		t.Fatalf("projects=%v", opts.Projects)
	}
	if strings.Join(opts.IgnoreProjects, ",") != "x,y" || strings.Join(opts.SkipProjects, ",") != "z" {
		t.Fatalf("ignore=%v skip=%v", opts.IgnoreProjects, opts.SkipProjects)
	}
	if opts.Jobs != 3 || !opts.DryRun || !opts.Verbose || opts.RequireFiles[0] != "{name}.txt" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestMergeEnvUnion(t *testing.T) {
	sep := string(os.PathListSeparator)
	env := map[string]string{
		EnvIgnoreProject: "old" + sep + "fuzzy" + sep,
		EnvSkipProject:   "slow",
	}
	opts := NewOptions()
	opts.IgnoreProjects = []string{"cli", "old"}
	opts.MergeEnv(func(k string) string { return env[k] })
	if got := strings.Join(opts.IgnoreProjects, ","); got != "cli,old,fuzzy" {
		t.Fatalf("ignore=%s", got)
	}
	if got := strings.Join(opts.SkipProjects, ","); got != "slow" {
		t.Fatalf("skip=%s", got)
	}
}

func TestSplitListDropsBlanks(t *testing.T) {
	sep := string(os.PathListSeparator)
	if got := SplitList(" a " + sep + sep + "b"); strings.Join(got, ",") != "a,b" {
		t.Fatalf("split=%v", got)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Fatalf("expected no entries, got %v", got)
	}
}

func TestValidateRejectsReversedParallel(t *testing.T) {
	opts := NewOptions()
	opts.Jobs = 2
	opts.DepsReversed = true
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected --deps-reversed with --jobs=2 to fail")
	}
}

func TestValidateJobs(t *testing.T) {
	opts := NewOptions()
	opts.Jobs = 0
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected --jobs=0 to fail")
	}
}

func TestValidateGraph(t *testing.T) {
	opts := NewOptions()
	opts.Graph = " DOT "
	if err := opts.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if opts.Graph != "dot" {
		t.Fatalf("graph=%q", opts.Graph)
	}
	opts.Graph = "svg"
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected invalid graph format to fail")
	}
	opts = NewOptions()
	opts.Graph = "mermaid"
	opts.PrettyPrint = true
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected --pretty-print with --graph to fail")
	}
}

func TestValidateNormalizesProjects(t *testing.T) {
	opts := NewOptions()
	opts.Projects = []string{" ", ""}
	opts.Manifest = " "
	if err := opts.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(opts.Projects) != 1 || opts.Projects[0] != "." || opts.Manifest != DefaultManifest {
		t.Fatalf("projects=%v manifest=%q", opts.Projects, opts.Manifest)
	}
}

func TestAddFlagsRegistersOnCommand(t *testing.T) {
	opts := NewOptions()
	cmd := &cobra.Command{Use: "deps"}
	opts.AddFlags(cmd)
	for _, name := range []string{"project", "ignore-project", "skip-project", "jobs", "events-listen"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("flag %q not registered", name)
		}
	}
	if err := cmd.Flags().Parse([]string{"--events-listen", "127.0.0.1:0"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.EventsListen != "127.0.0.1:0" {
		t.Fatalf("events-listen=%q", opts.EventsListen)
	}
}
