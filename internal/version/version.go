// File: internal/version/version.go
// Brief: Build metadata reported by `deps --version`.

package version

import (
	"fmt"
	"runtime"
	"strings"
)

// These values are overridden at build time via -ldflags "-X ...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown" // RFC3339 UTC preferred
)

type Info struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders a single line suitable for --version output. Unknown fields are omitted.
func (i Info) String() string {
	parts := []string{i.Version}
	if i.GitCommit != "" && i.GitCommit != "unknown" {
		parts = append(parts, "commit "+i.GitCommit)
	}
	if i.BuildDate != "" && i.BuildDate != "unknown" {
		parts = append(parts, "built "+i.BuildDate)
	}
	parts = append(parts, i.GoVersion, i.Platform)
	return strings.Join(parts, ", ")
}
