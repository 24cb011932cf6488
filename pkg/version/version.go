package version

import (
	"fmt"
	"runtime"
)

// Set at link time with -ldflags "-X github.com/linusheck/synthesis/pkg/version.Version=...".
var (
	Version   = "devel"
	GitCommit = "unknown"
)

// String renders the build information printed by `coloring --version`.
func String() string {
	return fmt.Sprintf("coloring version: %s\n      git commit: %s\n      go version: %s\n", Version, GitCommit, runtime.Version())
}
