// Package version reports build information for the autograde binary.
package version

import (
	"fmt"
	"runtime"
)

// These variables are populated by the Go linker (LDFLAGS) at build time.
var (
	Version    = "dev"     // Default value if not built with LDFLAGS
	CommitHash = "unknown" // Default value
	BuildDate  = "unknown" // Default value
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("autograde %s (%s, built %s, %s)", Version, CommitHash, BuildDate, runtime.Version())
}
