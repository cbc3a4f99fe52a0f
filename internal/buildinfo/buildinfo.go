// Package buildinfo identifies the benchport build that produced a result
// table. Release builds stamp it with
//
//	go build -ldflags "-X rtbench/internal/buildinfo.Version=v1.2.0 \
//		-X rtbench/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// so benchmark numbers can be traced back to the kernel that measured them.
package buildinfo

import "fmt"

// Stamped by -ldflags; the defaults mark a local build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short names the build in the "starting" log line: the release version,
// else the commit, else "dev".
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "" && Commit != "unknown":
		return Commit
	}
	return "dev"
}

// String is the -version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Short(), Commit, Date)
}
