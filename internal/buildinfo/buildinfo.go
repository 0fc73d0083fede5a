// Package buildinfo exposes version metadata stamped at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/credkeeper/internal/buildinfo.Version=v1.2.0"
package buildinfo

import "fmt"

var (
	Version = "N/A"
	Commit  = "N/A"
	Date    = "N/A"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("version: %s, commit: %s, date: %s", Version, Commit, Date)
}
