// Package version holds build metadata injected at link time with
// -ldflags "-X github.com/sydlexius/phonyfy/internal/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "none"
)
