// Package version holds the build version, set with
// -ldflags "-X github.com/bnema/steam-gs-unlock/internal/version.Version=...".
package version

var Version = "dev"
