// Package version carries the build version, set with
// -ldflags "-X github.com/bnema/mailbot/internal/version.Version=v1.2.3".
package version

var Version = "dev"
