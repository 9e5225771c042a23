// Command scansage runs the sanitized Nmap XML ingestion service and its
// operator tooling.
package main

import (
	"github.com/scansage/scansage/cmd/cli"
	"github.com/scansage/scansage/internal/api/handlers"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	handlers.SetBuildInfo(version, commit, buildTime)
	cli.Execute()
}
