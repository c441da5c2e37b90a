// Command kundli serves localized astrology guidance and the site around it.
package main

import (
	"github.com/kundliinsight/kundli/internal/cmd"
	"github.com/kundliinsight/kundli/internal/server/handlers"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(cmd.ExitCodeFor(err), "kundli failed", err)
	}
}
