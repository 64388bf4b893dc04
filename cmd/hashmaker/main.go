package main

import (
	"os"

	"github.com/lyallcooper/hashmaker/internal/cli"
)

// Version info - injected at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	os.Exit(cli.Execute())
}
