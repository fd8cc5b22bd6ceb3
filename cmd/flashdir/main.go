// Command flashdir is the CLI surface over the scan engine: a "scan"
// command for interactive use, plus "stats" and "cache" subcommands for
// inspecting the performance monitor and disk cache.
//
// Structured the way ivoronin-dupedog's cmd/dupedog lays out its cobra
// tree: a thin main.go wiring a root command, one file per subcommand.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	log.SetFormatter(&log.TextFormatter{})

	root := &cobra.Command{
		Use:     "flashdir",
		Short:   "Directory-size scan engine with a two-tier cache",
		Version: version,
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newCacheCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
