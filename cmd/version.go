package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version metadata, overridable at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("eforms %s (commit %s, built %s, %s)\n", Version, GitCommit, BuildDate, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
