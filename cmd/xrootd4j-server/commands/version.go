package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("xrootd4j-server %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}
