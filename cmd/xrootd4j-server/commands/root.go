// Package commands implements the CLI commands for xrootd4j-server.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// cfgFile is the global --config flag value.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "xrootd4j-server",
	Short: "xrootd4j-server - an xrootd data-server core",
	Long: `xrootd4j-server implements the xrootd wire protocol's request
dispatch, file streaming, and Diffie-Hellman/GSI key-agreement core.

Use "xrootd4j-server [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. It is
// called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/xrootd4j/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initConfigCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
