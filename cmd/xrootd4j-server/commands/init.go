package commands

import (
	"fmt"
	"os"

	"github.com/gbehrmann/xrootd4j/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample xrootd4j-server configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/xrootd4j/config.yaml. Use --config to specify a custom
path.`,
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to set the server root")
	fmt.Printf("  2. Start the server with: xrootd4j-server serve --config %s\n", path)
	return nil
}
