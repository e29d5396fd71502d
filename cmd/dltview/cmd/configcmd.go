/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/dltview/pkg/config"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the dltview configuration",
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a configuration file with default settings and a generated
API key.

Examples:
  dltview config init
  dltview config init --config ./dltview.yaml --data-dir /var/lib/dltview`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// the config file may not exist yet
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		cfg, created, err := initConfig(configPath, dataDir, force)
		if err != nil {
			return err
		}
		if !created {
			cmd.Printf("Configuration already exists at %s. Use --force to replace it.\n", resolveConfigPath(configPath))
			return nil
		}

		cmd.Printf("✅ Configuration created at %s\n", resolveConfigPath(configPath))
		cmd.Printf("Archive directory: %s\n", cfg.Archive.DataDir)
		if printKey {
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		}
		return nil
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfig(cmd.OutOrStdout(), configFrom(cmd))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringP("data-dir", "d", "", "Archive directory to record in the new config")
	configInitCmd.Flags().Bool("force", false, "Replace an existing configuration")
	configInitCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

func resolveConfigPath(path string) string {
	if path == "" {
		return config.GetDefaultConfigPath()
	}
	return path
}

// initConfig bootstraps a config at path unless one exists and force is
// unset. It reports whether a file was written.
func initConfig(path, dataDir string, force bool) (*config.Config, bool, error) {
	path = resolveConfigPath(path)
	if config.ConfigExists(path) && !force {
		return nil, false, nil
	}
	cfg, err := config.BootstrapConfig(path, dataDir)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// writeConfig prints cfg as YAML with the API key masked.
func writeConfig(w io.Writer, cfg *config.Config) error {
	masked := *cfg
	if key := masked.Security.APIKey; len(key) > 8 && key != "auto" {
		masked.Security.APIKey = key[:4] + "..." + key[len(key)-4:]
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
