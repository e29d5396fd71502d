/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/dltview/pkg/config"
)

const (
	serviceName = "dltview.service"
	unitPath    = "/etc/systemd/system/" + serviceName
)

var errNotRoot = errors.New("requires root privileges")

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the dltview server as a systemd service",
	Long: `Manage the dltview decode server as a systemd service.

The unit runs "dltview serve" with a fixed configuration file and restarts
on failure.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// install manages its own configuration
		return nil
	},
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the dltview systemd service",
	Long: `Install the dltview server as a systemd service. An existing
configuration is reused; otherwise one is created with a generated API key.

Examples:
  sudo dltview service install
  sudo dltview service install --data-dir /var/lib/dltview --user dltview`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		configPath, _ := cmd.Flags().GetString("config")
		user, _ := cmd.Flags().GetString("user")
		port, _ := cmd.Flags().GetInt("port")
		startNow, _ := cmd.Flags().GetBool("start")

		if configPath == "" {
			configPath = "/etc/dltview/config.yaml"
		}

		if os.Geteuid() != 0 {
			return fmt.Errorf("service install %w (run with sudo)", errNotRoot)
		}

		cmd.Printf("🔧 Installing dltview systemd service...\n")

		cfg, err := prepareServiceConfig(configPath, dataDir, port)
		if err != nil {
			return err
		}

		if err := os.WriteFile(unitPath, []byte(systemdUnit(cfg, configPath, user)), 0600); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}
		if err := runSystemctlCommand("enable", serviceName); err != nil {
			return fmt.Errorf("failed to enable service: %w", err)
		}
		cmd.Printf("✅ Service enabled\n")

		if startNow {
			if err := runSystemctlCommand("start", serviceName); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}
			cmd.Printf("✅ Service started\n")
		}

		cmd.Printf("\nService: %s\n", serviceName)
		cmd.Printf("Config: %s\n", configPath)
		cmd.Printf("Archive: %s\n", cfg.Archive.DataDir)
		cmd.Printf("Listen: %s\n", cfg.Server.Addr())
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// systemctlCmd wraps a plain systemctl verb
func systemctlCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemctlCommand(verb, serviceName)
		},
	}
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show dltview service logs",
	Long: `Show dltview service logs using journalctl.

Examples:
  dltview service logs
  dltview service logs -f  # Follow logs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand("journalctl", journalArgs(follow, lines)...)
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the dltview service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall %w (run with sudo)", errNotRoot)
		}

		_ = runSystemctlCommand("stop", serviceName) // may already be stopped
		if err := runSystemctlCommand("disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}

		cmd.Printf("✅ dltview service uninstalled\n")
		cmd.Printf("Note: configuration and archive were not removed\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the dltview service"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the dltview service"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the dltview service"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show dltview service status"))
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallCmd)

	installServiceCmd.Flags().String("data-dir", "/var/lib/dltview", "Archive directory for the service")
	installServiceCmd.Flags().String("user", "dltview", "User to run the service as")
	installServiceCmd.Flags().Int("port", 8080, "Port for the service")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// prepareServiceConfig loads or bootstraps the config at configPath, applies
// the install flags and saves it back.
func prepareServiceConfig(configPath, dataDir string, port int) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if config.ConfigExists(configPath) {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.BootstrapConfig(configPath, dataDir)
	}
	if err != nil {
		return nil, err
	}

	if dataDir != "" {
		cfg.Archive.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// systemdUnit renders the unit file for cfg.
func systemdUnit(cfg *config.Config, configPath, user string) string {
	return fmt.Sprintf(`[Unit]
Description=dltview DLT decode server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=/usr/local/bin/dltview serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, configPath, cfg.Archive.DataDir, filepath.Dir(configPath))
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
