/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/dltview/pkg/api"
	"github.com/ssargent/dltview/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP decode server",
	Long: `Start the dltview HTTP server. It decodes uploaded DLT streams and
serves the record archive.

When security.api_key is "auto" a key is generated for this run and logged.
An empty key disables authentication and is only accepted when binding to
a loopback address.

Examples:
  dltview serve
  dltview serve --port 9000 --bind 0.0.0.0
  dltview serve --no-archive --api-key ""`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		logger := loggerFrom(cmd)
		if err := applyServeFlags(cmd, cfg); err != nil {
			return err
		}
		noArchive, _ := cmd.Flags().GetBool("no-archive")

		if cfg.Security.APIKey == "auto" {
			key, err := config.GenerateSecureKey(32)
			if err != nil {
				return err
			}
			cfg.Security.APIKey = key
			logger.Warn("generated an API key for this run; set security.api_key to keep it", "api_key", key)
		}

		if container == nil {
			return errors.New("dependency container not initialized")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var archive api.RecordArchive
		if !noArchive {
			a, err := container.GetArchiveFactory().OpenArchive(archiveConfig(cfg))
			if err != nil {
				return fmt.Errorf("failed to open archive: %w", err)
			}
			defer a.Close()
			archive = a
			logger.Info("archive opened", "data_dir", cfg.Archive.DataDir)
		}

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(ctx, archive, serverConfig(cfg, logger))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().String("bind", "", "Address to bind to (overrides server.bind)")
	serveCmd.Flags().String("api-key", "", "API key (overrides security.api_key)")
	serveCmd.Flags().StringP("data-dir", "d", "", "Archive directory (overrides archive.data_dir)")
	serveCmd.Flags().Bool("no-archive", false, "Serve without an archive")
}

// applyServeFlags copies explicitly set flags over cfg.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("bind") {
		cfg.Server.Bind, _ = flags.GetString("bind")
	}
	if flags.Changed("api-key") {
		cfg.Security.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("data-dir") {
		cfg.Archive.DataDir, _ = flags.GetString("data-dir")
	}
	return cfg.Validate()
}

func serverConfig(cfg *config.Config, logger *slog.Logger) api.ServerConfig {
	return api.ServerConfig{
		Bind:          cfg.Server.Bind,
		Port:          cfg.Server.Port,
		APIKey:        cfg.Security.APIKey,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Codec:         cfg.CodecOptions(),
		Resync:        cfg.Reader.Resync,
		MaxRecordSize: cfg.Reader.MaxRecordSize,
		Logger:        logger,
	}
}
