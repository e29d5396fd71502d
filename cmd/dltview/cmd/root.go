/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/dltview/pkg/config"
	"github.com/ssargent/dltview/pkg/di"
	"github.com/ssargent/dltview/pkg/logging"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/ssargent/dltview/pkg/storage"
	"github.com/ssargent/dltview/pkg/store"
)

type contextKey string

const (
	configKey contextKey = "config"
	loggerKey contextKey = "logger"
)

var container *di.Container

// SetContainer injects the dependency container used by the commands
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dltview",
	Short: "dltview - DLT log decoder",
	Long: `dltview decodes AUTOSAR DLT v2 log files.

It prints and summarizes DLT files, keeps decoded records in a local
archive and serves the decoder over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}

		logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = context.WithValue(ctx, configKey, cfg)
		ctx = context.WithValue(ctx, loggerKey, logger)
		cmd.SetContext(ctx)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ~/.config/dltview/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}

// loadConfig reads path, or the default config when path is empty. A missing
// default config yields the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	path = config.GetDefaultConfigPath()
	if config.ConfigExists(path) {
		return config.LoadConfig(path)
	}
	return config.DefaultConfig(), nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cmd.Context() != nil {
		if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
			return cfg
		}
	}
	return config.DefaultConfig()
}

func loggerFrom(cmd *cobra.Command) *slog.Logger {
	if cmd.Context() != nil {
		if logger, ok := cmd.Context().Value(loggerKey).(*slog.Logger); ok {
			return logger
		}
	}
	return logging.Discard()
}

func readerConfig(cfg *config.Config, path string, logger *slog.Logger) store.LogReaderConfig {
	return store.LogReaderConfig{
		FilePath:      path,
		Options:       cfg.CodecOptions(),
		Resync:        cfg.Reader.Resync,
		MaxRecordSize: cfg.Reader.MaxRecordSize,
		Logger:        logger,
	}
}

func archiveConfig(cfg *config.Config) storage.ArchiveConfig {
	return storage.ArchiveConfig{
		DataDir: cfg.Archive.DataDir,
		Sync:    cfg.Archive.Sync,
		Options: cfg.CodecOptions(),
	}
}

const filterUsage = `Only include records matching <field><op><value>; repeatable, all must match.
Fields: ecu app ctx session type content text level counter msgid time.
Operators: = != < <= > >= and ~ (contains)`

func addFilterFlag(c *cobra.Command) {
	c.Flags().StringArray("filter", nil, filterUsage)
}

func filterFrom(cmd *cobra.Command) (*query.Filter, error) {
	exprs, _ := cmd.Flags().GetStringArray("filter")
	return query.ParseFilter(exprs)
}
