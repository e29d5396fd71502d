/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/ssargent/dltview/pkg/codec"
	"gopkg.in/yaml.v3"
)

// minRecordSize is a storage header plus the smallest base header.
const minRecordSize = codec.StorageHeaderSize + codec.BaseHeaderMinSize

// maxRecordSize is a storage header plus the largest LEN.
const maxRecordSize = codec.StorageHeaderSize + 0xFFFF

// Config represents the dltview configuration
type Config struct {
	Codec    Codec    `yaml:"codec"`
	Reader   Reader   `yaml:"reader"`
	Archive  Archive  `yaml:"archive"`
	Server   Server   `yaml:"server"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
}

// Codec holds the defaults applied when decoding records
type Codec struct {
	DefaultEndianness     string `yaml:"default_endianness"`
	DefaultStringEncoding string `yaml:"default_string_encoding"`
	StrictTrailingBytes   bool   `yaml:"strict_trailing_bytes"`
}

// Reader configures sequential reading of DLT files
type Reader struct {
	Resync        bool `yaml:"resync"`
	MaxRecordSize int  `yaml:"max_record_size"`
}

// Archive configures the record archive
type Archive struct {
	DataDir string `yaml:"data_dir"`
	Sync    bool   `yaml:"sync"`
}

// Server configures the HTTP decode service
type Server struct {
	Bind          string `yaml:"bind"`
	Port          int    `yaml:"port"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// Security contains security-related configuration
type Security struct {
	// APIKey protects /api/v1. "auto" is replaced by a generated key on
	// bootstrap. Empty disables the check and is only accepted on a
	// loopback bind.
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Codec: Codec{
			DefaultEndianness:     "big",
			DefaultStringEncoding: codec.CharsetASCII,
			StrictTrailingBytes:   true,
		},
		Reader: Reader{
			Resync:        true,
			MaxRecordSize: maxRecordSize,
		},
		Archive: Archive{
			DataDir: "./data",
		},
		Server: Server{
			Bind:          "127.0.0.1",
			Port:          8080,
			MaxUploadSize: 64 << 20,
		},
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600), the file may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := codec.ParseEndianness(c.Codec.DefaultEndianness); err != nil {
		errs = append(errs, fmt.Errorf("codec.default_endianness: %w", err))
	}
	if !codec.ValidCharset(c.Codec.DefaultStringEncoding) {
		errs = append(errs, fmt.Errorf("codec.default_string_encoding: unknown charset %q", c.Codec.DefaultStringEncoding))
	}
	if c.Reader.MaxRecordSize < minRecordSize || c.Reader.MaxRecordSize > maxRecordSize {
		errs = append(errs, fmt.Errorf("reader.max_record_size: %d not in [%d, %d]", c.Reader.MaxRecordSize, minRecordSize, maxRecordSize))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadSize < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_size: must not be negative"))
	}
	if c.Security.APIKey == "" && !isLoopback(c.Server.Bind) {
		errs = append(errs, fmt.Errorf("security.api_key: required when server.bind %q is not loopback", c.Server.Bind))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func isLoopback(bind string) bool {
	if strings.EqualFold(bind, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(bind, "[]"))
	return ip != nil && ip.IsLoopback()
}

// CodecOptions converts the codec section. Call Validate first; an invalid
// endianness falls back to unset.
func (c *Config) CodecOptions() codec.Options {
	order, _ := codec.ParseEndianness(c.Codec.DefaultEndianness)
	return codec.Options{
		DefaultEndianness:   order,
		DefaultCharset:      c.Codec.DefaultStringEncoding,
		StrictTrailingBytes: c.Codec.StrictTrailingBytes,
	}
}

// Addr returns the server listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and
// saves it to configPath.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.Archive.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./dltview.yaml"
	}

	// For Linux/macOS, use ~/.config/dltview/config.yaml
	configDir := filepath.Join(homeDir, ".config", "dltview")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
