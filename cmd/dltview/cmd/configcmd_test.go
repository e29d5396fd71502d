package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/dltview/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dltview_init_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	dataDir := filepath.Join(tmpDir, "data")

	t.Run("creates config", func(t *testing.T) {
		cfg, created, err := initConfig(configPath, dataDir, false)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, dataDir, cfg.Archive.DataDir)
		assert.FileExists(t, configPath)
	})

	t.Run("keeps existing config", func(t *testing.T) {
		cfg, created, err := initConfig(configPath, dataDir, false)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Nil(t, cfg)
	})

	t.Run("force replaces config", func(t *testing.T) {
		before, err := config.LoadConfig(configPath)
		require.NoError(t, err)

		cfg, created, err := initConfig(configPath, dataDir, true)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, before.Security.APIKey, cfg.Security.APIKey)
	})
}

func TestWriteConfig_MasksAPIKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Security.APIKey = "0123456789abcdef"

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, cfg))
	assert.Contains(t, buf.String(), "api_key: 0123...cdef")
	assert.NotContains(t, buf.String(), "0123456789abcdef")
	assert.Equal(t, "0123456789abcdef", cfg.Security.APIKey, "the config itself is untouched")
}

func TestLoadConfig(t *testing.T) {
	configPath, want := writeTestConfig(t)

	cfg, err := loadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, want, cfg)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestConfigCommands(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	stdout, _, err := execute(t, "config", "init", "--config", configPath, "--print-key")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration created")
	assert.Contains(t, stdout, "API key: ")

	stdout, _, err = execute(t, "config", "init", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "already exists")

	stdout, _, err = execute(t, "config", "show", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "default_endianness: big")
	assert.Contains(t, stdout, "...")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	_, _, err := execute(t, "config", "show", "--config", configPath, "--log-level", "loud")
	assert.ErrorContains(t, err, "unknown log level")
}
