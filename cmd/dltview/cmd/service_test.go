package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/dltview/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemdUnit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Archive.DataDir = "/var/lib/dltview"

	unit := systemdUnit(cfg, "/etc/dltview/config.yaml", "testuser")

	assert.Contains(t, unit, "User=testuser")
	assert.Contains(t, unit, "Group=testuser")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/dltview serve --config /etc/dltview/config.yaml")
	assert.Contains(t, unit, "ReadWritePaths=/var/lib/dltview")
	assert.Contains(t, unit, "ReadWritePaths=/etc/dltview")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}

func TestPrepareServiceConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dltview_service_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "etc", "config.yaml")
	dataDir := filepath.Join(tmpDir, "data")

	t.Run("bootstrap new config", func(t *testing.T) {
		cfg, err := prepareServiceConfig(configPath, dataDir, 9000)
		require.NoError(t, err)
		assert.Equal(t, dataDir, cfg.Archive.DataDir)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Len(t, cfg.Security.APIKey, 64)

		loaded, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})

	t.Run("reuse existing config", func(t *testing.T) {
		before, err := config.LoadConfig(configPath)
		require.NoError(t, err)

		cfg, err := prepareServiceConfig(configPath, "", 0)
		require.NoError(t, err)
		assert.Equal(t, before.Security.APIKey, cfg.Security.APIKey, "the API key is kept")
		assert.Equal(t, 9000, cfg.Server.Port)
	})

	t.Run("invalid port", func(t *testing.T) {
		_, err := prepareServiceConfig(configPath, "", 70000)
		assert.Error(t, err)
	})
}

func TestJournalArgs(t *testing.T) {
	assert.Equal(t, []string{"-u", serviceName}, journalArgs(false, 0))
	assert.Equal(t, []string{"-u", serviceName, "-f", "-n50"}, journalArgs(true, 50))
}

func TestServiceInstall_RequiresRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root")
	}
	_, _, err := execute(t, "service", "install", "--config", filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorIs(t, err, errNotRoot)
}
