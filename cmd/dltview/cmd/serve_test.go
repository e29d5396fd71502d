package cmd

import (
	"context"
	"testing"

	"github.com/ssargent/dltview/pkg/api"
	"github.com/ssargent/dltview/pkg/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStarter captures the server configuration instead of serving
type recordingStarter struct {
	config     api.ServerConfig
	hasArchive bool
	started    bool
}

func (s *recordingStarter) CreateServerStarter() api.ServerStarter { return s }

func (s *recordingStarter) StartServer(ctx context.Context, archive api.RecordArchive, config api.ServerConfig) error {
	s.started = true
	s.config = config
	s.hasArchive = archive != nil
	if archive != nil {
		_, err := archive.Count(ctx)
		return err
	}
	return nil
}

func TestServeCommand(t *testing.T) {
	configPath, cfg := writeTestConfig(t)

	starter := &recordingStarter{}
	c := di.NewContainer()
	c.SetServerFactory(starter)

	_, _, err := executeWith(t, c, "serve", "--config", configPath, "--port", "9000", "--bind", "0.0.0.0")
	require.NoError(t, err)

	assert.True(t, starter.hasArchive)
	assert.Equal(t, "0.0.0.0", starter.config.Bind)
	assert.Equal(t, 9000, starter.config.Port)
	assert.Equal(t, "test-key", starter.config.APIKey)
	assert.Equal(t, cfg.Server.MaxUploadSize, starter.config.MaxUploadSize)
	assert.True(t, starter.config.Resync)
	assert.NotNil(t, starter.config.Logger)
	assert.DirExists(t, cfg.Archive.DataDir)
}

func TestServeCommand_NoArchiveAndGeneratedKey(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	starter := &recordingStarter{}
	c := di.NewContainer()
	c.SetServerFactory(starter)

	_, stderr, err := executeWith(t, c, "serve", "--config", configPath, "--no-archive", "--api-key", "auto")
	require.NoError(t, err)

	assert.False(t, starter.hasArchive)
	assert.Len(t, starter.config.APIKey, 64)
	assert.Contains(t, stderr, "generated an API key")
}

func TestServeCommand_EmptyKey(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	t.Run("loopback", func(t *testing.T) {
		starter := &recordingStarter{}
		c := di.NewContainer()
		c.SetServerFactory(starter)

		_, _, err := executeWith(t, c, "serve", "--config", configPath, "--no-archive", "--api-key", "")
		require.NoError(t, err)
		assert.Empty(t, starter.config.APIKey)
	})

	t.Run("all interfaces", func(t *testing.T) {
		starter := &recordingStarter{}
		c := di.NewContainer()
		c.SetServerFactory(starter)

		_, _, err := executeWith(t, c, "serve", "--config", configPath, "--no-archive", "--api-key", "", "--bind", "0.0.0.0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "security.api_key")
		assert.False(t, starter.started)
	})
}

func TestServeCommand_InvalidPort(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	_, _, err := execute(t, "serve", "--config", configPath, "--port", "70000")
	assert.Error(t, err)
}
