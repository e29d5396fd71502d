package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/config"
	"github.com/ssargent/dltview/pkg/di"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

var testLevels = []uint8{codec.LogInfo, codec.LogWarn, codec.LogError}

// testRecord builds a verbose log record; level cycles through testLevels.
func testRecord(counter uint8) codec.Record {
	return codec.Record{
		Storage: codec.StorageHeader{Seconds: 1700000000 + int32(counter), EcuID: "ECU1"},
		Header: codec.BaseHeader{
			Type:        codec.NewHeaderType(codec.ContentVerbose),
			Counter:     counter,
			MessageInfo: codec.NewMessageInfo(codec.MessageLog, testLevels[int(counter)%len(testLevels)]),
		},
		Extended: &codec.ExtendedHeader{Present: codec.WithAppID, AppID: "APP", ContextID: "CTX"},
		Payload: &codec.VerbosePayload{Arguments: []codec.Argument{
			codec.String{Value: fmt.Sprintf("message-%d", counter)},
		}},
		Order: codec.BigEndian,
	}
}

func testData(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		data, err := testRecord(uint8(i)).Encode(codec.BigEndian)
		require.NoError(t, err)
		buf.Write(data)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.dlt")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// writeTestConfig saves a default config with its archive under the test's
// temp dir and returns the config path.
func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Archive.DataDir = filepath.Join(dir, "archive")
	cfg.Security.APIKey = "test-key"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, path))
	return path, cfg
}

// execute runs the root command with args and returns stdout and stderr.
// Flags are reset first since the command tree is shared.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeWith(t, di.NewContainer(), args...)
}

func executeWith(t *testing.T, c *di.Container, args ...string) (string, string, error) {
	t.Helper()
	SetContainer(c)
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
