package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/config"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/ssargent/dltview/pkg/storage"
	"github.com/ssargent/dltview/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) *storage.Archive {
	t.Helper()
	archive, err := storage.NewArchive(storage.ArchiveConfig{DataDir: t.TempDir(), Options: codec.DefaultOptions()})
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive
}

func TestImportExport(t *testing.T) {
	data := testData(t, 5)
	path := writeFile(t, append([]byte("garbage"), data...))
	archive := newTestArchive(t)

	bar := newProgressBar(io.Discard, "importing")
	res, err := importFile(archive, readerConfig(config.DefaultConfig(), path, nil), bar)
	require.NoError(t, err)
	assert.Equal(t, importResult{Imported: 5}, res)

	count, err := archive.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	tests := []struct {
		name        string
		compression store.Compression
	}{
		{"plain", store.CompressionNone},
		{"gzip", store.CompressionGzip},
		{"zstd", store.CompressionZstd},
		{"lz4", store.CompressionLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "export.dlt")
			n, err := exportArchive(context.Background(), archive, archiveScan{}, store.LogWriterConfig{
				FilePath:      out,
				FsyncInterval: time.Second,
				Compression:   tt.compression,
			}, codec.DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, 5, n)

			if tt.compression == store.CompressionNone {
				exported, err := os.ReadFile(out)
				require.NoError(t, err)
				assert.Equal(t, data, exported, "records come back in capture order")
			}

			s, err := summarize(readerConfig(config.DefaultConfig(), out, nil), nil)
			require.NoError(t, err)
			assert.Equal(t, int64(5), s.Records)
			assert.Equal(t, int64(len(data)), s.Bytes)
		})
	}
}

func TestExportArchive_Window(t *testing.T) {
	archive := newTestArchive(t)
	for i := 0; i < 4; i++ {
		_, err := archive.Put(testRecord(uint8(i)))
		require.NoError(t, err)
	}

	out := filepath.Join(t.TempDir(), "window.dlt")
	n, err := exportArchive(context.Background(), archive, archiveScan{ScanOptions: storage.ScanOptions{
		From:  time.Unix(1700000001, 0),
		Limit: 2,
	}}, store.LogWriterConfig{FilePath: out, FsyncInterval: time.Second}, codec.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s, err := summarize(readerConfig(config.DefaultConfig(), out, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000001), s.First.Unix())
	assert.Equal(t, int64(1700000002), s.Last.Unix())
}

func TestScanRecords_FilterAndLimit(t *testing.T) {
	archive := newTestArchive(t)
	for i := 0; i < 6; i++ {
		_, err := archive.Put(testRecord(uint8(i)))
		require.NoError(t, err)
	}
	filter, err := query.ParseFilter([]string{"level=info"})
	require.NoError(t, err)

	var counters []uint8
	err = scanRecords(context.Background(), archive, archiveScan{ScanOptions: storage.ScanOptions{Limit: 1}, Filter: filter}, codec.DefaultOptions(),
		func(_ ksuid.KSUID, _ []byte, rec *codec.Record, err error) error {
			require.NoError(t, err)
			counters = append(counters, rec.Header.Counter)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0}, counters)

	counters = nil
	err = scanRecords(context.Background(), archive, archiveScan{Filter: filter}, codec.DefaultOptions(),
		func(_ ksuid.KSUID, _ []byte, rec *codec.Record, _ error) error {
			counters = append(counters, rec.Header.Counter)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 3}, counters)
}

func TestImportFile_Errors(t *testing.T) {
	archive := newTestArchive(t)

	_, err := importFile(archive, readerConfig(config.DefaultConfig(), "/nonexistent.dlt", nil), nil)
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.Reader.Resync = false
	path := writeFile(t, append([]byte("XXXX"), testData(t, 2)...))
	res, err := importFile(archive, readerConfig(cfg, path, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, importResult{Failed: 1}, res, "a bad magic without resync ends the import")
}

func TestArchiveCommands(t *testing.T) {
	configPath, cfg := writeTestConfig(t)
	path := writeFile(t, testData(t, 3))

	stdout, _, err := execute(t, "archive", "import", "--config", configPath, "--quiet", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Imported 3 records")

	stdout, _, err = execute(t, "archive", "list", "--config", configPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "message-0")

	id := strings.Fields(lines[1])[0]
	_, err = ksuid.Parse(id)
	require.NoError(t, err)

	stdout, _, err = execute(t, "archive", "get", "--config", configPath, id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "message-1")

	stdout, _, err = execute(t, "archive", "delete", "--config", configPath, id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted "+id)

	_, _, err = execute(t, "archive", "get", "--config", configPath, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stdout, _, err = execute(t, "archive", "list", "--config", configPath, "--filter", "level=error")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Contains(t, stdout, "message-2")

	out := filepath.Join(t.TempDir(), "out.dlt.gz")
	stdout, _, err = execute(t, "archive", "export", "--config", configPath, "--compression", "gzip", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported 2 records")

	_, _, err = execute(t, "archive", "get", "--config", configPath, "not-an-id")
	assert.ErrorContains(t, err, "invalid record id")

	_, _, err = execute(t, "archive", "export", "--config", configPath, "--compression", "rar", out)
	assert.Error(t, err)

	assert.DirExists(t, cfg.Archive.DataDir)
}

func TestArchiveCommands_DataDirFlag(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	dataDir := filepath.Join(t.TempDir(), "other")
	path := writeFile(t, testData(t, 1))

	_, _, err := execute(t, "archive", "import", "--config", configPath, "-q", "-d", dataDir, path)
	require.NoError(t, err)
	assert.DirExists(t, dataDir)
}

func TestScanOptions_InvalidTime(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	_, _, err := execute(t, "archive", "list", "--config", configPath, "--from", "yesterday")
	assert.ErrorContains(t, err, "invalid --from")
}
