package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/ssargent/dltview/pkg/api"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/config"
	"github.com/ssargent/dltview/pkg/logging"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpFile_Text(t *testing.T) {
	data := testData(t, 3)
	path := writeFile(t, data)
	recordLen := len(data) / 3

	var out, errOut bytes.Buffer
	stats, err := dumpFile(&out, &errOut, readerConfig(config.DefaultConfig(), path, logging.Discard()), dumpOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Records)
	assert.Empty(t, errOut.String())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "00000000 2023-11-14T22:13:20Z #0 ECU1 APP CTX log info message-0", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], fmt.Sprintf("%08x ", recordLen)))
	assert.Contains(t, lines[2], "log error message-2")
}

func TestDumpFile_JSON(t *testing.T) {
	path := writeFile(t, testData(t, 2))

	var out bytes.Buffer
	_, err := dumpFile(&out, &bytes.Buffer{}, readerConfig(config.DefaultConfig(), path, nil), dumpOptions{Output: "json"})
	require.NoError(t, err)

	dec := json.NewDecoder(&out)
	for i := 0; i < 2; i++ {
		var view api.RecordView
		require.NoError(t, dec.Decode(&view))
		assert.Equal(t, uint8(i), view.Counter)
		assert.Equal(t, "APP", view.AppID)
		require.Len(t, view.Arguments, 1)
		assert.Equal(t, fmt.Sprintf("message-%d", i), view.Arguments[0].Value)
	}
	assert.False(t, dec.More())
}

func TestDumpFile_Limit(t *testing.T) {
	path := writeFile(t, testData(t, 5))

	var out bytes.Buffer
	stats, err := dumpFile(&out, &bytes.Buffer{}, readerConfig(config.DefaultConfig(), path, nil), dumpOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
}

func TestDumpFile_Filter(t *testing.T) {
	path := writeFile(t, testData(t, 6))
	filter, err := query.ParseFilter([]string{"level<=warn"})
	require.NoError(t, err)

	var out bytes.Buffer
	stats, err := dumpFile(&out, &bytes.Buffer{}, readerConfig(config.DefaultConfig(), path, nil), dumpOptions{Limit: 3, Filter: filter})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3, "the limit counts printed records")
	assert.Contains(t, lines[0], "log warn message-1")
	assert.Contains(t, lines[1], "log error message-2")
	assert.Contains(t, lines[2], "log warn message-4")
	assert.Equal(t, int64(5), stats.Records)
}

func TestDumpFile_ReportsErrors(t *testing.T) {
	data := append([]byte("junk"), testData(t, 1)...)
	data = append(data, 'D', 'L', 'T', 0x01, 0x00) // truncated tail
	path := writeFile(t, data)

	var out, errOut bytes.Buffer
	stats, err := dumpFile(&out, &errOut, readerConfig(config.DefaultConfig(), path, nil), dumpOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Records)
	assert.Equal(t, int64(4), stats.SkippedBytes)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.Contains(t, errOut.String(), "corruption")
}

func TestDumpFile_Errors(t *testing.T) {
	path := writeFile(t, testData(t, 1))

	_, err := dumpFile(&bytes.Buffer{}, &bytes.Buffer{}, readerConfig(config.DefaultConfig(), path, nil), dumpOptions{Output: "xml"})
	assert.ErrorContains(t, err, "unknown output format")

	_, err = dumpFile(&bytes.Buffer{}, &bytes.Buffer{}, readerConfig(config.DefaultConfig(), path+".missing", nil), dumpOptions{})
	assert.ErrorContains(t, err, "failed to open")
}

func TestLevelColor(t *testing.T) {
	color.NoColor = false
	defer func() { color.NoColor = true }()

	tests := []struct {
		name string
		rec  codec.Record
		want string
	}{
		{"fatal", levelRecord(codec.ContentVerbose, codec.MessageLog, codec.LogFatal), fatalColor("x")},
		{"error", levelRecord(codec.ContentVerbose, codec.MessageLog, codec.LogError), errorColor("x")},
		{"warn", levelRecord(codec.ContentVerbose, codec.MessageLog, codec.LogWarn), warnColor("x")},
		{"info", levelRecord(codec.ContentVerbose, codec.MessageLog, codec.LogInfo), infoColor("x")},
		{"debug", levelRecord(codec.ContentVerbose, codec.MessageLog, codec.LogDebug), debugColor("x")},
		{"trace", levelRecord(codec.ContentVerbose, codec.MessageAppTrace, 1), "x"},
		{"non-verbose", levelRecord(codec.ContentNonVerbose, codec.MessageLog, codec.LogFatal), "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, levelColor(&tt.rec)("x"))
		})
	}
}

func levelRecord(ct codec.ContentType, msgType, level uint8) codec.Record {
	return codec.Record{Header: codec.BaseHeader{
		Type:        codec.NewHeaderType(ct),
		MessageInfo: codec.NewMessageInfo(msgType, level),
	}}
}

func TestDumpCommand_NoColorRestored(t *testing.T) {
	color.NoColor = false
	defer func() { color.NoColor = true }()

	configPath, _ := writeTestConfig(t)
	path := writeFile(t, testData(t, 2))

	stdout, _, err := execute(t, "dump", "--config", configPath, "--no-color", path)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "\x1b[")
	assert.False(t, color.NoColor)
}

func TestDumpCommand(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	path := writeFile(t, testData(t, 3))

	stdout, _, err := execute(t, "dump", "--config", configPath, "--limit", "1", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Contains(t, stdout, "message-0")

	stdout, _, err = execute(t, "dump", "--config", configPath, "-o", "json", path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(stdout, "\n"))

	stdout, _, err = execute(t, "dump", "--config", configPath, "--filter", "text~message-2", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Contains(t, stdout, "message-2")

	_, _, err = execute(t, "dump", "--config", configPath, "--filter", "level", path)
	assert.ErrorContains(t, err, "missing operator")

	_, _, err = execute(t, "dump", "--config", configPath)
	assert.Error(t, err, "file argument is required")
}
