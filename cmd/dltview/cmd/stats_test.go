package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ssargent/dltview/pkg/config"
	"github.com/ssargent/dltview/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	data := append(testData(t, 4), []byte("DLT\x01tail")...)
	path := writeFile(t, data)

	s, err := summarize(readerConfig(config.DefaultConfig(), path, nil), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(4), s.Records)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, map[string]int64{"verbose": 4}, s.ContentTypes)
	assert.Equal(t, map[string]int64{"info": 2, "warn": 1, "error": 1}, s.Levels)
	assert.Equal(t, map[string]int64{"ECU1": 4}, s.ECUs)
	assert.Equal(t, map[string]int64{"APP": 4}, s.Apps)
	assert.Equal(t, map[string]int64{"corruption": 1}, s.ErrorKinds)
	assert.Equal(t, int64(1700000000), s.First.Unix())
	assert.Equal(t, int64(1700000003), s.Last.Unix())
}

func TestSummarize_Filter(t *testing.T) {
	path := writeFile(t, testData(t, 6))
	filter, err := query.ParseFilter([]string{"level=info"})
	require.NoError(t, err)

	s, err := summarize(readerConfig(config.DefaultConfig(), path, nil), filter)
	require.NoError(t, err)
	assert.Equal(t, int64(6), s.Records)
	assert.Equal(t, int64(2), s.Matched)
	assert.Equal(t, map[string]int64{"info": 2}, s.Levels)
	assert.Equal(t, int64(1700000000), s.First.Unix())
	assert.Equal(t, int64(1700000003), s.Last.Unix())

	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, s))
	assert.Contains(t, buf.String(), "matched   2")
}

func TestSummarize_MissingFile(t *testing.T) {
	_, err := summarize(readerConfig(config.DefaultConfig(), "/nonexistent/trace.dlt", nil), nil)
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	s := newSummary()
	s.Records = 2
	s.Matched = 2
	s.Levels["warn"] = 1
	s.Levels["error"] = 1

	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, s))

	out := buf.String()
	assert.Contains(t, out, "decoded   2")
	assert.Contains(t, out, "Log levels")
	assert.NotContains(t, out, "Applications", "empty sections are omitted")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("error")), bytes.Index(buf.Bytes(), []byte("warn")), "keys are sorted")
}

func TestStatsCommand_JSON(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	path := writeFile(t, testData(t, 3))

	stdout, _, err := execute(t, "stats", "--config", configPath, "-o", "json", path)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, float64(3), got["records"])
	assert.Equal(t, map[string]interface{}{"verbose": float64(3)}, got["content_types"])
}
