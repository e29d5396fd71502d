package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/dltview/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, data []byte) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "log_reader_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	filePath := filepath.Join(tmpDir, "test.dlt")
	require.NoError(t, os.WriteFile(filePath, data, 0600))
	return filePath
}

func readAll(t *testing.T, reader *LogReader) ([]*codec.Record, []error) {
	t.Helper()
	var records []*codec.Record
	var errs []error
	for i := 0; i < 1000; i++ {
		record, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			return records, errs
		}
		if err != nil {
			errs = append(errs, err)
			var re *RecordError
			if !errors.As(err, &re) || errors.Is(err, codec.ErrBadMagic) {
				return records, errs
			}
			continue
		}
		records = append(records, record)
	}
	t.Fatal("reader did not reach end of stream")
	return nil, nil
}

func TestNewLogReader(t *testing.T) {
	data, _ := testRecords(t, 1)
	filePath := writeTestFile(t, data)

	reader, err := NewLogReader(testReaderConfig(filePath))
	require.NoError(t, err)
	assert.NotNil(t, reader)
	assert.Equal(t, int64(0), reader.Offset())

	err = reader.Close()
	assert.NoError(t, err)
}

func TestNewLogReader_NonExistentFile(t *testing.T) {
	config := LogReaderConfig{
		FilePath: "/non/existent/file.dlt",
	}

	reader, err := NewLogReader(config)
	assert.Error(t, err)
	assert.Nil(t, reader)
}

func TestNewLogReader_WithStartOffset(t *testing.T) {
	data, each := testRecords(t, 3)
	filePath := writeTestFile(t, data)

	config := testReaderConfig(filePath)
	config.StartOffset = int64(len(each[0]))

	reader, err := NewLogReader(config)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, int64(len(each[0])), reader.Offset())

	record, err := reader.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), record.Header.Counter)
}

func TestLogReader_ReadNext_EOF(t *testing.T) {
	filePath := writeTestFile(t, nil)

	reader, err := NewLogReader(testReaderConfig(filePath))
	require.NoError(t, err)
	defer reader.Close()

	record, err := reader.ReadNext()
	assert.ErrorIs(t, err, io.EOF)
	assert.Nil(t, record)

	// EOF is stable
	_, err = reader.ReadNext()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLogReader_ReadNext(t *testing.T) {
	data, each := testRecords(t, 3)
	filePath := writeTestFile(t, data)

	reader, err := NewLogReader(testReaderConfig(filePath))
	require.NoError(t, err)
	defer reader.Close()

	var offset int64
	for i := 0; i < 3; i++ {
		record, err := reader.ReadNext()
		require.NoError(t, err)
		assert.Equal(t, uint8(i), record.Header.Counter)
		assert.Equal(t, "ECU1", record.EcuID())
		assert.Equal(t, "APP", record.Extended.AppID)
		assert.Equal(t, fmt.Sprintf("message-%d %d", i, i), record.Payload.String())

		assert.Equal(t, offset, reader.RecordOffset())
		offset += int64(len(each[i]))
		assert.Equal(t, offset, reader.Offset())
	}

	_, err = reader.ReadNext()
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, Stats{Records: 3, Bytes: int64(len(data))}, reader.Stats())
}

func TestLogReader_Resync(t *testing.T) {
	_, each := testRecords(t, 2)

	var data []byte
	data = append(data, "xxDLxx"...)
	data = append(data, each[0]...)
	data = append(data, "junk"...)
	data = append(data, each[1]...)
	data = append(data, "DL"...)

	reader, err := NewStreamReader(bytes.NewReader(data), testReaderConfig(""))
	require.NoError(t, err)
	defer reader.Close()

	records, errs := readAll(t, reader)
	assert.Empty(t, errs)
	require.Len(t, records, 2)
	assert.Equal(t, uint8(0), records[0].Header.Counter)
	assert.Equal(t, uint8(1), records[1].Header.Counter)

	stats := reader.Stats()
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(2), stats.Resyncs)
	assert.Equal(t, int64(12), stats.SkippedBytes)
	assert.Equal(t, int64(len(data)), reader.Offset())
}

func TestLogReader_BadMagicWithoutResync(t *testing.T) {
	data, _ := testRecords(t, 1)
	data = append([]byte("XXXX"), data...)

	config := testReaderConfig("")
	config.Resync = false
	reader, err := NewStreamReader(bytes.NewReader(data), config)
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.ReadNext()
	assert.ErrorIs(t, err, codec.ErrBadMagic)

	var re *RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, int64(0), re.Offset)

	// the stream cannot make progress
	_, again := reader.ReadNext()
	assert.Equal(t, err, again)
	assert.Equal(t, int64(1), reader.Stats().Errors)
}

func TestLogReader_TruncatedTail(t *testing.T) {
	_, each := testRecords(t, 2)

	tests := []struct {
		name string
		tail int
	}{
		{"inside headers", 10},
		{"inside payload", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(append([]byte{}, each[0]...), each[1][:tt.tail]...)
			reader, err := NewStreamReader(bytes.NewReader(data), testReaderConfig(""))
			require.NoError(t, err)
			defer reader.Close()

			_, err = reader.ReadNext()
			require.NoError(t, err)

			_, err = reader.ReadNext()
			assert.ErrorIs(t, err, ErrCorruption)
			var re *RecordError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, int64(len(each[0])), re.Offset)

			_, err = reader.ReadNext()
			assert.ErrorIs(t, err, io.EOF)
			assert.Equal(t, int64(len(data)), reader.Offset())
		})
	}
}

func TestLogReader_UndecodableRecordIsSkipped(t *testing.T) {
	_, each := testRecords(t, 2)
	bad := append([]byte{}, each[0]...)
	bad[noarOffset] = 3

	data := append(bad, each[1]...)
	reader, err := NewStreamReader(bytes.NewReader(data), testReaderConfig(""))
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.ReadNext()
	assert.ErrorIs(t, err, codec.ErrArgumentCountMismatch)

	record, err := reader.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), record.Header.Counter)

	stats := reader.Stats()
	assert.Equal(t, int64(1), stats.Records)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(len(data)), stats.Bytes)
}

func TestLogReader_MaxRecordSize(t *testing.T) {
	data, each := testRecords(t, 2)

	t.Run("skips whole records", func(t *testing.T) {
		config := testReaderConfig("")
		config.Resync = false
		config.MaxRecordSize = 30

		reader, err := NewStreamReader(bytes.NewReader(data), config)
		require.NoError(t, err)
		defer reader.Close()

		records, errs := readAll(t, reader)
		assert.Empty(t, records)
		require.Len(t, errs, 2)
		assert.ErrorIs(t, errs[0], ErrRecordTooLarge)
		assert.Equal(t, int64(len(data)), reader.Stats().SkippedBytes)
	})

	t.Run("allows records within the limit", func(t *testing.T) {
		config := testReaderConfig("")
		config.MaxRecordSize = len(each[0])

		reader, err := NewStreamReader(bytes.NewReader(data), config)
		require.NoError(t, err)
		defer reader.Close()

		records, errs := readAll(t, reader)
		assert.Empty(t, errs)
		assert.Len(t, records, 2)
	})
}

func TestLogReader_LittleEndianPayload(t *testing.T) {
	rec := testRecord(7, "le")
	data, err := rec.Encode(codec.LittleEndian)
	require.NoError(t, err)

	config := testReaderConfig("")
	config.Options.DefaultEndianness = codec.LittleEndian
	reader, err := NewStreamReader(bytes.NewReader(data), config)
	require.NoError(t, err)
	defer reader.Close()

	record, err := reader.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, codec.LittleEndian, record.Order)
	assert.Equal(t, "le 7", record.Payload.String())
}

func TestLogReader_Compressed(t *testing.T) {
	for _, compression := range []Compression{CompressionGzip, CompressionZstd, CompressionLZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			tmpDir, err := os.MkdirTemp("", "log_reader_compressed_test")
			require.NoError(t, err)
			defer os.RemoveAll(tmpDir)

			filePath := filepath.Join(tmpDir, "test.dlt."+compression.String())
			writer, err := NewLogWriter(LogWriterConfig{FilePath: filePath, Compression: compression})
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				_, err := writer.Append(testRecord(uint8(i), "compressed"))
				require.NoError(t, err)
			}
			require.NoError(t, writer.Close())

			reader, err := NewLogReader(testReaderConfig(filePath))
			require.NoError(t, err)
			defer reader.Close()

			records, errs := readAll(t, reader)
			assert.Empty(t, errs)
			require.Len(t, records, 3)
			assert.Equal(t, uint8(2), records[2].Header.Counter)
		})
	}
}

func TestLogReader_Iterator(t *testing.T) {
	data, _ := testRecords(t, 4)
	filePath := writeTestFile(t, data)

	reader, err := NewLogReader(testReaderConfig(filePath))
	require.NoError(t, err)
	defer reader.Close()

	iter := reader.Iterator()
	defer iter.Close()

	count := 0
	for iter.Next() {
		assert.Equal(t, uint8(count), iter.Record().Header.Counter)
		count++
	}
	assert.NoError(t, iter.Err())
	assert.Equal(t, 4, count)
	assert.False(t, iter.Next())
}

func TestLogReader_IteratorStopsOnError(t *testing.T) {
	_, each := testRecords(t, 2)
	bad := append([]byte{}, each[1]...)
	bad[noarOffset] = 9

	reader, err := NewStreamReader(bytes.NewReader(append(append([]byte{}, each[0]...), bad...)), testReaderConfig(""))
	require.NoError(t, err)
	defer reader.Close()

	iter := reader.Iterator()
	assert.True(t, iter.Next())
	assert.False(t, iter.Next())
	assert.ErrorIs(t, iter.Err(), codec.ErrArgumentCountMismatch)
}

func TestLogReader_Close(t *testing.T) {
	data, _ := testRecords(t, 1)
	filePath := writeTestFile(t, data)

	reader, err := NewLogReader(testReaderConfig(filePath))
	require.NoError(t, err)

	require.NoError(t, reader.Close())
	assert.NoError(t, reader.Close())

	_, err = reader.ReadNext()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"GZIP", CompressionGzip, false},
		{"zst", CompressionZstd, false},
		{"lz4", CompressionLZ4, false},
		{"brotli", CompressionNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompression(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func BenchmarkLogReader_ReadNext(b *testing.B) {
	data, _ := testRecords(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reader, err := NewStreamReader(bytes.NewReader(data), testReaderConfig(""))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := reader.ReadNext(); err != nil {
				break
			}
		}
		reader.Close()
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&RecordError{Err: fmt.Errorf("%w: tail", ErrCorruption)}, "corruption"},
		{&RecordError{Err: &codec.BadMagicError{}}, "bad_magic"},
		{&codec.TypeInfoError{Kind: codec.ErrUnsupportedLength}, "unsupported_length"},
		{&codec.EncodingError{Charset: "ascii"}, "encoding_failure"},
		{&codec.TruncatedError{}, "truncated"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
