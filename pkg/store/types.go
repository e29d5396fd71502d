package store

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ssargent/dltview/pkg/codec"
)

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string           // Path to the output DLT file
	FsyncInterval time.Duration    // How often to fsync (0 = every write)
	BufferSize    int              // Write buffer size
	Order         codec.Endianness // Payload byte order for encoded records (unset = big)
	Compression   Compression      // Output compression; compressed files are truncated on open
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath    string // Path to the DLT file, optionally gzip, zstd or lz4 compressed
	StartOffset int64  // Offset to start reading from, in decompressed bytes

	Options       codec.Options
	Resync        bool // Scan forward to the next storage header on bad magic
	MaxRecordSize int  // Upper bound on storage header + LEN (0 = no bound beyond LEN)
	Logger        *slog.Logger
}

// Stats counts what a reader has seen so far.
type Stats struct {
	Records      int64 `json:"records"`
	Bytes        int64 `json:"bytes"`
	SkippedBytes int64 `json:"skipped_bytes"`
	Resyncs      int64 `json:"resyncs"`
	Errors       int64 `json:"errors"`
}

// RecordIterator provides streaming access to records
type RecordIterator interface {
	Next() bool
	Record() *codec.Record
	Err() error
	Close() error
}

// Errors
var (
	ErrCorruption     = errors.New("data corruption detected")
	ErrRecordTooLarge = errors.New("record exceeds maximum size")
	ErrClosed         = errors.New("store closed")
)

// RecordError reports a record that was consumed from the stream but could
// not be decoded. Reading may continue with the next record.
type RecordError struct {
	Offset int64 // Stream offset of the storage header
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record at offset %d: %v", e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrCorruption, "corruption"},
	{ErrRecordTooLarge, "record_too_large"},
	{codec.ErrTruncated, "truncated"},
	{codec.ErrBadMagic, "bad_magic"},
	{codec.ErrBadLength, "bad_length"},
	{codec.ErrUnsupportedType, "unsupported_type"},
	{codec.ErrUnsupportedLength, "unsupported_length"},
	{codec.ErrUnsupportedStringCoding, "unsupported_string_coding"},
	{codec.ErrUnsupportedContentType, "unsupported_content_type"},
	{codec.ErrStringTooLong, "string_too_long"},
	{codec.ErrEcuIDTooLong, "ecu_id_too_long"},
	{codec.ErrEndianUnknown, "endian_unknown"},
	{codec.ErrArgumentCountMismatch, "argument_count_mismatch"},
	{codec.ErrTrailingBytes, "trailing_bytes"},
	{codec.ErrEncodingFailure, "encoding_failure"},
	{codec.ErrFieldRange, "field_range"},
}

// ErrorKind names the failure class of err for metrics and summaries.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}
