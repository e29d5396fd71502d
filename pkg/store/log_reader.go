package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/logging"
)

const (
	readBufferSize = 64 << 10
	scanWindow     = 4096
	// offset of LEN from the start of a stored record
	lengthFieldOffset = codec.StorageHeaderSize + 5
	minRecordPeek     = codec.StorageHeaderSize + codec.BaseHeaderMinSize
)

// LogReader provides sequential access to records in a DLT file or stream
type LogReader struct {
	file    *os.File // nil for stream readers
	reader  *bufio.Reader
	release func() error
	codec   *codec.Codec
	offset  int64
	start   int64 // offset of the last record returned
	config  LogReaderConfig
	logger  *slog.Logger
	stats   Stats
	fatal   error
}

// NewLogReader opens the file named by config.FilePath. Compressed files are
// detected by their magic bytes.
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	r, err := NewStreamReader(file, config)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

// NewStreamReader reads records from src. Closing the reader does not close src.
func NewStreamReader(src io.Reader, config LogReaderConfig) (*LogReader, error) {
	br := bufio.NewReaderSize(src, readBufferSize)
	stream, release, err := decompress(br, sniffCompression(br))
	if err != nil {
		return nil, err
	}

	r := &LogReader{
		reader:  bufio.NewReaderSize(stream, readBufferSize),
		release: release,
		codec:   codec.NewCodec(config.Options),
		config:  config,
		logger:  logging.OrDiscard(config.Logger),
	}

	// Skip to start offset if specified
	if config.StartOffset > 0 {
		n, err := r.reader.Discard(int(config.StartOffset))
		r.offset = int64(n)
		if err != nil && !errors.Is(err, io.EOF) {
			release()
			return nil, err
		}
	}

	return r, nil
}

// ReadNext reads the next record from the current offset. It returns io.EOF
// at a clean end of stream. A *RecordError means the record was consumed but
// could not be decoded; the next call continues after it.
func (r *LogReader) ReadNext() (*codec.Record, error) {
	if r.reader == nil {
		return nil, ErrClosed
	}
	if r.fatal != nil {
		return nil, r.fatal
	}

	if err := r.syncToHeader(); err != nil {
		return nil, err
	}
	start := r.offset

	head, err := r.reader.Peek(minRecordPeek)
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.skip(len(head))
			return nil, r.recordError(start, fmt.Errorf("%w: %d trailing bytes", ErrCorruption, len(head)))
		}
		return nil, err
	}

	size := codec.StorageHeaderSize + int(binary.BigEndian.Uint16(head[lengthFieldOffset:]))
	if r.config.MaxRecordSize > 0 && size > r.config.MaxRecordSize {
		if r.config.Resync {
			// drop the magic so the next scan looks past this header
			r.skip(len(codec.Magic))
		} else {
			n, _ := r.reader.Discard(size)
			r.skip(n)
		}
		return nil, r.recordError(start, fmt.Errorf("%w: %d > %d", ErrRecordTooLarge, size, r.config.MaxRecordSize))
	}

	data := make([]byte, size)
	n, err := io.ReadFull(r.reader, data)
	r.offset += int64(n)
	r.stats.Bytes += int64(n)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, r.recordError(start, fmt.Errorf("%w: record needs %d bytes, got %d", ErrCorruption, size, n))
		}
		return nil, err
	}

	record, _, err := r.codec.DecodeRecord(data)
	if err != nil {
		return nil, r.recordError(start, err)
	}

	r.start = start
	r.stats.Records++
	return &record, nil
}

// syncToHeader positions the reader on a storage header. Without resync a
// bad magic is fatal for the stream.
func (r *LogReader) syncToHeader() error {
	var skipped int64
	for {
		head, err := r.reader.Peek(len(codec.Magic))
		if len(head) == len(codec.Magic) && bytes.Equal(head, codec.Magic[:]) {
			if skipped > 0 {
				r.stats.Resyncs++
				r.logger.Warn("resynchronized DLT stream", "offset", r.offset, "skipped", skipped)
			}
			return nil
		}
		if len(head) == 0 && errors.Is(err, io.EOF) {
			if skipped > 0 {
				r.logger.Warn("discarded trailing bytes without a storage header", "offset", r.offset, "skipped", skipped)
			}
			return io.EOF
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		if !r.config.Resync {
			if len(head) < len(codec.Magic) {
				// a short tail is reported by ReadNext as a truncated record
				return nil
			}
			r.stats.Errors++
			r.fatal = &RecordError{
				Offset: r.offset,
				Err:    &codec.BadMagicError{Found: bytes.Clone(head), Expected: codec.Magic[:]},
			}
			return r.fatal
		}

		window, werr := r.reader.Peek(scanWindow)
		if werr != nil && !errors.Is(werr, io.EOF) && !errors.Is(werr, bufio.ErrBufferFull) {
			return werr
		}
		var n int
		if idx := bytes.Index(window[1:], codec.Magic[:]); idx >= 0 {
			n = idx + 1
		} else if werr != nil {
			n = len(window)
		} else {
			n = len(window) - (len(codec.Magic) - 1)
		}
		r.skip(n)
		skipped += int64(n)
	}
}

func (r *LogReader) skip(n int) {
	if n <= 0 {
		return
	}
	d, _ := r.reader.Discard(n)
	r.offset += int64(d)
	r.stats.SkippedBytes += int64(d)
}

func (r *LogReader) recordError(offset int64, err error) error {
	r.stats.Errors++
	r.logger.Debug("failed to decode record", "offset", offset, "error", err)
	return &RecordError{Offset: offset, Err: err}
}

// Offset returns the current read offset
func (r *LogReader) Offset() int64 {
	return r.offset
}

// RecordOffset returns the offset of the record last returned by ReadNext.
func (r *LogReader) RecordOffset() int64 {
	return r.start
}

// Stats returns the counters accumulated so far.
func (r *LogReader) Stats() Stats {
	return r.stats
}

// Iterator returns a streaming iterator for records. Iteration stops at the
// end of the stream or at the first error, which Err reports.
func (r *LogReader) Iterator() RecordIterator {
	return &logRecordIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	if r.reader == nil {
		return nil
	}
	r.reader = nil

	err := r.release()
	if r.file != nil {
		err = errors.Join(err, r.file.Close())
	}
	return err
}

// logRecordIterator implements RecordIterator for streaming access
type logRecordIterator struct {
	reader *LogReader
	record *codec.Record
	err    error
}

func (it *logRecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.record, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logRecordIterator) Record() *codec.Record {
	return it.record
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (it *logRecordIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

func (it *logRecordIterator) Close() error {
	// Don't close the underlying reader as it's owned by the caller
	return nil
}
