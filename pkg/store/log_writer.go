package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/dltview/pkg/codec"
)

// LogWriter handles append-only writes of DLT records to a file
type LogWriter struct {
	file       *os.File
	writer     *bufio.Writer
	compressor flushWriteCloser // nil for plain files
	fsyncTimer *time.Timer
	config     LogWriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset, in uncompressed bytes
	closed     bool
}

// NewLogWriter creates a new log writer with the given configuration. Plain
// files are appended to; compressed files are truncated.
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	flags := os.O_CREATE | os.O_WRONLY
	if config.Compression != CompressionNone {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(config.FilePath, flags, 0600)
	if err != nil {
		return nil, err
	}

	// Seek to end for append behavior
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, err
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = readBufferSize
	}

	writer := &LogWriter{
		file:   file,
		config: config,
		offset: end,
	}

	var sink io.Writer = file
	if config.Compression != CompressionNone {
		writer.compressor, err = compress(file, config.Compression)
		if err != nil {
			file.Close()
			return nil, err
		}
		sink = writer.compressor
	}
	writer.writer = bufio.NewWriterSize(sink, bufferSize)

	// Set up fsync timer if interval is configured
	if config.FsyncInterval > 0 {
		writer.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			writer.mutex.Lock()
			defer writer.mutex.Unlock()
			if !writer.closed {
				writer.sync() // Ignore error in timer callback
			}
		})
	}

	return writer, nil
}

// Append encodes rec and appends it, returning the offset of its storage header
func (w *LogWriter) Append(rec codec.Record) (int64, error) {
	order := w.config.Order
	if order == codec.EndianUnset {
		order = codec.BigEndian
	}

	data, err := rec.Encode(order)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}
	return w.write(data)
}

// AppendEncoded appends one already encoded record. The bytes must decode as
// exactly one record under opts.
func (w *LogWriter) AppendEncoded(data []byte, opts codec.Options) (int64, error) {
	_, n, err := codec.DecodeRecord(data, opts)
	if err != nil {
		return 0, fmt.Errorf("invalid record: %w", err)
	}
	if n != len(data) {
		return 0, &codec.TrailingBytesError{Offset: n, N: len(data) - n}
	}
	return w.write(data)
}

func (w *LogWriter) write(data []byte) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	// Write to buffer
	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}

	// Calculate the offset where this record starts
	recordOffset := w.offset

	// Update offset
	w.offset += int64(n)

	// Sync immediately if no fsync interval configured
	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return recordOffset, nil
}

// Sync forces a fsync to disk
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.sync()
}

// sync flushes the buffer and the compressor, then fsyncs.
func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.compressor != nil {
		if err := w.compressor.Flush(); err != nil {
			return err
		}
	}
	return w.file.Sync()
}

// Close closes the log writer and ensures all data is synced
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	// Cancel fsync timer
	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	if w.compressor != nil {
		// writes the stream trailer
		if err := w.compressor.Close(); err != nil {
			w.file.Close()
			return err
		}
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}

	return w.file.Close()
}

// Size returns the number of record bytes written, including any existing content
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *LogWriter) Path() string {
	return w.config.FilePath
}
