package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects a stream container around DLT records.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression accepts none, gzip, zstd and lz4. The empty string is none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

// sniffCompression looks at the first bytes of br without consuming them.
func sniffCompression(br *bufio.Reader) Compression {
	head, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(head, lz4Magic):
		return CompressionLZ4
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// decompress wraps src according to c. The returned closer releases
// decoder state; it does not close src.
func decompress(src io.Reader, c Compression) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	switch c {
	case CompressionNone:
		return src, noop, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return zr, zr.Close, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		return dec, func() error { dec.Close(); return nil }, nil
	case CompressionLZ4:
		return lz4.NewReader(src), noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %s", c)
	}
}

// flushWriteCloser is the shape shared by the gzip, zstd and lz4 writers.
type flushWriteCloser interface {
	io.WriteCloser
	Flush() error
}

func compress(dst io.Writer, c Compression) (flushWriteCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriter(dst), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return enc, nil
	case CompressionLZ4:
		return lz4.NewWriter(dst), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}
