package api

import (
	"context"
	"log/slog"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/dltview/pkg/codec"
	"github.com/ssargent/dltview/pkg/storage"
	"github.com/ssargent/dltview/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind          string
	Port          int
	APIKey        string // Empty disables the X-API-Key check
	MaxUploadSize int64  // Request body limit for decode endpoints (0 = unlimited)

	Codec         codec.Options
	Resync        bool
	MaxRecordSize int

	Logger *slog.Logger
}

// RecordArchive is the subset of storage.Archive the server needs
type RecordArchive interface {
	Put(rec codec.Record) (ksuid.KSUID, error)
	Get(id ksuid.KSUID) (codec.Record, error)
	GetEncoded(id ksuid.KSUID) ([]byte, error)
	Scan(ctx context.Context, so storage.ScanOptions, fn func(id ksuid.KSUID, data []byte) error) error
	Count(ctx context.Context) (int, error)
}

// DecodeResponse is the result of decoding an uploaded DLT stream
type DecodeResponse struct {
	Records   []RecordView      `json:"records"`
	Errors    []DecodeErrorView `json:"errors,omitempty"`
	Stats     store.Stats       `json:"stats"`
	Truncated bool              `json:"truncated"` // stopped at the record limit
	Filtered  int64             `json:"filtered,omitempty"`
}

// DecodeErrorView describes one record that could not be decoded
type DecodeErrorView struct {
	Offset  int64  `json:"offset"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ArgumentsResponse is the result of decoding a verbose payload
type ArgumentsResponse struct {
	Arguments []ArgumentView `json:"arguments"`
	Consumed  int            `json:"consumed"`
}
