// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/dltview/pkg/storage"
)

// ArchiveCloser is an archive the caller must close
type ArchiveCloser interface {
	RecordArchive
	Close() error
}

// ArchiveFactory opens record archives
type ArchiveFactory interface {
	// OpenArchive opens or creates the archive described by config
	OpenArchive(config storage.ArchiveConfig) (ArchiveCloser, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled. archive may be nil.
	StartServer(ctx context.Context, archive RecordArchive, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
