// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/ssargent/dltview/pkg/storage"
)

// DefaultArchiveFactory opens pebble-backed archives
type DefaultArchiveFactory struct{}

// NewArchiveFactory creates a new archive factory
func NewArchiveFactory() ArchiveFactory {
	return &DefaultArchiveFactory{}
}

// OpenArchive opens the archive in config.DataDir
func (f *DefaultArchiveFactory) OpenArchive(config storage.ArchiveConfig) (ArchiveCloser, error) {
	archive, err := storage.NewArchive(config)
	if err != nil {
		return nil, err
	}
	return archive, nil
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, archive RecordArchive, config ServerConfig) error {
	return StartServer(ctx, archive, config)
}
