// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/dltview/pkg/api" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	archiveFactory api.ArchiveFactory
	serverFactory  api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		archiveFactory: api.NewArchiveFactory(),
		serverFactory:  api.NewServerFactory(),
	}
}

// GetArchiveFactory returns the archive factory
func (c *Container) GetArchiveFactory() api.ArchiveFactory {
	return c.archiveFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetArchiveFactory allows overriding the archive factory (for testing)
func (c *Container) SetArchiveFactory(factory api.ArchiveFactory) {
	c.archiveFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
