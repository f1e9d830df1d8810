// Package client provides an interface to a running adverthide server and an
// HTTP/JSON implementation of it.
package client

import (
	"context"

	"github.com/alfredjeanlab/adverthide/internal/updater"
)

// Client is the interface CLI commands use to talk to a running server.
type Client interface {
	Health(ctx context.Context) error
	Status(ctx context.Context) (*updater.Status, error)
	// Tick asks the server to run one admin tick. It requires the server's
	// admin token.
	Tick(ctx context.Context) (*updater.Result, error)
	// StreamEvents follows the server's event stream until ctx is done.
	StreamEvents(ctx context.Context, topics []string, fn func(Event)) error
	Close() error
}
