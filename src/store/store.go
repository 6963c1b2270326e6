// Package store defines the interface for persistent data storage.
package store

import (
	"context"
	"errors"

	"buildwatch-agent/src/contracts"
)

// ErrNotFound is returned (wrapped) for unknown request IDs.
var ErrNotFound = errors.New("request not found")

// Store persists watch requests and their outcomes.
type Store interface {
	// CreateRequest records a new request in the pending state. Creating an
	// existing request is a no-op.
	CreateRequest(ctx context.Context, requestID, providerName, target string) error

	// UpdateStatus moves a request to another status (e.g. watching).
	UpdateStatus(ctx context.Context, requestID, status string) error

	// CompleteRequest stores the final event of a request. Events with the
	// error outcome mark the request failed; all others mark it completed.
	CompleteRequest(ctx context.Context, event contracts.WatchEvent) error

	// GetRequest returns one request.
	GetRequest(ctx context.Context, requestID string) (*contracts.WatchRecord, error)

	// ListRecent returns up to limit requests, newest first.
	ListRecent(ctx context.Context, limit int) ([]contracts.WatchRecord, error)

	// Close closes the store connection
	Close() error
}

func completedStatus(event contracts.WatchEvent) string {
	if event.Outcome == contracts.OutcomeError {
		return contracts.StatusFailed
	}
	return contracts.StatusCompleted
}
