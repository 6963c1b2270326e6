// Package store provides an in-memory store implementation.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"buildwatch-agent/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing and for running without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*contracts.WatchRecord
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*contracts.WatchRecord),
		now:      time.Now,
	}
}

// CreateRequest creates a new watch request record.
func (s *MemoryStore) CreateRequest(ctx context.Context, requestID, providerName, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[requestID]; exists {
		return nil
	}

	s.requests[requestID] = &contracts.WatchRecord{
		RequestID: requestID,
		Provider:  providerName,
		Target:    target,
		Status:    contracts.StatusPending,
		CreatedAt: s.now(),
	}

	return nil
}

// UpdateStatus updates the status of a request.
func (s *MemoryStore) UpdateStatus(ctx context.Context, requestID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.requests[requestID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	record.Status = status
	return nil
}

// CompleteRequest stores the final outcome of a request.
func (s *MemoryStore) CompleteRequest(ctx context.Context, event contracts.WatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.requests[event.RequestID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, event.RequestID)
	}

	completedAt := s.now()
	record.Status = completedStatus(event)
	record.Outcome = event.Outcome
	record.Succeeded = event.Succeeded
	record.DiagnosticLine = event.DiagnosticLine
	record.Polls = event.Polls
	record.ElapsedSeconds = event.ElapsedSeconds
	record.Error = event.Error
	record.CompletedAt = &completedAt
	return nil
}

// GetRequest returns one request.
func (s *MemoryStore) GetRequest(ctx context.Context, requestID string) (*contracts.WatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.requests[requestID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	// Return a copy
	recordCopy := *record
	return &recordCopy, nil
}

// ListRecent returns up to limit requests, newest first.
func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]contracts.WatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]contracts.WatchRecord, 0, len(s.requests))
	for _, record := range s.requests {
		records = append(records, *record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].RequestID > records[j].RequestID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
