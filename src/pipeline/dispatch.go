package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buildwatch-agent/src/broker"
	"buildwatch-agent/src/contracts"
	"buildwatch-agent/src/store"
)

// Dispatcher hands requests to watch agents over the broker and reads their
// state back from the store.
type Dispatcher struct {
	broker broker.Broker
	store  store.Store
}

// NewDispatcher creates a Dispatcher. Closing the broker and store stays with
// the caller.
func NewDispatcher(brk broker.Broker, st store.Store) *Dispatcher {
	return &Dispatcher{broker: brk, store: st}
}

// Submit publishes req and records it as pending. An empty RequestID is
// filled in. The request ID is returned.
func (d *Dispatcher) Submit(ctx context.Context, req contracts.WatchRequest) (string, error) {
	if req.Target == "" {
		return "", fmt.Errorf("build target is required")
	}
	if req.RequestID == "" {
		req.RequestID = contracts.NewRequestID()
	}
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Record before publishing so a fast agent never races the insert.
	if err := d.store.CreateRequest(ctx, req.RequestID, req.Provider, req.Target); err != nil {
		return "", fmt.Errorf("failed to create request record: %w", err)
	}

	if err := d.broker.Publish(ctx, contracts.TopicWatchRequests, req.RequestID, data); err != nil {
		return "", fmt.Errorf("failed to publish request: %w", err)
	}

	return req.RequestID, nil
}

// Status returns the stored record for requestID.
func (d *Dispatcher) Status(ctx context.Context, requestID string) (*contracts.WatchRecord, error) {
	return d.store.GetRequest(ctx, requestID)
}

// Recent returns the newest requests.
func (d *Dispatcher) Recent(ctx context.Context, limit int) ([]contracts.WatchRecord, error) {
	return d.store.ListRecent(ctx, limit)
}

// Results subscribes to watch events under a private consumer group. Subscribe
// before calling Submit so that no event is missed.
func (d *Dispatcher) Results(ctx context.Context) (<-chan contracts.WatchEvent, error) {
	msgChan, err := d.broker.Subscribe(ctx, contracts.TopicWatchResults, "buildwatch-client-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to results: %w", err)
	}

	events := make(chan contracts.WatchEvent, 16)
	go func() {
		defer close(events)
		for msg := range msgChan {
			var event contracts.WatchEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// Await returns the first event for requestID from events.
func Await(ctx context.Context, events <-chan contracts.WatchEvent, requestID string) (*contracts.WatchEvent, error) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil, fmt.Errorf("result stream closed before %s finished", requestID)
			}
			if event.RequestID == requestID {
				return &event, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
