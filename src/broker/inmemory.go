package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const inMemoryBuffer = 100

// InMemoryBroker is an in-process Broker. Every group subscribed to a topic
// gets each message once; subscribing again with the same group returns the
// group's existing channel.
type InMemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[string]chan Message // topic -> groupID -> channel
	done   chan struct{}
	closed bool
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		topics: make(map[string]map[string]chan Message),
		done:   make(chan struct{}),
	}
}

// Publish delivers the message to every group subscribed to topic. It
// blocks while a group's buffer is full, until ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UnixMilli(),
	}

	for _, ch := range b.topics[topic] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns the group's channel for topic, creating it if needed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	groups, ok := b.topics[topic]
	if !ok {
		groups = make(map[string]chan Message)
		b.topics[topic] = groups
	}
	if ch, ok := groups[groupID]; ok {
		return ch, nil
	}

	ch := make(chan Message, inMemoryBuffer)
	groups[groupID] = ch

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(topic, groupID, ch)
		case <-b.done:
		}
	}()

	return ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic, groupID string, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if groups, ok := b.topics[topic]; ok && groups[groupID] == ch {
		delete(groups, groupID)
		close(ch)
	}
}

// Close closes every subscriber channel. Further calls are no-ops.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)

	for _, groups := range b.topics {
		for _, ch := range groups {
			close(ch)
		}
	}
	b.topics = make(map[string]map[string]chan Message)
	return nil
}
