package broker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestTopicIsolation verifies subscribers on different topics do not receive wrong messages.
func TestTopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	chA, err := broker.Subscribe(ctx, "topic-a", "g")
	if err != nil {
		t.Fatalf("Subscribe to topic-a failed: %v", err)
	}
	chB, err := broker.Subscribe(ctx, "topic-b", "g")
	if err != nil {
		t.Fatalf("Subscribe to topic-b failed: %v", err)
	}

	// Publish to topic-a only
	testMsg := []byte("message for topic-a")
	if err := broker.Publish(ctx, "topic-a", "k", testMsg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case received := <-chA:
		if string(received.Value) != string(testMsg) {
			t.Errorf("Expected %q, got %q", testMsg, received.Value)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message on topic-a")
	}

	select {
	case msg := <-chB:
		t.Errorf("Topic B should not receive message, but got: %q", msg.Value)
	case <-time.After(100 * time.Millisecond):
		// Expected: no message received
	}
}

// TestSameGroupSharesChannel verifies a group is delivered each message once.
func TestSameGroupSharesChannel(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	ch1, _ := broker.Subscribe(ctx, "topic", "workers")
	ch2, _ := broker.Subscribe(ctx, "topic", "workers")
	if ch1 != ch2 {
		t.Fatal("Expected the same channel for the same group")
	}

	broker.Publish(ctx, "topic", "k", []byte("once"))

	<-ch1
	select {
	case msg := <-ch2:
		t.Errorf("Expected a single delivery, got extra %q", msg.Value)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestConcurrentPublishSubscribe verifies the mutex protects the subscriber map.
func TestConcurrentPublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	const publishers = 10
	const perPublisher = 5

	ch, err := broker.Subscribe(ctx, "concurrent", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				broker.Publish(ctx, "concurrent", fmt.Sprintf("%d", i), []byte("m"))
			}
			// Subscribing concurrently with publishing must be safe too.
			broker.Subscribe(ctx, fmt.Sprintf("other-%d", i), "g")
		}(i)
	}
	wg.Wait()

	received := 0
	for received < publishers*perPublisher {
		select {
		case <-ch:
			received++
		case <-time.After(1 * time.Second):
			t.Fatalf("Timeout after %d messages", received)
		}
	}
}

// TestCloseGracefulShutdown verifies broker.Close() closes all subscriber channels.
func TestCloseGracefulShutdown(t *testing.T) {
	broker := NewInMemoryBroker()
	ctx := context.Background()

	ch1, _ := broker.Subscribe(ctx, "topic-1", "g")
	ch2, _ := broker.Subscribe(ctx, "topic-2", "g")

	var wg sync.WaitGroup
	wg.Add(2)
	for _, ch := range []<-chan Message{ch1, ch2} {
		go func(ch <-chan Message) {
			defer wg.Done()
			for range ch {
				// Drain channel
			}
		}(ch)
	}

	if err := broker.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := broker.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout - goroutines did not exit, channels may not be closed")
	}
}

// TestSubscriptionEndsWithContext verifies cancelling the subscribe context closes the channel.
func TestSubscriptionEndsWithContext(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := broker.Subscribe(ctx, "topic", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Expected channel to be closed")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for channel to close")
	}

	// Publishing to a topic with no subscribers is fine.
	if err := broker.Publish(context.Background(), "topic", "k", []byte("v")); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
}
