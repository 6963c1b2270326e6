package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"buildwatch-agent/src/logger"
)

// keyHeader carries the message key, which core NATS has no field for.
const keyHeader = "Buildwatch-Key"

// NATSBroker is a Broker on core NATS. Topics map to subjects and consumer
// groups map to queue groups. Delivery is at-most-once.
type NATSBroker struct {
	conn   *nats.Conn
	mu     sync.Mutex
	subs   []*nats.Subscription
	done   chan struct{}
	closed bool
	log    logger.Logger
}

// NewNATSBroker connects to the NATS server at url.
func NewNATSBroker(url string, log logger.Logger) (*NATSBroker, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}

	conn, err := nats.Connect(url,
		nats.Name("buildwatch"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Error("[NATSBroker] Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("[NATSBroker] Reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return &NATSBroker{conn: conn, done: make(chan struct{}), log: log}, nil
}

// Publish sends value on the topic subject with the key in a header.
func (b *NATSBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := nats.NewMsg(topic)
	msg.Data = value
	if key != "" {
		msg.Header.Set(keyHeader, key)
	}

	if err := b.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins the queue group groupID on the topic subject.
func (b *NATSBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	natsChan := make(chan *nats.Msg, 100)
	sub, err := b.conn.ChanQueueSubscribe(topic, groupID, natsChan)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	b.subs = append(b.subs, sub)

	msgChan := make(chan Message, 100)
	go func() {
		defer close(msgChan)
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case m := <-natsChan:
				msg := Message{
					Topic:     m.Subject,
					Value:     m.Data,
					Timestamp: time.Now().UnixMilli(),
				}
				if m.Header != nil {
					msg.Key = m.Header.Get(keyHeader)
				}
				select {
				case msgChan <- msg:
				case <-ctx.Done():
					return
				case <-b.done:
					return
				}
			}
		}
	}()

	return msgChan, nil
}

// Close drains subscriptions and closes the connection.
func (b *NATSBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	b.conn.Close()
	return nil
}
