package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"buildwatch-agent/src/logger"
)

// pingTimeout bounds the reachability check made when the broker is opened.
const pingTimeout = 5 * time.Second

// RedpandaBroker is a Broker on Redpanda (or any Kafka cluster) using
// franz-go. Watch requests and results are keyed by request ID, so every
// message about one request lands on the same partition and stays ordered.
type RedpandaBroker struct {
	producer  *kgo.Client
	seeds     []string
	mu        sync.Mutex
	consumers map[string]*kgo.Client // "topic:group" -> consumer client
	closed    bool
	log       logger.Logger
}

// NewRedpandaBroker connects to the seed brokers (e.g. ["localhost:19092"])
// and fails if none of them answers.
func NewRedpandaBroker(seeds []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}

	producer, err := kgo.NewClient(clientOpts(seeds,
		kgo.AllowAutoTopicCreation(),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := producer.Ping(ctx); err != nil {
		producer.Close()
		return nil, fmt.Errorf("no Redpanda broker reachable at %v: %w", seeds, err)
	}

	return &RedpandaBroker{
		producer:  producer,
		seeds:     seeds,
		consumers: make(map[string]*kgo.Client),
		log:       log,
	}, nil
}

func clientOpts(seeds []string, extra ...kgo.Opt) []kgo.Opt {
	return append([]kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.ClientID("buildwatch"),
	}, extra...)
}

// Publish produces value to topic and waits for the broker to acknowledge it.
// The key is also sent as a header so consumers see the same metadata as on
// NATS.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("broker is closed")
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if key != "" {
		record.Headers = []kgo.RecordHeader{{Key: keyHeader, Value: []byte(key)}}
	}

	if err := b.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	b.log.Debug("[RedpandaBroker] Published %s to %s (%d bytes)", key, topic, len(value))
	return nil
}

// Subscribe joins consumer group groupID on topic. A new group starts from
// the earliest offset, so a request published before the agent was running
// is still picked up. The consumer is closed and forgotten when ctx is done.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	consumerKey := topic + ":" + groupID
	if _, exists := b.consumers[consumerKey]; exists {
		return nil, fmt.Errorf("consumer already exists for topic %s and group %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(clientOpts(b.seeds,
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", topic, err)
	}
	b.consumers[consumerKey] = consumer

	out := make(chan Message, 100)
	go func() {
		defer close(out)
		defer b.release(consumerKey, consumer)
		b.consume(ctx, consumer, out)
	}()

	return out, nil
}

func (b *RedpandaBroker) consume(ctx context.Context, consumer *kgo.Client, out chan<- Message) {
	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			b.log.Error("[RedpandaBroker] Fetch error on %s/%d: %v", topic, partition, err)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			select {
			case out <- toMessage(iter.Next()):
			case <-ctx.Done():
				return
			}
		}
	}
}

// release closes a consumer whose subscription has ended, unless Close has
// already done so.
func (b *RedpandaBroker) release(consumerKey string, consumer *kgo.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumers[consumerKey] == consumer {
		delete(b.consumers, consumerKey)
		consumer.Close()
	}
}

func toMessage(record *kgo.Record) Message {
	key := string(record.Key)
	if key == "" {
		for _, h := range record.Headers {
			if h.Key == keyHeader {
				key = string(h.Value)
				break
			}
		}
	}
	return Message{
		Topic:     record.Topic,
		Key:       key,
		Value:     record.Value,
		Offset:    record.Offset,
		Partition: record.Partition,
		Timestamp: record.Timestamp.UnixMilli(),
	}
}

// Close shuts down every consumer and then the producer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for key, consumer := range b.consumers {
		consumer.Close()
		delete(b.consumers, key)
	}
	b.producer.Close()
	return nil
}
