// Package events publishes ledger and faucet events to Kafka. Publishing is
// fire-and-forget: a broker outage degrades the event stream, never a ledger
// operation.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"devbank/internal/bank/models"
)

// DefaultTopic is the topic ledger events land on.
const DefaultTopic = "devbank.events"

const flushTimeout = 5 * time.Second

// Publisher emits events to a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

// NewPublisher connects to the brokers and ensures the topic exists.
func NewPublisher(ctx context.Context, brokers []string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	pub := &Publisher{
		topic:  DefaultTopic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(pub)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(pub.topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	pub.client = client

	if err := pub.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return pub, nil
}

func (p *Publisher) ensureTopic(ctx context.Context) error {
	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Emit produces the event asynchronously, keyed by address so per-account
// ordering survives partitioning. Failures are logged, not returned.
func (p *Publisher) Emit(ctx context.Context, event models.Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "event marshal failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Address),
		Value: value,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("event publish failed",
				"event_id", event.ID,
				"event_type", event.Type,
				"topic", r.Topic,
				"error", err,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("event flush on close failed", "error", err)
	}
	p.client.Close()
}

// NoopPublisher discards events. Used when no brokers are configured.
type NoopPublisher struct{}

// Emit discards the event.
func (NoopPublisher) Emit(context.Context, models.Event) {}
