// Package redpanda publishes conversation analytics events to a
// Kafka-compatible broker.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-assistant/internal/adapter/observability"
	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// producer is the subset of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher implements domain.EventPublisher on top of franz-go.
type Publisher struct {
	client producer
	topic  string
	now    func() time.Time
}

var _ domain.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to brokers, ensures topic exists and returns a
// Publisher. Topic creation failures are logged, not returned, since the
// topic may be managed outside the service.
func NewPublisher(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=events.NewPublisher: no seed brokers provided")
	}
	if topic == "" {
		return nil, fmt.Errorf("op=events.NewPublisher: %w", domain.ErrInvalidArgument)
	}
	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	k := kotel.NewKotel(kotel.WithTracer(tracer))
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequestRetries(5),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.DialTimeout(10*time.Second),
		kgo.WithHooks(k.Hooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("op=events.NewPublisher: %w", err)
	}
	if err := ensureTopic(ctx, client, topic, 1, 1); err != nil {
		slog.Warn("failed to ensure events topic", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("events publisher ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return newPublisher(client, topic), nil
}

func newPublisher(client producer, topic string) *Publisher {
	return &Publisher{client: client, topic: topic, now: time.Now}
}

// Publish writes e keyed by session id so a session's events stay ordered.
func (p *Publisher) Publish(ctx domain.Context, e domain.ConversationEvent) error {
	if e.Type == "" {
		return fmt.Errorf("op=events.Publish: %w", domain.ErrInvalidArgument)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		observability.EventPublished(e.Type, "error")
		return fmt.Errorf("op=events.Publish: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.SessionID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		observability.EventPublished(e.Type, "error")
		return fmt.Errorf("op=events.Publish: %w", err)
	}
	observability.EventPublished(e.Type, "ok")
	return nil
}

// Close flushes and closes the underlying client.
func (p *Publisher) Close() {
	if p != nil && p.client != nil {
		p.client.Close()
	}
}
