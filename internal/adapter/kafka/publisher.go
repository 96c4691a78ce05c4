// Package kafka publishes completed recommendation runs to the event stream.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/skyflick/skyflick/internal/config"
	"github.com/skyflick/skyflick/internal/domain"
)

// Publisher produces recommendation events to a Kafka topic.
// It implements pipeline.EventPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured events topic.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes one recommendation event.
func (p *Publisher) Publish(ctx context.Context, event domain.RecommendationEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a RecommendationEvent into a Kafka message
// keyed by run ID.
func serializeToMessage(event domain.RecommendationEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize recommendation event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "grid", Value: []byte(fmt.Sprintf("%d,%d", event.Grid.X, event.Grid.Y))},
			{Key: "created_at", Value: []byte(event.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
