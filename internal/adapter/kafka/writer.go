package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/config"
	"github.com/couchcryptid/ws-deviation-dashboard/internal/domain"
)

// Writer publishes table refresh notifications. The seed tool uses it to
// announce a rebuilt local warehouse to running dashboards.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured refresh topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRefreshTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and sends refresh events in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, events ...domain.RefreshEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish refresh events: %w", err)
	}
	w.logger.Debug("refresh events published", "count", len(events))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RefreshEvent into a Kafka message keyed by
// table so refreshes of one table stay ordered on a partition.
func serializeToMessage(event domain.RefreshEvent) (kafkago.Message, error) {
	if err := event.Validate(); err != nil {
		return kafkago.Message{}, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize refresh event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Table),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "table", Value: []byte(event.Table)},
			{Key: "refreshed_at", Value: []byte(event.RefreshedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
