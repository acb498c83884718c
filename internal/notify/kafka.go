package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type KafkaNotifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	logger.Info("kafka notifier initialized", "brokers", brokers, "topic", topic)
	return &KafkaNotifier{writer: writer, logger: logger}
}

// Publish emits one event keyed by owner so a consumer sees each
// customer's events in order.
func (n *KafkaNotifier) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OwnerID),
		Value: value,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.logger.Error("failed to publish event",
			"type", event.Type,
			"reference", event.Reference,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	n.logger.Debug("published event", "type", event.Type, "reference", event.Reference)
	return nil
}

func (n *KafkaNotifier) Close() error {
	if err := n.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	n.logger.Info("kafka notifier closed")
	return nil
}

var _ Notifier = (*KafkaNotifier)(nil)
