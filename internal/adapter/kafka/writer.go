// Package kafka adapts the alert pipeline to its broker: a Reader for the
// inbound alert change feed and a Writer that publishes notification intents
// for the delivery workers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"hazardwatch/internal/domain"
)

// Writer publishes notification intents to the dispatch topic. It implements
// alert.Dispatcher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for the notification-intent topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Dispatch serializes and publishes one intent. Keyed by alert ID so all
// intents for one alert land on the same partition, keeping per-alert order
// for the delivery workers.
func (w *Writer) Dispatch(ctx context.Context, intent domain.NotificationIntent) error {
	msg, err := serializeIntent(intent)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeIntent marshals a NotificationIntent into a Kafka message.
func serializeIntent(intent domain.NotificationIntent) (kafkago.Message, error) {
	data, err := json.Marshal(intent)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification intent: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(intent.AlertID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "group_key", Value: []byte(intent.GroupKey)},
			{Key: "severity", Value: []byte(strconv.Itoa(intent.Severity))},
		},
	}, nil
}
