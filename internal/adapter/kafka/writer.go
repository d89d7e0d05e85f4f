package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/config"
	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the alert writer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// AlertWriter publishes critical alerts to the configured alert topic.
// It implements pipeline.AlertPublisher.
type AlertWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// PublishAlerts serializes and publishes alerts in a single WriteMessages
// call. Alerts are keyed by individual so repeated alerts for the same
// person land on the same partition.
func (w *AlertWriter) PublishAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeAlert(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(alerts), err)
	}
	w.logger.Info("critical alerts published", "count", len(alerts))
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

func serializeAlert(alert domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.IndividualID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_category", Value: []byte(alert.Category)},
			{Key: "raised_at", Value: []byte(alert.RaisedAt.Format(time.RFC3339))},
		},
	}, nil
}
