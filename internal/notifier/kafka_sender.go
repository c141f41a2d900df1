package notifier

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/mq"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

// KafkaEnvelope is the JSON payload published to the notifications topic.
// Messages are keyed by event id so all notifications for one event land on
// the same partition.
type KafkaEnvelope struct {
	Type      string       `json:"type"`
	Timestamp string       `json:"timestamp"`
	Data      Notification `json:"data"`
}

// KafkaSender implements Sender by publishing notifications to a Kafka topic
// for downstream consumers (dashboards, SMS relays, audit trails).
type KafkaSender struct {
	writer      *kafka.Writer
	logger      *zap.Logger
	minSeverity types.Severity
}

// KafkaSenderConfig holds the configuration for creating a KafkaSender.
type KafkaSenderConfig struct {
	Brokers     []string
	Topic       string
	MinSeverity string
}

// NewKafkaSender creates a KafkaSender publishing to cfg.Topic.
func NewKafkaSender(logger *zap.Logger, cfg KafkaSenderConfig) *KafkaSender {
	minSev := types.Severity(cfg.MinSeverity)
	if !minSev.Valid() || minSev == types.SeverityNone {
		minSev = types.SeverityLow
	}
	return &KafkaSender{
		writer:      mq.NewWriter(cfg.Brokers, cfg.Topic),
		logger:      logger.Named("kafka-sender"),
		minSeverity: minSev,
	}
}

// Name implements Sender.
func (ks *KafkaSender) Name() string { return "kafka" }

// ShouldSend implements Sender.
func (ks *KafkaSender) ShouldSend(severity types.Severity) bool {
	return severity.Rank() >= ks.minSeverity.Rank()
}

// Start implements Sender. Publishing is synchronous; no workers needed.
func (ks *KafkaSender) Start(ctx context.Context) {
	ks.logger.Info("Kafka sender started", zap.String("min_severity", string(ks.minSeverity)))
}

// Close flushes pending messages and closes the underlying writer.
func (ks *KafkaSender) Close() error { return ks.writer.Close() }

// Send implements Sender. Publishes the notification keyed by event id.
func (ks *KafkaSender) Send(ctx context.Context, n Notification) error {
	envelope := KafkaEnvelope{
		Type:      "disaster-response.event.match",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      n,
	}
	if err := mq.PublishJSON(ctx, ks.writer, n.Event.ID, envelope); err != nil {
		kafkaPublishTotal.WithLabelValues("error").Inc()
		return err
	}
	kafkaPublishTotal.WithLabelValues("success").Inc()
	return nil
}
