package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/domain/models"
)

// messageWriter is the subset of *kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every entry to a topic keyed by tenant, so a tenant's
// entries stay ordered within one partition. Retention is left to the topic.
type KafkaSink struct {
	writer messageWriter
}

// NewKafkaSink creates a sink writing to cfg.Topic.
func NewKafkaSink(cfg config.KafkaConfig) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
	}
	return &KafkaSink{writer: writer}
}

func (k *KafkaSink) Name() string { return config.SinkKafka }

func (k *KafkaSink) Write(ctx context.Context, entry *models.AuditEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.TenantID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "request_id", Value: []byte(entry.RequestID)},
			{Key: "decision", Value: []byte(entry.Decision)},
		},
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
