package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sensorgrid/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one message per batch, keyed by batch ID.
type Kafka struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
	now    func() time.Time
}

func NewKafka(brokers []string, topic string, log *zap.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic must not be empty")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	return newKafka(w, topic, log), nil
}

func newKafka(w messageWriter, topic string, log *zap.Logger) *Kafka {
	if log == nil {
		log = zap.NewNop()
	}
	return &Kafka{
		writer: w,
		topic:  topic,
		log:    log.Named("kafka"),
		now:    time.Now,
	}
}

func (k *Kafka) Publish(ctx context.Context, batch *models.ReadingBatch) error {
	now := k.now()
	value, err := encode(batch, now)
	if err != nil {
		return fmt.Errorf("kafka: encode batch %s: %w", batch.ID, err)
	}

	msg := kafka.Message{Key: []byte(batch.ID), Value: value, Time: now}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", k.topic, err)
	}

	k.log.Debug("batch published", zap.String("topic", k.topic), zap.String("batch_id", batch.ID))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
