package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"spiresync/internal/config"
	"spiresync/internal/events"
	"spiresync/internal/logger"

	"github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes sync requests for the worker. It is the dispatcher
// used when SYNC_TRIGGER=kafka.
type Producer struct {
	writer MessageWriter
	source string
	logger *logger.Logger
}

func NewProducer(cfg *config.Config, source string, logger *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSyncTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewProducerWithWriter(writer, source, logger)
}

func NewProducerWithWriter(writer MessageWriter, source string, logger *logger.Logger) *Producer {
	return &Producer{writer: writer, source: source, logger: logger}
}

// Dispatch publishes an inventory.sync.requested event keyed by run key so
// requests for one brand stay ordered on a partition.
func (p *Producer) Dispatch(ctx context.Context, runKey string) error {
	event := events.NewSyncRequested(runKey, p.source)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(runKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.WithField("event_id", event.ID).Error("Failed to publish %s: %v", event.Type, err)
		return err
	}

	p.logger.WithField("event_id", event.ID).Info("Published %s for %s", event.Type, runKey)
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
