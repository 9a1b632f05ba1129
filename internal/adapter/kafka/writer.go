package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the adapter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces grid products to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer   messageWriter
	encoding string
	logger   *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Grid
// products are large, so the batch byte limit follows KAFKA_MAX_BYTES.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchBytes:   int64(cfg.KafkaMaxBytes),
	}
	return &Writer{writer: w, encoding: cfg.OutputCompression, logger: logger}
}

// LoadBatch serializes and publishes grid products in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, products []domain.GridProduct) error {
	if len(products) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(products))
	for i := range products {
		msg, err := serializeToMessage(products[i], w.encoding)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write grid products: %w", err)
	}
	w.logger.Debug("grid products written", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a GridProduct into a Kafka message keyed by
// product ID.
func serializeToMessage(p domain.GridProduct, encoding string) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize grid product: %w", err)
	}
	if encoding == "" {
		encoding = domain.EncodingNone
	}
	value, err := domain.EncodePayload(data, encoding)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize grid product: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: domain.HeaderSensorID, Value: []byte(p.SensorID)},
			{Key: domain.HeaderVolumeTime, Value: []byte(p.VolumeTime.UTC().Format(time.RFC3339))},
			{Key: domain.HeaderProcessedAt, Value: []byte(p.ProcessedAt.Format(time.RFC3339))},
			{Key: domain.HeaderContentEncoding, Value: []byte(encoding)},
		},
	}, nil
}
