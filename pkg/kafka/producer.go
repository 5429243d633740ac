package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	appcontext "github.com/Ramsey-B/thistle/pkg/context"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// SchemaVersion is stamped on every published envelope.
const SchemaVersion = "1.0"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes screening events
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compressionCodec(cfg.Compression),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	}
	return kafka.Snappy
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Envelope wraps every screening event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SchemaVersion string          `json:"schema_version"`
	GroupID       *int64          `json:"group_id,omitempty"`
	RunID         string          `json:"run_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// Key partitions events by group so a group's events stay ordered.
func (e *Envelope) Key() string {
	if e.GroupID != nil {
		return fmt.Sprintf("group-%d", *e.GroupID)
	}
	return e.EventID
}

// Publish writes one envelope, filling in id, version, run id and timestamp when unset.
func (p *Producer) Publish(ctx context.Context, envelope *Envelope) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish")
	defer span.End()

	if envelope.EventID == "" {
		envelope.EventID = uuid.NewString()
	}
	if envelope.SchemaVersion == "" {
		envelope.SchemaVersion = SchemaVersion
	}
	if envelope.RunID == "" {
		envelope.RunID = appcontext.GetRunID(ctx)
	}
	if envelope.Timestamp.IsZero() {
		envelope.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", envelope.EventType, err)
	}

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(envelope.EventType)},
		{Key: "schema_version", Value: []byte(envelope.SchemaVersion)},
	}
	if tp := tracing.GetTraceParent(ctx); tp != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(tp)})
	}

	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(envelope.Key()),
		Value:   data,
		Headers: headers,
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": envelope.EventType,
		"event_id":   envelope.EventID,
	})

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to publish event")
		return err
	}

	log.Debug("Published event")
	return nil
}
