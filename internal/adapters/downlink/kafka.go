package downlink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/metrics"
)

const transportKafka = "kafka"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event to a topic keyed by event id.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafka builds a synchronous writer for topic on brokers.
func NewKafka(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return newKafka(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Async:        false,
	}), nil
}

func newKafka(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e model.Event) error {
	payload, err := Encode(e)
	if err != nil {
		metrics.RecordDownlinkError(transportKafka)
		return err
	}
	msg := kafka.Message{Key: []byte(e.ID.String()), Value: payload, Time: e.Timestamp}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		metrics.RecordDownlinkError(transportKafka)
		return fmt.Errorf("kafka publish: %w", err)
	}
	metrics.RecordDownlinkSent(transportKafka)
	return nil
}

// Name identifies the transport in logs.
func (p *KafkaPublisher) Name() string { return transportKafka }

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
