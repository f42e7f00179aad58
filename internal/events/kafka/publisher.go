package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/custom-token-ledger/internal/interfaces"
)

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for brokers. The topic is chosen per
// message. compression is one of none, gzip, snappy, lz4 or zstd.
func NewPublisher(brokers []string, compression string) (*Publisher, error) {
	codec, err := ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			Compression:  codec,
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}, nil
}

// Publish writes event as JSON. Messages sharing a key land on the same
// partition, so notifications of one transaction stay in order.
func (p *Publisher) Publish(ctx context.Context, topic string, key string, event any) error {
	msg, err := NewMessage(topic, key, event)
	if err != nil {
		return err
	}
	return errors.Wrapf(p.writer.WriteMessages(ctx, msg), "publish to %s", topic)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NewMessage encodes event into a kafka message.
func NewMessage(topic, key string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "encode event")
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}, nil
}

// ParseCompression maps a codec name to its kafka-go value.
func ParseCompression(name string) (kafka.Compression, error) {
	switch name {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, errors.Errorf("unknown kafka compression %q", name)
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
