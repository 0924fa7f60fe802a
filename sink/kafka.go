package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lightlink-network/ll-whale-tracker/types"
)

// Kafka publishes each row to a topic keyed by transaction hash.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll,
			BatchSize:              1,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

func (k *Kafka) WriteRow(ctx context.Context, row types.Row) error {
	msg, err := message(row)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write error: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func message(row types.Row) (kafka.Message, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal row: %w", err)
	}
	return kafka.Message{
		Key:   []byte(row.Hash),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(row.Status)},
		},
	}, nil
}
