package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one record per event, keyed by the identity the event
// is about so a participant's events stay on one partition.
type KafkaSink struct {
	w     messageWriter
	topic string
}

// kafkaBatchTimeout caps how long a write waits for more records before
// flushing a partial batch.
const kafkaBatchTimeout = 10 * time.Millisecond

// NewKafkaSink creates a writer for the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: kafkaBatchTimeout,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Publish(ctx context.Context, evs []Event) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, e := range evs {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: k.topic,
			Key:   []byte(e.Key()),
			Value: value,
		})
	}
	return k.w.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the underlying writer.
func (k *KafkaSink) Close() error { return k.w.Close() }
