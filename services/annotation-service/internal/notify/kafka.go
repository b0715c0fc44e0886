package notify

import (
	"context"
	"encoding/json"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

// KafkaChannel writes an audit copy of every notification to a Kafka topic,
// keyed by user id so one user's notifications stay in partition order.
type KafkaChannel struct {
	writer *kafka.Writer
}

func NewKafkaChannel(brokers string, topic string) *KafkaChannel {
	return &KafkaChannel{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  kafkax.SplitBrokers(brokers),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}),
	}
}

func (c *KafkaChannel) Send(ctx context.Context, userID string, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(userID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(n.EventType)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return c.writer.WriteMessages(ctx, msg)
}

func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}
