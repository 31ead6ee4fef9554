// Package kafka relays outbox messages to Kafka topics.
package kafka

import (
	"context"
	"fmt"

	"iam/config"
	"iam/infrastructure/messaging"
	"iam/pkg/logger"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each outbox message to "<topic prefix><aggregate type>",
// keyed by aggregate id. All events of one aggregate land on the same
// partition of the same topic, so consumers see them in stream order.
// The event type travels in the event-type header.
type Publisher struct {
	writer      messageWriter
	topicPrefix string
}

func NewPublisher(cfg config.KafkaConfig) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequiredAcks(cfg.RequiredAcks),
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
		Logger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...), zap.String("component", "kafka"))
		}),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), zap.String("component", "kafka"))
		}),
	}
	return newPublisher(w, cfg.TopicPrefix)
}

func newPublisher(w messageWriter, topicPrefix string) *Publisher {
	return &Publisher{writer: w, topicPrefix: topicPrefix}
}

func (p *Publisher) Publish(ctx context.Context, msg messaging.Message) error {
	if err := p.writer.WriteMessages(ctx, p.toKafka(msg)); err != nil {
		return fmt.Errorf("kafka publish %s (%s): %w", msg.EventType, msg.ID, err)
	}
	return nil
}

func (p *Publisher) toKafka(msg messaging.Message) kafkago.Message {
	return kafkago.Message{
		Topic: p.topicPrefix + msg.AggregateType,
		Key:   []byte(msg.AggregateID),
		Value: msg.Payload,
		Time:  msg.CreatedAt,
		Headers: []kafkago.Header{
			{Key: "outbox-id", Value: []byte(msg.ID)},
			{Key: "event-type", Value: []byte(msg.EventType)},
			{Key: "aggregate-type", Value: []byte(msg.AggregateType)},
			{Key: "tenant-id", Value: []byte(msg.TenantID)},
		},
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ messaging.Publisher = (*Publisher)(nil)
