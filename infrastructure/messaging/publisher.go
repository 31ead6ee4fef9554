/*
Package messaging 定义 outbox 中继的发布端口。

outbox worker 读取已提交的事件行并交给 Publisher；具体实现可以是 Kafka，
也可以是只写日志的 LoggingPublisher（本地开发）。
*/
package messaging

import (
	"context"
	"time"

	"iam/pkg/logger"

	"go.uber.org/zap"
)

// Message is one committed domain event leaving through the outbox.
// Payload is the event's canonical JSON.
type Message struct {
	ID            string
	AggregateID   string
	AggregateType string
	TenantID      string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Publisher delivers outbox messages. A nil error means the broker accepted
// the message; the relay marks the row published only then.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// LoggingPublisher writes messages to the log instead of a broker.
type LoggingPublisher struct{}

func (p *LoggingPublisher) Publish(ctx context.Context, msg Message) error {
	logger.Ctx(ctx).Info("Outbox event published",
		zap.String("outbox_id", msg.ID),
		zap.String("event_type", msg.EventType),
		zap.String("aggregate_id", msg.AggregateID),
		zap.ByteString("payload", msg.Payload),
	)
	return nil
}
