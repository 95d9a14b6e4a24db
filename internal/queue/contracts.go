package queue

import (
	"context"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// Producer sends batch run notifications to a queue backend.
type Producer interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
}

// Consumer receives batch run notifications and executes the handler. A
// handler error schedules a retry until the attempt budget is spent.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error
}
