package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

// LocalQueue is the in-process queue used when no Redis stream is configured.
type LocalQueue struct {
	ch          chan domain.QueueMessage
	maxAttempts int
	retryDelay  time.Duration
	logger      *log.Logger

	dlqMu sync.Mutex
	dlq   []domain.QueueMessage
}

func NewLocalQueue(bufferSize, maxAttempts int, logger *log.Logger) *LocalQueue {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &LocalQueue{
		ch:          make(chan domain.QueueMessage, bufferSize),
		maxAttempts: maxAttempts,
		retryDelay:  500 * time.Millisecond,
		logger:      logger,
	}
}

func (q *LocalQueue) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- message:
		return nil
	}
}

func (q *LocalQueue) Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message := <-q.ch:
			err := handler(ctx, message)
			if err == nil {
				continue
			}

			message.Attempt++
			if message.Attempt >= q.maxAttempts {
				q.dlqMu.Lock()
				q.dlq = append(q.dlq, message)
				q.dlqMu.Unlock()
				if q.logger != nil {
					q.logger.Printf("local queue moved message to DLQ run_id=%s attempts=%d err=%v", message.RunID, message.Attempt, err)
				}
				continue
			}

			delay := time.Duration(message.Attempt) * q.retryDelay
			go func(retryMessage domain.QueueMessage) {
				timer := time.NewTimer(delay)
				defer timer.Stop()
				select {
				case <-ctx.Done():
				case <-timer.C:
					select {
					case q.ch <- retryMessage:
					case <-ctx.Done():
					}
				}
			}(message)
		}
	}
}

// DeadLetters returns the messages that exhausted their attempts.
func (q *LocalQueue) DeadLetters() []domain.QueueMessage {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return append([]domain.QueueMessage(nil), q.dlq...)
}
