package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/delarge95/ai-news-aggregator/internal/domain"
)

type StreamsConfig struct {
	Addr        string
	Password    string
	DB          int
	Stream      string
	Group       string
	Consumer    string
	MaxAttempts int
}

// StreamsQueue keeps pending batch runs in a Redis stream so they survive an
// API restart. Exhausted messages go to "<stream>_dlq".
type StreamsQueue struct {
	client      *redis.Client
	stream      string
	dlqStream   string
	group       string
	consumer    string
	maxAttempts int
	logger      *log.Logger
}

func NewStreamsQueue(ctx context.Context, cfg StreamsConfig, logger *log.Logger) (*StreamsQueue, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = "news_batches"
	}
	if cfg.Group == "" {
		cfg.Group = "news_workers"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "api-1"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	queue := &StreamsQueue{
		client:      client,
		stream:      cfg.Stream,
		dlqStream:   cfg.Stream + "_dlq",
		group:       cfg.Group,
		consumer:    cfg.Consumer,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
	if err := queue.ensureGroup(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return queue, nil
}

func (q *StreamsQueue) Close() error {
	return q.client.Close()
}

func (q *StreamsQueue) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: encodeStreamMessage(message),
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue to stream: %w", err)
	}
	return nil
}

func (q *StreamsQueue) Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, item := range stream.Messages {
				q.handle(ctx, item, handler)
			}
		}
	}
}

func (q *StreamsQueue) handle(
	ctx context.Context,
	item redis.XMessage,
	handler func(context.Context, domain.QueueMessage) error,
) {
	defer q.ack(ctx, item.ID)

	message, parseErr := decodeStreamMessage(item.Values)
	if parseErr != nil {
		q.deadLetter(ctx, domain.QueueMessage{}, item.ID, parseErr.Error())
		return
	}

	handleErr := handler(ctx, message)
	if handleErr == nil {
		return
	}

	message.Attempt++
	if message.Attempt >= q.maxAttempts {
		q.deadLetter(ctx, message, item.ID, handleErr.Error())
		return
	}
	if requeueErr := q.Enqueue(ctx, message); requeueErr != nil {
		q.deadLetter(ctx, message, item.ID, fmt.Sprintf("requeue failed: %v", requeueErr))
	}
}

func (q *StreamsQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err == nil || strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("ensure stream group: %w", err)
}

func (q *StreamsQueue) ack(ctx context.Context, streamID string) {
	if err := q.client.XAck(ctx, q.stream, q.group, streamID).Err(); err != nil {
		q.logf("stream queue xack id=%s failed: %v", streamID, err)
		return
	}
	if err := q.client.XDel(ctx, q.stream, streamID).Err(); err != nil {
		q.logf("stream queue xdel id=%s failed: %v", streamID, err)
	}
}

func (q *StreamsQueue) deadLetter(ctx context.Context, message domain.QueueMessage, streamID, reason string) {
	values := encodeStreamMessage(message)
	values["stream_id"] = streamID
	values["error"] = reason
	values["moved_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	if err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.dlqStream, Values: values}).Err(); err != nil {
		q.logf("stream queue dlq run_id=%s failed: %v", message.RunID, err)
		return
	}
	q.logf("stream queue moved message to DLQ run_id=%s reason=%s", message.RunID, reason)
}

func (q *StreamsQueue) logf(format string, args ...any) {
	if q.logger == nil {
		return
	}
	q.logger.Printf(format, args...)
}

func encodeStreamMessage(message domain.QueueMessage) map[string]any {
	return map[string]any{
		"run_id":       message.RunID,
		"source_type":  message.SourceType,
		"persist":      strconv.FormatBool(message.Persist),
		"attempt":      strconv.Itoa(message.Attempt),
		"requested_at": message.RequestedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeStreamMessage(values map[string]any) (domain.QueueMessage, error) {
	getString := func(key string) (string, error) {
		value, ok := values[key]
		if !ok {
			return "", fmt.Errorf("missing field %s", key)
		}
		switch casted := value.(type) {
		case string:
			return casted, nil
		case []byte:
			return string(casted), nil
		default:
			return fmt.Sprintf("%v", casted), nil
		}
	}

	runID, err := getString("run_id")
	if err != nil {
		return domain.QueueMessage{}, err
	}
	if strings.TrimSpace(runID) == "" {
		return domain.QueueMessage{}, errors.New("empty run_id")
	}
	sourceType, err := getString("source_type")
	if err != nil {
		return domain.QueueMessage{}, err
	}

	persistString, err := getString("persist")
	if err != nil {
		return domain.QueueMessage{}, err
	}
	persist, err := strconv.ParseBool(persistString)
	if err != nil {
		return domain.QueueMessage{}, fmt.Errorf("invalid persist: %w", err)
	}

	attemptString, err := getString("attempt")
	if err != nil {
		return domain.QueueMessage{}, err
	}
	attempt, err := strconv.Atoi(attemptString)
	if err != nil {
		return domain.QueueMessage{}, fmt.Errorf("invalid attempt: %w", err)
	}

	requestedAtString, err := getString("requested_at")
	if err != nil {
		return domain.QueueMessage{}, err
	}
	requestedAt, err := time.Parse(time.RFC3339Nano, requestedAtString)
	if err != nil {
		return domain.QueueMessage{}, fmt.Errorf("invalid requested_at: %w", err)
	}

	return domain.QueueMessage{
		RunID:       runID,
		SourceType:  sourceType,
		Persist:     persist,
		Attempt:     attempt,
		RequestedAt: requestedAt,
	}, nil
}
