package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pipelineatlas/atlas-api/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is a single stream entry awaiting acknowledgement
type Message struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// Broker is the stream transport the usage worker consumes from and the
// webhook pipeline publishes to.
type Broker interface {
	// EnsureGroup creates the consumer group on the stream if it does not
	// exist, creating the stream itself when missing.
	EnsureGroup(ctx context.Context, stream, group string) error

	// ReadGroup blocks up to the given timeout for new entries on the
	// streams, delivering at most count per call.
	ReadGroup(ctx context.Context, group, consumer string, streams []string, count int64, block time.Duration) ([]Message, error)

	// Ack marks a delivered entry as processed for the group
	Ack(ctx context.Context, stream, group, id string) error

	// Publish appends an entry to a stream
	Publish(ctx context.Context, stream string, values map[string]interface{}) error
}

// RedisBroker implements Broker over Redis Streams
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroker connects to Redis and verifies the connection
func NewRedisBroker(cfg config.RedisConfig, logger *zap.Logger) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established", zap.String("addr", cfg.Addr))
	return &RedisBroker{client: client, logger: logger}, nil
}

// Close releases the underlying connection pool
func (b *RedisBroker) Close() error {
	return b.client.Close()
}

// HealthCheck pings the Redis server
func (b *RedisBroker) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// EnsureGroup creates the consumer group, treating an already-existing group
// as success.
func (b *RedisBroker) EnsureGroup(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("failed to create consumer group %s on %s: %w", group, stream, err)
	}
	b.logger.Info("consumer group created",
		zap.String("stream", stream),
		zap.String("group", group))
	return nil
}

// ReadGroup reads new entries from all streams for the consumer
func (b *RedisBroker) ReadGroup(ctx context.Context, group, consumer string, streams []string, count int64, block time.Duration) ([]Message, error) {
	// XREADGROUP takes stream names followed by one ">" cursor per stream.
	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, ">")
	}

	result, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  args,
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from streams: %w", err)
	}

	var messages []Message
	for _, stream := range result {
		for _, entry := range stream.Messages {
			messages = append(messages, Message{
				Stream: stream.Stream,
				ID:     entry.ID,
				Values: entry.Values,
			})
		}
	}
	return messages, nil
}

// Ack acknowledges a delivered entry
func (b *RedisBroker) Ack(ctx context.Context, stream, group, id string) error {
	if err := b.client.XAck(ctx, stream, group, id).Err(); err != nil {
		return fmt.Errorf("failed to ack %s on %s: %w", id, stream, err)
	}
	return nil
}

// Publish appends an entry to a stream
func (b *RedisBroker) Publish(ctx context.Context, stream string, values map[string]interface{}) error {
	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}
