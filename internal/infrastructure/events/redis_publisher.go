package events

import (
	"context"
	"encoding/json"
	"fmt"

	"safedrive/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// publishClient is the part of *redis.Client the publisher needs.
type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// envelope is the wire form of a published alert event.
type envelope struct {
	InstanceID string `json:"instance_id"`
	domain.AlertEvent
}

// RedisPublisher fans alert events out on a Redis pub/sub channel.
type RedisPublisher struct {
	client     publishClient
	channel    string
	instanceID string
	logger     *zap.SugaredLogger
}

func NewRedisPublisher(client *redis.Client, channel, instanceID string, logger *zap.SugaredLogger) *RedisPublisher {
	return newRedisPublisher(client, channel, instanceID, logger)
}

func newRedisPublisher(client publishClient, channel, instanceID string, logger *zap.SugaredLogger) *RedisPublisher {
	return &RedisPublisher{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		logger:     logger,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.AlertEvent) error {
	data, err := json.Marshal(envelope{InstanceID: p.instanceID, AlertEvent: event})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debugw("Published alert event",
		"event_id", event.ID,
		"type", event.Type,
		"session_id", event.SessionID,
		"receivers", receivers,
	)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NoopPublisher drops every event. Used when Redis is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.AlertEvent) error { return nil }
func (NoopPublisher) Close() error                                     { return nil }
