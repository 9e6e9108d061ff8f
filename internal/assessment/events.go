package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultEventChannel is the Redis Pub/Sub channel run events flow through.
const DefaultEventChannel = "assessment:run_events"

// Run event types.
const (
	EventTypeAttempt   = "run_attempt"
	EventTypeCompleted = "run_completed"
)

// RunEvent is the live-monitor payload emitted after each submission and on
// completion. It never carries question text or correct answers.
type RunEvent struct {
	Type            string           `json:"type"`
	RunID           uuid.UUID        `json:"run_id"`
	OwnerID         uuid.UUID        `json:"owner_id"`
	Difficulty      int              `json:"difficulty,omitempty"`
	IsCorrect       *bool            `json:"is_correct,omitempty"`
	Score           int              `json:"score"`
	TotalAttempts   int              `json:"total_attempts"`
	CompletedReason CompletionReason `json:"completed_reason,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// EventPublisher emits run events for live monitoring. Publishing is
// best-effort: the engine logs and continues on failure.
type EventPublisher interface {
	Publish(ctx context.Context, evt RunEvent) error
}

// RedisPublisher publishes run events to a Redis Pub/Sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

var _ EventPublisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client *redis.Client, channel string, logger zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "run_event_publisher").Logger(),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt RunEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}
