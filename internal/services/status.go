package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"aether-backend/internal/flows"
	"aether-backend/internal/middleware"
	"aether-backend/internal/models"
	"aether-backend/internal/retry"
)

// Publisher is the subset of *redis.Client used to fan out status updates.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// UserChannel is the pub/sub channel the websocket hub relays to a user.
func UserChannel(userID string) string {
	return "user_updates:" + userID
}

// StatusPublisher pushes flow retry notices to the requesting user's sockets.
type StatusPublisher struct {
	redis Publisher
	now   func() time.Time
}

func NewStatusPublisher(redis Publisher) *StatusPublisher {
	return &StatusPublisher{redis: redis, now: time.Now}
}

// Publish sends msg to every socket userID has open. Errors are logged only;
// status updates are best effort.
func (p *StatusPublisher) Publish(ctx context.Context, userID string, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode status update: %v", err)
		return
	}
	if err := p.redis.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		log.Printf("Failed to publish status update for user %s: %v", userID, err)
	}
}

// RetryObserver adapts Publish to the flow service. Retries outside an
// authenticated request (CLI, MCP) are not published.
func (p *StatusPublisher) RetryObserver() flows.RetryObserver {
	return func(ctx context.Context, flow string, a retry.Attempt) {
		userID := middleware.GetUserID(ctx)
		if userID == "" {
			return
		}

		reason := ""
		if a.Err != nil {
			reason = a.Err.Error()
		}
		p.Publish(ctx, userID, models.WSMessage{
			Type: models.WSTypeFlowRetry,
			Payload: models.FlowStatus{
				Flow:        flow,
				Attempt:     a.Index + 1,
				MaxAttempts: a.MaxAttempts,
				RetryInMs:   a.Delay.Milliseconds(),
				Reason:      reason,
				At:          p.now().UTC(),
			},
		})
	}
}
