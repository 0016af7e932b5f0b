// Package inbox mirrors workflow notifications into Redis lists keyed by
// recipient role, so external dashboards can poll an inbox without walking
// every aggregate.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rwcma/capitalab/pkg/models"
)

const (
	keyPrefix = "capitalab:inbox:"

	// maxInboxLength bounds each role inbox; older entries fall off.
	maxInboxLength = 500
)

// RedisSink delivers notifications into per-role Redis lists. It satisfies
// the engine's notification sink contract.
type RedisSink struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisSink, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSink{client: client, logger: logger}, nil
}

// Deliver pushes the notification onto its role inbox, and onto the user
// inbox when it is addressed to a specific user.
func (s *RedisSink) Deliver(ctx context.Context, notification *models.WorkflowNotification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification %s: %w", notification.ID, err)
	}

	keys := []string{keyPrefix + string(notification.RecipientRole)}
	if notification.RecipientUserID != "" {
		keys = append(keys, keyPrefix+"user:"+notification.RecipientUserID)
	}

	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, maxInboxLength-1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push notification %s: %w", notification.ID, err)
	}

	return nil
}

// Recent returns up to limit notifications from a role inbox, newest first.
func (s *RedisSink) Recent(ctx context.Context, role models.ParticipantRole, limit int64) ([]*models.WorkflowNotification, error) {
	entries, err := s.client.LRange(ctx, keyPrefix+string(role), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox for role %s: %w", role, err)
	}

	notifications := make([]*models.WorkflowNotification, 0, len(entries))

	for _, entry := range entries {
		var notification models.WorkflowNotification
		if err := json.Unmarshal([]byte(entry), &notification); err != nil {
			s.logger.Warn("Skipping malformed inbox entry", "role", role, "error", err)

			continue
		}

		notifications = append(notifications, &notification)
	}

	return notifications, nil
}

// HealthCheck pings Redis.
func (s *RedisSink) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
