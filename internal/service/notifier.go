package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/academic"
)

// GroupChange is published when a group's schedule materially changed.
type GroupChange struct {
	Group      string          `json:"group"`
	Period     academic.Period `json:"period"`
	CycleID    string          `json:"cycleId"`
	DetectedAt time.Time       `json:"detectedAt"`
}

// Topic is the push topic subscribers of the group listen on.
func (c GroupChange) Topic() string {
	return "group." + c.Group
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes group changes on a Redis channel for the push gateway.
type RedisNotifier struct {
	client  publisher
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier constructs the notifier. A nil client disables publishing.
func NewRedisNotifier(client publisher, channel string, logger *zap.Logger) *RedisNotifier {
	if channel == "" {
		channel = "schedule:changes"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// GroupChanged publishes the change. Failures are logged, never returned.
func (n *RedisNotifier) GroupChanged(ctx context.Context, change GroupChange) {
	if n == nil || n.client == nil {
		return
	}
	payload, err := json.Marshal(struct {
		GroupChange
		Topic string `json:"topic"`
	}{GroupChange: change, Topic: change.Topic()})
	if err != nil {
		n.logger.Warn("encode group change failed", zap.String("group", change.Group), zap.Error(err))
		return
	}

	receivers, err := n.client.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		n.logger.Warn("publish group change failed", zap.String("group", change.Group), zap.Error(err))
		return
	}
	n.logger.Info("group change published",
		zap.String("group", change.Group),
		zap.String("channel", n.channel),
		zap.Int64("receivers", receivers),
	)
}
