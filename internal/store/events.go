package store

import (
	"context"

	rediscommon "sleepsense/common/redis"
	"sleepsense/internal/domain"

	"github.com/go-redis/redis/v8"
)

// EventSleepDataUpdated 数据块整体替换后发布的事件名
const EventSleepDataUpdated = "sleepDataUpdated"

// SleepDataUpdated 事件内容：用户 + 更新后的完整数据块
type SleepDataUpdated struct {
	User string           `json:"user"`
	Data domain.SleepData `json:"data"`
}

// EventPublisher 数据更新事件发布
type EventPublisher interface {
	PublishSleepDataUpdated(ctx context.Context, user string, data domain.SleepData) error
}

// StreamPublisher 发布到 Redis Streams
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) PublishSleepDataUpdated(ctx context.Context, user string, data domain.SleepData) error {
	_, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, EventSleepDataUpdated, SleepDataUpdated{
		User: user,
		Data: data,
	})
	return err
}

// NopPublisher 关闭事件时使用
type NopPublisher struct{}

func (NopPublisher) PublishSleepDataUpdated(context.Context, string, domain.SleepData) error {
	return nil
}
