// Package consumer 消费 sleepDataUpdated 事件流
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rediscommon "sleepsense/common/redis"
	"sleepsense/internal/service"
	"sleepsense/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ArchiverConfig 消费者组参数
type ArchiverConfig struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration
}

// ReportArchiver 每次数据更新后重新生成并归档当天报告
type ReportArchiver struct {
	cfg         ArchiverConfig
	redisClient *redis.Client
	reports     service.SleepReportService
	logger      *zap.Logger
}

func NewReportArchiver(cfg ArchiverConfig, redisClient *redis.Client, reports service.SleepReportService, logger *zap.Logger) *ReportArchiver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &ReportArchiver{
		cfg:         cfg,
		redisClient: redisClient,
		reports:     reports,
		logger:      logger,
	}
}

// Start 阻塞直到 ctx 结束；读取失败时指数退避
func (a *ReportArchiver) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, a.redisClient, a.cfg.Stream, a.cfg.Group); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", a.cfg.Stream, err)
	}
	a.logger.Info("Report archiver started",
		zap.String("stream", a.cfg.Stream),
		zap.String("consumer_group", a.cfg.Group),
		zap.String("consumer_name", a.cfg.Consumer),
	)

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := a.ConsumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Error("Failed to consume stream", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

// ConsumeOnce 读取一批消息并处理，返回处理成功的条数
// 处理失败的消息不确认，留在 pending 列表
func (a *ReportArchiver) ConsumeOnce(ctx context.Context) (int, error) {
	messages, err := rediscommon.ReadFromStream(ctx, a.redisClient, a.cfg.Stream, a.cfg.Group, a.cfg.Consumer, a.cfg.BatchSize, a.cfg.Block)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream %s: %w", a.cfg.Stream, err)
	}

	done := 0
	for _, msg := range messages {
		err := a.processMessage(ctx, msg)
		switch {
		case err == nil:
			done++
		case errors.Is(err, errSkip):
			a.logger.Warn("Dropping message", zap.String("message_id", msg.ID), zap.Error(err))
		default:
			a.logger.Error("Failed to process message", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		if err := rediscommon.Ack(ctx, a.redisClient, a.cfg.Stream, a.cfg.Group, msg.ID); err != nil {
			a.logger.Warn("Failed to ack message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return done, nil
}

// errSkip 消息本身无效，重试也不会成功
var errSkip = errors.New("skip message")

func (a *ReportArchiver) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	if ev, _ := msg.Values["event"].(string); ev != store.EventSleepDataUpdated {
		return fmt.Errorf("%w: unexpected event %q", errSkip, ev)
	}
	raw, _ := msg.Values["data"].(string)
	var payload struct {
		User string `json:"user"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.User == "" {
		return fmt.Errorf("%w: event without user", errSkip)
	}

	rep, err := a.reports.GenerateReport(ctx, payload.User)
	if err != nil {
		return fmt.Errorf("archive report for %s: %w", payload.User, err)
	}
	a.logger.Info("Archived sleep report",
		zap.String("user", payload.User),
		zap.Int("report_date", rep.ReportDate),
		zap.Int("records", rep.RecordCount),
	)
	return nil
}
