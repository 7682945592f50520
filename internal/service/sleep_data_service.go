package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/store"
	"sleepsense/internal/tracker"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// ErrUserRequired 缺少用户标识
var ErrUserRequired = errors.New("user email is required")

// SleepDataService 按用户加载、操作、保存睡眠数据
type SleepDataService interface {
	// Import 导入 JSON / CSV；解析失败体现在 ImportResult 中，error 仅表示存储故障
	Import(ctx context.Context, user string, raw interface{}, format string) (tracker.ImportResult, error)

	GetData(ctx context.Context, user string) (domain.SleepData, error)
	GetCurrent(ctx context.Context, user string) (domain.CurrentMetrics, error)
	UpdateManualMetrics(ctx context.Context, user string, m domain.ManualMetrics) (domain.SleepData, error)
	GetCalculatedMetrics(ctx context.Context, user string) (domain.AggregateMetrics, error)
	GetRecommendations(ctx context.Context, user string, limit int) ([]domain.Recommendation, error)
	GetCalendar(ctx context.Context, user string) (map[string]domain.CalendarEntry, error)
	AddLifestyleEntry(ctx context.Context, user string, e domain.LifestyleRecord) (domain.LifestyleRecord, error)
	GetReportData(ctx context.Context, user string) (domain.ReportData, error)
}

// SleepDataOptions 服务选项
type SleepDataOptions struct {
	Strict   bool             // 导入严格模式
	SeedDemo bool             // 新用户使用示例数据
	Now      func() time.Time // 测试注入
}

type sleepDataService struct {
	store  *store.SleepDataStore
	events store.EventPublisher
	opts   SleepDataOptions
	logger *zap.Logger

	locks [lockStripes]sync.Mutex
}

// lockStripes 用户锁分片数，内存占用固定
const lockStripes = 64

// NewSleepDataService 创建 SleepDataService；events 为 nil 时不发布事件
func NewSleepDataService(s *store.SleepDataStore, events store.EventPublisher, opts SleepDataOptions, logger *zap.Logger) SleepDataService {
	if events == nil {
		events = store.NopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &sleepDataService{
		store:  s,
		events: events,
		opts:   opts,
		logger: logger,
	}
}

// userLock 同一用户的操作串行执行；不同用户可能共用一把锁
func (s *sleepDataService) userLock(user string) *sync.Mutex {
	return &s.locks[xxhash.Sum64String(user)%lockStripes]
}

func (s *sleepDataService) trackerOptions() tracker.Options {
	return tracker.Options{Strict: s.opts.Strict, Now: s.opts.Now}
}

// load 读取用户数据；不存在时返回新 Tracker
func (s *sleepDataService) load(ctx context.Context, user string) (*tracker.Tracker, error) {
	data, err := s.store.Load(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			if s.opts.SeedDemo {
				return tracker.FromSnapshot(tracker.DemoData(), s.trackerOptions()), nil
			}
			return tracker.New(s.trackerOptions()), nil
		}
		return nil, fmt.Errorf("load sleep data: %w", err)
	}
	return tracker.FromSnapshot(data, s.trackerOptions()), nil
}

// read 只读访问
func (s *sleepDataService) read(ctx context.Context, user string, fn func(t *tracker.Tracker)) error {
	if user == "" {
		return ErrUserRequired
	}
	l := s.userLock(user)
	l.Lock()
	defer l.Unlock()

	t, err := s.load(ctx, user)
	if err != nil {
		return err
	}
	fn(t)
	return nil
}

// write 修改后整体保存并发布更新事件；fn 返回 false 表示无需保存
func (s *sleepDataService) write(ctx context.Context, user string, fn func(t *tracker.Tracker) (bool, error)) error {
	if user == "" {
		return ErrUserRequired
	}
	l := s.userLock(user)
	l.Lock()
	defer l.Unlock()

	t, err := s.load(ctx, user)
	if err != nil {
		return err
	}
	changed, err := fn(t)
	if err != nil || !changed {
		return err
	}

	snap := t.Snapshot()
	if err := s.store.Save(ctx, user, snap); err != nil {
		return fmt.Errorf("save sleep data: %w", err)
	}
	if err := s.events.PublishSleepDataUpdated(ctx, user, snap); err != nil {
		// 事件发布失败不影响本次写入
		s.logger.Warn("Failed to publish sleepDataUpdated event",
			zap.String("user", user),
			zap.Error(err),
		)
	}
	return nil
}

func (s *sleepDataService) Import(ctx context.Context, user string, raw interface{}, format string) (tracker.ImportResult, error) {
	var res tracker.ImportResult
	err := s.write(ctx, user, func(t *tracker.Tracker) (bool, error) {
		res = t.Import(raw, format)
		return res.Success && res.Records > 0, nil
	})
	if err != nil {
		return res, err
	}

	if res.Success {
		s.logger.Info("Sleep data imported",
			zap.String("user", user),
			zap.String("format", format),
			zap.Int("records", res.Records),
		)
	} else {
		s.logger.Warn("Sleep data import rejected",
			zap.String("user", user),
			zap.String("format", format),
			zap.String("error", res.Message),
		)
	}
	return res, nil
}

func (s *sleepDataService) GetData(ctx context.Context, user string) (domain.SleepData, error) {
	var data domain.SleepData
	err := s.read(ctx, user, func(t *tracker.Tracker) { data = t.Snapshot() })
	return data, err
}

func (s *sleepDataService) GetCurrent(ctx context.Context, user string) (domain.CurrentMetrics, error) {
	var cur domain.CurrentMetrics
	err := s.read(ctx, user, func(t *tracker.Tracker) { cur = t.Current() })
	return cur, err
}

func (s *sleepDataService) UpdateManualMetrics(ctx context.Context, user string, m domain.ManualMetrics) (domain.SleepData, error) {
	var data domain.SleepData
	err := s.write(ctx, user, func(t *tracker.Tracker) (bool, error) {
		data = t.UpdateManualMetrics(m)
		return true, nil
	})
	return data, err
}

func (s *sleepDataService) GetCalculatedMetrics(ctx context.Context, user string) (domain.AggregateMetrics, error) {
	var agg domain.AggregateMetrics
	err := s.read(ctx, user, func(t *tracker.Tracker) { agg = t.CalculatedMetrics() })
	return agg, err
}

func (s *sleepDataService) GetRecommendations(ctx context.Context, user string, limit int) ([]domain.Recommendation, error) {
	var recs []domain.Recommendation
	err := s.read(ctx, user, func(t *tracker.Tracker) { recs = t.Recommendations(limit) })
	return recs, err
}

func (s *sleepDataService) GetCalendar(ctx context.Context, user string) (map[string]domain.CalendarEntry, error) {
	var cal map[string]domain.CalendarEntry
	err := s.read(ctx, user, func(t *tracker.Tracker) { cal = t.Calendar() })
	return cal, err
}

func (s *sleepDataService) AddLifestyleEntry(ctx context.Context, user string, e domain.LifestyleRecord) (domain.LifestyleRecord, error) {
	var saved domain.LifestyleRecord
	err := s.write(ctx, user, func(t *tracker.Tracker) (bool, error) {
		var err error
		saved, err = t.AddLifestyleEntry(e)
		return err == nil, err
	})
	return saved, err
}

func (s *sleepDataService) GetReportData(ctx context.Context, user string) (domain.ReportData, error) {
	var rep domain.ReportData
	err := s.read(ctx, user, func(t *tracker.Tracker) { rep = t.ReportData(user) })
	return rep, err
}
