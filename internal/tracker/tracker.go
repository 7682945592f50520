package tracker

import (
	"errors"
	"fmt"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/importer"
	"sleepsense/internal/ledger"
	"sleepsense/internal/metrics"
)

// ImportResult 导入结果，错误不会向上抛出
type ImportResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Records int    `json:"records"`
}

const (
	msgImportOK      = "Data imported successfully!"
	msgImportNoRows  = "No records found to import"
	msgImportFailure = "Error importing data: "
)

// ErrLifestyleDate 生活习惯记录缺少日期
var ErrLifestyleDate = errors.New("lifestyle entry requires a date")

// Options Tracker 配置
type Options struct {
	Strict bool
	Now    func() time.Time
}

// Tracker 持有一个用户的账本、当前快照与 AI 洞察
// 不做内部加锁，调用方负责串行化
type Tracker struct {
	book        *ledger.Book
	current     domain.CurrentMetrics
	insights    domain.Insights
	lastUpdated string

	importer *importer.Importer
	now      func() time.Time
}

// New 创建空 Tracker，当前快照取默认记录
func New(opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		book:     ledger.NewBook(),
		current:  metrics.Current(defaultRecord()),
		importer: importer.New(importer.Options{Strict: opts.Strict}, opts.Now),
		now:      opts.Now,
	}
}

// FromSnapshot 由持久化的数据块恢复 Tracker
func FromSnapshot(data domain.SleepData, opts Options) *Tracker {
	t := New(opts)
	t.book.Daily = ledger.New(data.DailyData...)
	t.book.Lifestyle = ledger.New(data.LifestyleData...)
	for k, v := range data.CalendarData {
		t.book.Calendar[k] = v
	}
	t.current = data.CurrentMetrics
	t.insights = cloneInsights(data.AIInsights)
	t.lastUpdated = data.LastUpdated
	return t
}

func defaultRecord() domain.DailyRecord {
	return domain.DailyRecord{
		Quality:   75,
		HeartRate: 65,
		SpO2:      98,
		Motion:    10,
		Snoring:   3,
		Duration:  420,
		DeepSleep: 120,
	}
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(ledger.DateLayout)
}

func (t *Tracker) stamp() string {
	return t.now().UTC().Format(time.RFC3339Nano)
}

// Import 导入 JSON / CSV 数据，全部成功才替换账本
func (t *Tracker) Import(raw interface{}, format string) ImportResult {
	f, err := importer.ParseFormat(format)
	if err != nil {
		return ImportResult{Success: false, Message: msgImportFailure + importer.ErrUnsupportedFormat.Error()}
	}

	staged, n, err := t.importer.Import(t.book, raw, f)
	if err != nil {
		return ImportResult{Success: false, Message: msgImportFailure + err.Error()}
	}
	if n == 0 {
		return ImportResult{Success: true, Message: msgImportNoRows}
	}

	t.book = staged
	if last, ok := t.book.Daily.Last(); ok {
		t.current = metrics.Current(last)
	}
	t.insights = metrics.GenerateInsights(t.book.Daily.Records(), t.insights)
	t.lastUpdated = t.stamp()
	return ImportResult{Success: true, Message: msgImportOK, Records: n}
}

// UpdateManualMetrics 把部分指标合并到当前快照，写入今天的记录并整体重建快照
func (t *Tracker) UpdateManualMetrics(m domain.ManualMetrics) domain.SleepData {
	cur := t.current
	duration := metrics.ParseDuration(cur.Duration)
	deepSleep := metrics.ParseDuration(cur.DeepSleep)

	if m.Quality != nil {
		cur.Quality = *m.Quality
	}
	if m.HeartRate != nil {
		cur.HeartRate = *m.HeartRate
	}
	if m.SpO2 != nil {
		cur.SpO2 = *m.SpO2
	}
	if m.Motion != nil {
		cur.Motion = *m.Motion
	}
	if m.Snoring != nil {
		cur.Snoring = *m.Snoring
	}
	if m.ApneaDetected != nil {
		cur.ApneaDetected = *m.ApneaDetected
	}
	if m.Duration != nil {
		duration = metrics.DurationMinutes(*m.Duration)
	}
	if m.DeepSleep != nil {
		deepSleep = metrics.DurationMinutes(*m.DeepSleep)
	}

	today := t.today()
	rec := domain.DailyRecord{
		Date:      today,
		Quality:   cur.Quality,
		HeartRate: cur.HeartRate,
		SpO2:      cur.SpO2,
		Motion:    cur.Motion,
		Snoring:   cur.Snoring,
		Duration:  duration,
		DeepSleep: deepSleep,
		Apnea:     cur.ApneaDetected,
	}

	// 在副本上完成全部修改后整体替换
	book := t.book.Clone()
	book.Daily.Upsert(rec)
	book.Calendar[today] = metrics.Calendar(rec)
	stamp := t.stamp()
	book.Lifestyle.Update(today, func(l *domain.LifestyleRecord) {
		l.UpdatedAt = stamp
	})

	t.book = book
	t.current = metrics.Current(rec)
	t.insights = metrics.GenerateInsights(book.Daily.Records(), t.insights)
	t.lastUpdated = stamp
	return t.Snapshot()
}

// AddLifestyleEntry 按日期写入生活习惯记录，日期为空时使用今天
func (t *Tracker) AddLifestyleEntry(e domain.LifestyleRecord) (domain.LifestyleRecord, error) {
	if e.Date == "" {
		e.Date = t.today()
	}
	d, ok := ledger.ParseDate(e.Date)
	if !ok {
		return e, fmt.Errorf("%w: invalid date %q", ErrLifestyleDate, e.Date)
	}
	e.Date = d.Format(ledger.DateLayout)
	t.book.Lifestyle.Upsert(e)
	t.lastUpdated = t.stamp()
	return e, nil
}

// Current 当前快照
func (t *Tracker) Current() domain.CurrentMetrics { return t.current }

// DailyRecords 全部日记录副本（按日期升序）
func (t *Tracker) DailyRecords() []domain.DailyRecord { return t.book.Daily.Records() }

// CalculatedMetrics 最近 7 天的滚动统计
func (t *Tracker) CalculatedMetrics() domain.AggregateMetrics {
	return metrics.Derive(t.book.Daily.Recent(metrics.WindowSize))
}

// Recommendations 个性化建议，limit<=0 返回全部
func (t *Tracker) Recommendations(limit int) []domain.Recommendation {
	return metrics.Top(metrics.Recommend(t.CalculatedMetrics()), limit)
}

// Calendar 日历摘要副本
func (t *Tracker) Calendar() map[string]domain.CalendarEntry {
	out := make(map[string]domain.CalendarEntry, len(t.book.Calendar))
	for k, v := range t.book.Calendar {
		out[k] = v
	}
	return out
}

// Snapshot 完整数据块的深拷贝
func (t *Tracker) Snapshot() domain.SleepData {
	return domain.SleepData{
		CurrentMetrics: t.current,
		DailyData:      t.book.Daily.Records(),
		LifestyleData:  t.book.Lifestyle.Records(),
		AIInsights:     cloneInsights(t.insights),
		CalendarData:   t.Calendar(),
		LastUpdated:    t.lastUpdated,
	}
}

// ReportData 报告导出数据
func (t *Tracker) ReportData(userEmail string) domain.ReportData {
	return domain.ReportData{
		SleepData:  t.Snapshot(),
		ExportedAt: t.stamp(),
		UserEmail:  userEmail,
	}
}

func cloneInsights(in domain.Insights) domain.Insights {
	out := domain.Insights{Summary: in.Summary}
	if in.Disorders != nil {
		out.Disorders = append([]domain.DisorderRisk(nil), in.Disorders...)
	}
	if in.Recommendations != nil {
		out.Recommendations = append([]domain.Recommendation(nil), in.Recommendations...)
	}
	return out
}
