package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SleepType 睡眠类型分类标签
type SleepType string

const (
	SleepTypeNormal   SleepType = "Normal"
	SleepTypeRestless SleepType = "Restless"
	SleepTypeLight    SleepType = "Light"
	SleepTypeApnea    SleepType = "Apnea"
)

// Priority 建议优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DailyRecord 单日睡眠观测记录（按 date 唯一）
type DailyRecord struct {
	Date      string `json:"date"`
	Quality   int    `json:"quality"`   // 0-100
	HeartRate int    `json:"heartRate"` // bpm
	SpO2      int    `json:"spo2"`      // %
	Motion    int    `json:"motion"`    // 体动次数
	Snoring   int    `json:"snoring"`   // 0-10
	Duration  int    `json:"duration"`  // 分钟
	DeepSleep int    `json:"deepSleep"` // 分钟
	Apnea     bool   `json:"apnea"`
}

// EntryDate 账本键
func (r DailyRecord) EntryDate() string { return r.Date }

// LifestyleRecord 单日生活习惯记录
type LifestyleRecord struct {
	Date       string  `json:"date"`
	Caffeine   float64 `json:"caffeine"`
	ScreenTime float64 `json:"screenTime"`
	Exercise   float64 `json:"exercise"`
	Bedtime    string  `json:"bedtime"`
	WakeTime   string  `json:"wakeTime"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
}

// EntryDate 账本键
func (r LifestyleRecord) EntryDate() string { return r.Date }

// CalendarEntry 日历视图的单日摘要
type CalendarEntry struct {
	Quality  int       `json:"quality"`
	Type     SleepType `json:"type"`
	Duration string    `json:"duration"`
}

// CurrentMetrics 最近一条记录的展示快照
// duration / deepSleep 为 "Hh Mm" 格式
type CurrentMetrics struct {
	Quality        int       `json:"quality"`
	Duration       string    `json:"duration"`
	Type           SleepType `json:"type"`
	HeartRate      int       `json:"heartRate"`
	SpO2           int       `json:"spo2"`
	Motion         int       `json:"motion"`
	Snoring        int       `json:"snoring"`
	DeepSleep      string    `json:"deepSleep"`
	ApneaDetected  bool      `json:"apneaDetected"`
	RestlessEvents int       `json:"restlessEvents"`
}

// AggregateMetrics 最近 N 天的滚动统计（按需计算，不持久化）
type AggregateMetrics struct {
	SleepEfficiency  int `json:"sleepEfficiency"`
	SleepLatency     int `json:"sleepLatency"`
	RemDuration      int `json:"remDuration"`
	SleepCycles      int `json:"sleepCycles"`
	Waso             int `json:"waso"`
	ConsistencyScore int `json:"consistencyScore"`
	SleepDebt        int `json:"sleepDebt"`
	AvgHeartRate     int `json:"avgHeartRate"`
	WeeklyTrend      int `json:"weeklyTrend"`
	Days             int `json:"days"`
}

// Recommendation 建议条目
type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Icon        string   `json:"icon,omitempty"`
}

// DisorderRisk 睡眠障碍风险评估
type DisorderRisk struct {
	Name  string `json:"name"`
	Risk  string `json:"risk"`  // Low / Medium / High
	Color string `json:"color"` // green / yellow / red
}

// Insights AI 洞察
type Insights struct {
	Summary         string           `json:"summary"`
	Disorders       []DisorderRisk   `json:"disorders"`
	Recommendations []Recommendation `json:"recommendations"`
}

// SleepData 每个用户持久化的完整数据块
type SleepData struct {
	CurrentMetrics CurrentMetrics           `json:"currentMetrics"`
	DailyData      []DailyRecord            `json:"dailyData"`
	LifestyleData  []LifestyleRecord        `json:"lifestyleData"`
	AIInsights     Insights                 `json:"aiInsights"`
	CalendarData   map[string]CalendarEntry `json:"calendarData"`
	LastUpdated    string                   `json:"lastUpdated,omitempty"`
}

// ReportData 报告导出数据 = 完整快照 + 导出时间 + 用户
type ReportData struct {
	SleepData
	ExportedAt string `json:"exportedAt"`
	UserEmail  string `json:"userEmail"`
}

// ManualMetrics 手动录入的部分指标，nil 表示未提供
type ManualMetrics struct {
	Quality       *int           `json:"quality,omitempty"`
	Duration      *DurationValue `json:"duration,omitempty"`
	HeartRate     *int           `json:"heartRate,omitempty"`
	SpO2          *int           `json:"spo2,omitempty"`
	Motion        *int           `json:"motion,omitempty"`
	Snoring       *int           `json:"snoring,omitempty"`
	DeepSleep     *DurationValue `json:"deepSleep,omitempty"`
	ApneaDetected *bool          `json:"apneaDetected,omitempty"`
}

// IsEmpty 是否没有任何字段
func (m ManualMetrics) IsEmpty() bool {
	return m.Quality == nil && m.Duration == nil && m.HeartRate == nil && m.SpO2 == nil &&
		m.Motion == nil && m.Snoring == nil && m.DeepSleep == nil && m.ApneaDetected == nil
}

// DurationValue 时长：分钟数或 "7h 32m" 文本
type DurationValue struct {
	Text     string
	Minutes  int
	IsNumber bool
}

// MinutesOf 构造分钟数时长
func MinutesOf(m int) *DurationValue { return &DurationValue{Minutes: m, IsNumber: true} }

// TextOf 构造文本时长
func TextOf(s string) *DurationValue { return &DurationValue{Text: s} }

func (d *DurationValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = DurationValue{Text: s}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("duration must be a number of minutes or a \"Hh Mm\" string: %w", err)
	}
	*d = DurationValue{Minutes: int(f), IsNumber: true}
	return nil
}

func (d DurationValue) MarshalJSON() ([]byte, error) {
	if d.IsNumber {
		return json.Marshal(d.Minutes)
	}
	return json.Marshal(d.Text)
}
