package metrics

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"sleepsense/internal/domain"
)

const (
	// WindowSize 滚动统计窗口（天）
	WindowSize = 7

	// RestlessMotionThreshold 当前快照与手动录入使用的体动阈值
	RestlessMotionThreshold = 20
	// CalendarRestlessMotionThreshold 日历摘要使用的体动阈值
	// 与 RestlessMotionThreshold 不一致，两处调用保持各自的取值
	CalendarRestlessMotionThreshold = 15

	// DefaultDurationMinutes 无法解析时长时的默认值（7 小时）
	DefaultDurationMinutes = 420

	targetSleepMinutes = 480
	sleepCycleMinutes  = 90
)

var durationPattern = regexp.MustCompile(`(\d+)h\s*(\d+)m`)

// Round 四舍五入（.5 向上取整）
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Classify 睡眠类型分类，按优先级逐条匹配，命中即返回
func Classify(r domain.DailyRecord, motionThreshold int) domain.SleepType {
	switch {
	case r.SpO2 < 90 || r.Snoring > 7:
		return domain.SleepTypeApnea
	case r.Motion > motionThreshold:
		return domain.SleepTypeRestless
	case r.Quality < 70:
		return domain.SleepTypeLight
	default:
		return domain.SleepTypeNormal
	}
}

// FormatDuration 分钟数 → "Hh Mm"
func FormatDuration(minutes int) string {
	hours := int(math.Floor(float64(minutes) / 60))
	return fmt.Sprintf("%dh %dm", hours, minutes-hours*60)
}

// ParseDuration "Hh Mm" → 分钟数，无法解析返回 DefaultDurationMinutes
func ParseDuration(s string) int {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultDurationMinutes
	}
	h, err1 := strconv.Atoi(m[1])
	mins, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return DefaultDurationMinutes
	}
	return h*60 + mins
}

// DurationMinutes 手动录入的时长：数字直接作为分钟数，文本按 "Hh Mm" 解析
func DurationMinutes(d domain.DurationValue) int {
	if d.IsNumber {
		return d.Minutes
	}
	return ParseDuration(d.Text)
}

// Current 由单条记录重建当前快照
func Current(r domain.DailyRecord) domain.CurrentMetrics {
	return domain.CurrentMetrics{
		Quality:        r.Quality,
		Duration:       FormatDuration(r.Duration),
		Type:           Classify(r, RestlessMotionThreshold),
		HeartRate:      r.HeartRate,
		SpO2:           r.SpO2,
		Motion:         r.Motion,
		Snoring:        r.Snoring,
		DeepSleep:      FormatDuration(r.DeepSleep),
		ApneaDetected:  r.Apnea,
		RestlessEvents: int(math.Floor(float64(r.Motion) / 5)),
	}
}

// Calendar 由单条记录生成日历摘要
func Calendar(r domain.DailyRecord) domain.CalendarEntry {
	return domain.CalendarEntry{
		Quality:  r.Quality,
		Type:     Classify(r, CalendarRestlessMotionThreshold),
		Duration: FormatDuration(r.Duration),
	}
}

func window(records []domain.DailyRecord) []domain.DailyRecord {
	if len(records) > WindowSize {
		return records[len(records)-WindowSize:]
	}
	return records
}

// Derive 基于最近 WindowSize 条记录计算滚动统计
// records 须按日期升序；空输入返回 Days=0 的零值
func Derive(records []domain.DailyRecord) domain.AggregateMetrics {
	recent := window(records)
	n := len(recent)
	if n == 0 {
		return domain.AggregateMetrics{}
	}

	var sumDuration, sumQuality, sumDeep, sumHeart, deltas float64
	for i, r := range recent {
		sumDuration += float64(r.Duration)
		sumQuality += float64(r.Quality)
		sumDeep += float64(r.DeepSleep)
		sumHeart += float64(r.HeartRate)
		if i > 0 {
			deltas += math.Abs(float64(r.Duration - recent[i-1].Duration))
		}
	}
	count := float64(n)
	avgDuration := sumDuration / count
	avgQuality := sumQuality / count
	avgDeep := sumDeep / count
	avgHeart := sumHeart / count

	agg := domain.AggregateMetrics{
		SleepLatency:     Round(15 - avgQuality/10),
		RemDuration:      Round(avgDuration * 0.25),
		SleepCycles:      Round(avgDuration / sleepCycleMinutes),
		Waso:             Round((100 - avgQuality) / 10),
		ConsistencyScore: Round(100 - deltas/count),
		SleepDebt:        Round((targetSleepMinutes - avgDuration) * count / 60),
		AvgHeartRate:     Round(avgHeart),
		Days:             n,
	}
	if avgDuration != 0 {
		agg.SleepEfficiency = Round(avgDeep / avgDuration * 100)
	}
	if agg.SleepDebt < 0 {
		agg.SleepDebt = 0
	}
	if n > 1 {
		agg.WeeklyTrend = recent[n-1].Quality - recent[0].Quality
	}
	return agg
}

// Recommend 按固定顺序逐项检查，互不排斥
func Recommend(agg domain.AggregateMetrics) []domain.Recommendation {
	recs := []domain.Recommendation{}
	if agg.Days == 0 {
		return recs
	}
	if agg.SleepEfficiency < 85 {
		recs = append(recs, domain.Recommendation{
			Title:       "Improve Sleep Efficiency",
			Description: fmt.Sprintf("Your sleep efficiency is %d%%. Try reducing screen time before bed.", agg.SleepEfficiency),
			Priority:    domain.PriorityHigh,
			Icon:        "⚡",
		})
	}
	if agg.ConsistencyScore < 70 {
		recs = append(recs, domain.Recommendation{
			Title:       "Maintain Sleep Schedule",
			Description: "Go to bed and wake up at the same time daily to improve consistency.",
			Priority:    domain.PriorityHigh,
			Icon:        "⏰",
		})
	}
	if agg.SleepDebt > 2 {
		recs = append(recs, domain.Recommendation{
			Title:       "Address Sleep Debt",
			Description: fmt.Sprintf("You have %d hours of sleep debt. Consider earlier bedtime.", agg.SleepDebt),
			Priority:    domain.PriorityMedium,
			Icon:        "💤",
		})
	}
	return recs
}

// Top 截取前 n 条；n<=0 表示不截取
func Top(recs []domain.Recommendation, n int) []domain.Recommendation {
	if n <= 0 || n >= len(recs) {
		return recs
	}
	return recs[:n]
}
