package tracker

import (
	"sleepsense/internal/domain"
	"sleepsense/internal/metrics"
)

// DemoData 新用户的示例数据（一周）
func DemoData() domain.SleepData {
	daily := []domain.DailyRecord{
		{Date: "2024-01-09", Quality: 94, HeartRate: 61, SpO2: 98, Motion: 6, Snoring: 1, Duration: 502, DeepSleep: 178},
		{Date: "2024-01-10", Quality: 76, HeartRate: 66, SpO2: 96, Motion: 14, Snoring: 6, Duration: 418, DeepSleep: 105},
		{Date: "2024-01-11", Quality: 88, HeartRate: 64, SpO2: 97, Motion: 10, Snoring: 4, Duration: 468, DeepSleep: 142},
		{Date: "2024-01-12", Quality: 68, HeartRate: 70, SpO2: 95, Motion: 18, Snoring: 7, Duration: 422, DeepSleep: 89, Apnea: true},
		{Date: "2024-01-13", Quality: 92, HeartRate: 62, SpO2: 96, Motion: 8, Snoring: 2, Duration: 495, DeepSleep: 165},
		{Date: "2024-01-14", Quality: 72, HeartRate: 68, SpO2: 97, Motion: 15, Snoring: 5, Duration: 405, DeepSleep: 98},
		{Date: "2024-01-15", Quality: 85, HeartRate: 65, SpO2: 98, Motion: 12, Snoring: 3, Duration: 452, DeepSleep: 135},
	}

	calendar := make(map[string]domain.CalendarEntry, len(daily))
	for _, r := range daily {
		calendar[r.Date] = metrics.Calendar(r)
	}

	return domain.SleepData{
		CurrentMetrics: metrics.Current(daily[len(daily)-1]),
		DailyData:      daily,
		LifestyleData: []domain.LifestyleRecord{
			{Date: "2024-01-13", Caffeine: 1, ScreenTime: 4, Exercise: 45, Bedtime: "22:00", WakeTime: "06:15"},
			{Date: "2024-01-14", Caffeine: 3, ScreenTime: 8, Exercise: 0, Bedtime: "23:15", WakeTime: "07:00"},
			{Date: "2024-01-15", Caffeine: 2, ScreenTime: 6, Exercise: 30, Bedtime: "22:30", WakeTime: "06:30"},
		},
		AIInsights:   metrics.GenerateInsights(daily, domain.Insights{}),
		CalendarData: calendar,
	}
}
