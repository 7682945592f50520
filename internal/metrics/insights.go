package metrics

import (
	"fmt"

	"sleepsense/internal/domain"
)

// GenerateInsights 基于最近 WindowSize 条记录生成 AI 洞察
// 没有记录时沿用 previous
func GenerateInsights(records []domain.DailyRecord, previous domain.Insights) domain.Insights {
	recent := window(records)
	if len(recent) == 0 {
		return previous
	}

	var sumQuality, sumDeep float64
	apneaCount := 0
	for _, r := range recent {
		sumQuality += float64(r.Quality)
		sumDeep += float64(r.DeepSleep)
		if r.Apnea {
			apneaCount++
		}
	}
	avgQuality := sumQuality / float64(len(recent))
	avgDeep := sumDeep / float64(len(recent))

	var verdict string
	switch {
	case avgQuality > 80:
		verdict = "Excellent work!"
	case avgQuality > 70:
		verdict = "Good progress, keep it up!"
	default:
		verdict = "Consider improving your sleep habits."
	}

	return domain.Insights{
		Summary: fmt.Sprintf("Your average sleep quality is %d%%. %s", Round(avgQuality), verdict),
		Disorders: []domain.DisorderRisk{
			riskOf("Sleep Apnea", apneaCount > 2, apneaCount > 0),
			riskOf("Insomnia", avgQuality < 60, avgQuality < 75),
			riskOf("Deep Sleep Deficiency", avgDeep < 90, avgDeep < 120),
		},
		Recommendations: []domain.Recommendation{
			{Title: "Sleep Schedule", Description: "Maintain consistent bedtime and wake time", Priority: domain.PriorityHigh},
			{Title: "Sleep Environment", Description: "Keep bedroom cool, dark, and quiet", Priority: domain.PriorityMedium},
			{Title: "Pre-sleep Routine", Description: "Avoid screens 1 hour before bed", Priority: domain.PriorityMedium},
		},
	}
}

func riskOf(name string, high, medium bool) domain.DisorderRisk {
	switch {
	case high:
		return domain.DisorderRisk{Name: name, Risk: "High", Color: "red"}
	case medium:
		return domain.DisorderRisk{Name: name, Risk: "Medium", Color: "yellow"}
	default:
		return domain.DisorderRisk{Name: name, Risk: "Low", Color: "green"}
	}
}
