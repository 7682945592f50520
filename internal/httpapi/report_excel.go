package httpapi

import (
	"bytes"
	"fmt"

	"sleepsense/internal/domain"
	"sleepsense/internal/metrics"

	"github.com/xuri/excelize/v2"
)

const (
	sheetDaily           = "Daily Data"
	sheetSummary         = "Summary"
	sheetRecommendations = "Recommendations"
)

// DailyDataHeader 日记录表头
var DailyDataHeader = []string{
	"Date",
	"Quality",
	"Heart Rate",
	"SpO2",
	"Motion",
	"Snoring",
	"Duration (min)",
	"Deep Sleep (min)",
	"Apnea",
	"Type",
}

// GenerateSleepReportExcel 生成报告 Excel：日记录、汇总、建议三张表
func GenerateSleepReportExcel(data domain.ReportData) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 之前不能关闭
	defer f.Close()

	// 默认的 Sheet1 作为第一张表
	if err := f.SetSheetName("Sheet1", sheetDaily); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{sheetSummary, sheetRecommendations} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeDailySheet(f, data.DailyData, headerStyle); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, data, headerStyle); err != nil {
		return nil, err
	}
	// 个性化建议在前，AI 洞察的通用建议在后
	recs := metrics.Recommend(metrics.Derive(data.DailyData))
	recs = append(recs, data.AIInsights.Recommendations...)
	if err := writeRecommendationsSheet(f, recs, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDailySheet(f *excelize.File, records []domain.DailyRecord, headerStyle int) error {
	if err := writeHeader(f, sheetDaily, DailyDataHeader, headerStyle); err != nil {
		return err
	}
	for i, rec := range records {
		row := []interface{}{
			rec.Date,
			rec.Quality,
			rec.HeartRate,
			rec.SpO2,
			rec.Motion,
			rec.Snoring,
			rec.Duration,
			rec.DeepSleep,
			yesNo(rec.Apnea),
			string(metrics.Classify(rec, metrics.CalendarRestlessMotionThreshold)),
		}
		if err := setRow(f, sheetDaily, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetDaily, "A", "A", 14); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetDaily, "B", "J", 16); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	// 冻结表头
	if err := f.SetPanes(sheetDaily, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, data domain.ReportData, headerStyle int) error {
	if err := writeHeader(f, sheetSummary, []string{"Metric", "Value"}, headerStyle); err != nil {
		return err
	}

	agg := metrics.Derive(data.DailyData)
	cur := data.CurrentMetrics
	rows := [][]interface{}{
		{"User", data.UserEmail},
		{"Exported At", data.ExportedAt},
		{"Records", len(data.DailyData)},
		{"Current Quality", cur.Quality},
		{"Current Duration", cur.Duration},
		{"Current Type", string(cur.Type)},
		{"Sleep Efficiency (%)", agg.SleepEfficiency},
		{"Sleep Latency (min)", agg.SleepLatency},
		{"REM Duration (min)", agg.RemDuration},
		{"Sleep Cycles", agg.SleepCycles},
		{"WASO (min)", agg.Waso},
		{"Consistency Score", agg.ConsistencyScore},
		{"Sleep Debt (h)", agg.SleepDebt},
		{"Avg Heart Rate", agg.AvgHeartRate},
		{"Weekly Trend", agg.WeeklyTrend},
		{"Summary", data.AIInsights.Summary},
	}
	for _, d := range data.AIInsights.Disorders {
		rows = append(rows, []interface{}{d.Name + " Risk", d.Risk})
	}
	for i, row := range rows {
		if err := setRow(f, sheetSummary, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetSummary, "A", "A", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetSummary, "B", "B", 60); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func writeRecommendationsSheet(f *excelize.File, recs []domain.Recommendation, headerStyle int) error {
	if err := writeHeader(f, sheetRecommendations, []string{"Title", "Description", "Priority"}, headerStyle); err != nil {
		return err
	}
	for i, rec := range recs {
		if err := setRow(f, sheetRecommendations, i+2, []interface{}{rec.Title, rec.Description, string(rec.Priority)}); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetRecommendations, "A", "A", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetRecommendations, "B", "B", 80); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
