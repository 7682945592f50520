package domain

// SleepReport 归档的每日睡眠报告
// 唯一性约束：user_email + report_date
type SleepReport struct {
	ReportID         string `json:"report_id"`
	UserEmail        string `json:"user_email"`
	ReportDate       int    `json:"report_date"` // YYYYMMDD
	RecordCount      int    `json:"record_count"`
	AvgQuality       int    `json:"avg_quality"`
	SleepEfficiency  int    `json:"sleep_efficiency"`
	ConsistencyScore int    `json:"consistency_score"`
	SleepDebt        int    `json:"sleep_debt"`
	Summary          string `json:"summary"`
	Report           string `json:"report"` // ReportData JSON
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}
