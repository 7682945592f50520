package repository

import (
	"context"
	"errors"

	"sleepsense/internal/domain"
)

// ErrReportNotFound 报告不存在
var ErrReportNotFound = errors.New("sleep report not found")

// SleepReportsRepository 睡眠报告归档 Repository 接口
type SleepReportsRepository interface {
	// GetReport 根据用户和日期（YYYYMMDD）获取报告详情
	GetReport(ctx context.Context, userEmail string, date int) (*domain.SleepReport, error)

	// ListReports 查询报告列表（按日期倒序，支持分页）
	ListReports(ctx context.Context, userEmail string, startDate, endDate int, page, size int) ([]*domain.SleepReport, int, error)

	// GetReportDates 获取用户所有已归档日期（倒序）
	GetReportDates(ctx context.Context, userEmail string) ([]int, error)

	// SaveReport 保存或更新报告，唯一性约束：user_email + report_date
	// 成功后回填 report.ReportID
	SaveReport(ctx context.Context, report *domain.SleepReport) error
}
