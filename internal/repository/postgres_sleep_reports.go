package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sleepsense/internal/domain"
)

// PostgresSleepReportsRepository 睡眠报告 Repository 实现
type PostgresSleepReportsRepository struct {
	db *sql.DB
}

// NewPostgresSleepReportsRepository 创建睡眠报告 Repository
func NewPostgresSleepReportsRepository(db *sql.DB) *PostgresSleepReportsRepository {
	return &PostgresSleepReportsRepository{db: db}
}

// 确保实现了接口
var _ SleepReportsRepository = (*PostgresSleepReportsRepository)(nil)

const reportColumns = `
			report_id::text,
			user_email,
			report_date,
			record_count,
			avg_quality,
			sleep_efficiency,
			consistency_score,
			sleep_debt,
			COALESCE(summary, '') as summary,
			COALESCE(report, '') as report,
			EXTRACT(EPOCH FROM created_at)::bigint as created_at,
			EXTRACT(EPOCH FROM updated_at)::bigint as updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (*domain.SleepReport, error) {
	var report domain.SleepReport
	err := s.Scan(
		&report.ReportID,
		&report.UserEmail,
		&report.ReportDate,
		&report.RecordCount,
		&report.AvgQuality,
		&report.SleepEfficiency,
		&report.ConsistencyScore,
		&report.SleepDebt,
		&report.Summary,
		&report.Report,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetReport 根据用户和日期获取报告详情
func (r *PostgresSleepReportsRepository) GetReport(ctx context.Context, userEmail string, date int) (*domain.SleepReport, error) {
	if userEmail == "" || date == 0 {
		return nil, fmt.Errorf("user_email and date are required")
	}

	query := `
		SELECT ` + reportColumns + `
		FROM sleep_report
		WHERE user_email = $1
		  AND report_date = $2
	`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, userEmail, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get sleep report: %w", err)
	}
	return report, nil
}

// ListReports 查询报告列表（支持分页）
func (r *PostgresSleepReportsRepository) ListReports(ctx context.Context, userEmail string, startDate, endDate int, page, size int) ([]*domain.SleepReport, int, error) {
	if userEmail == "" {
		return nil, 0, fmt.Errorf("user_email is required")
	}

	// 计算总数
	countQuery := `
		SELECT COUNT(*)
		FROM sleep_report
		WHERE user_email = $1
		  AND report_date >= $2
		  AND report_date <= $3
	`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userEmail, startDate, endDate).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sleep reports: %w", err)
	}

	// 分页参数
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	offset := (page - 1) * size

	query := `
		SELECT ` + reportColumns + `
		FROM sleep_report
		WHERE user_email = $1
		  AND report_date >= $2
		  AND report_date <= $3
		ORDER BY report_date DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.QueryContext(ctx, query, userEmail, startDate, endDate, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sleep reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*domain.SleepReport, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sleep report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sleep reports: %w", err)
	}

	return reports, total, nil
}

// GetReportDates 获取用户所有已归档日期
func (r *PostgresSleepReportsRepository) GetReportDates(ctx context.Context, userEmail string) ([]int, error) {
	if userEmail == "" {
		return nil, fmt.Errorf("user_email is required")
	}

	query := `
		SELECT report_date
		FROM sleep_report
		WHERE user_email = $1
		ORDER BY report_date DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to get report dates: %w", err)
	}
	defer rows.Close()

	dates := make([]int, 0)
	for rows.Next() {
		var date int
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dates: %w", err)
	}

	return dates, nil
}

// SaveReport 保存或更新报告（user_email + report_date 冲突时更新）
func (r *PostgresSleepReportsRepository) SaveReport(ctx context.Context, report *domain.SleepReport) error {
	if report == nil || report.UserEmail == "" || report.ReportDate == 0 {
		return fmt.Errorf("user_email and report_date are required")
	}

	now := time.Now()
	query := `
		INSERT INTO sleep_report (
			user_email, report_date, record_count, avg_quality,
			sleep_efficiency, consistency_score, sleep_debt,
			summary, report, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_email, report_date) DO UPDATE SET
			record_count = EXCLUDED.record_count,
			avg_quality = EXCLUDED.avg_quality,
			sleep_efficiency = EXCLUDED.sleep_efficiency,
			consistency_score = EXCLUDED.consistency_score,
			sleep_debt = EXCLUDED.sleep_debt,
			summary = EXCLUDED.summary,
			report = EXCLUDED.report,
			updated_at = EXCLUDED.updated_at
		RETURNING report_id::text
	`
	err := r.db.QueryRowContext(ctx, query,
		report.UserEmail,
		report.ReportDate,
		report.RecordCount,
		report.AvgQuality,
		report.SleepEfficiency,
		report.ConsistencyScore,
		report.SleepDebt,
		report.Summary,
		report.Report,
		now,
	).Scan(&report.ReportID)
	if err != nil {
		return fmt.Errorf("failed to save sleep report: %w", err)
	}

	report.UpdatedAt = now.Unix()
	if report.CreatedAt == 0 {
		report.CreatedAt = report.UpdatedAt
	}
	return nil
}
