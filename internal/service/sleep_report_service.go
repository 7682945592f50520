package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/metrics"
	"sleepsense/internal/repository"

	"go.uber.org/zap"
)

// SleepReportService 睡眠报告归档服务
type SleepReportService interface {
	// GenerateReport 生成当天报告并归档（同一天重复生成会覆盖）
	GenerateReport(ctx context.Context, user string) (*domain.SleepReport, error)

	// GetReports 报告列表
	GetReports(ctx context.Context, req GetSleepReportsRequest) (*GetSleepReportsResponse, error)

	// GetReportDetail 报告详情（含导出时的完整数据）
	GetReportDetail(ctx context.Context, user string, date int) (*SleepReportDetail, error)

	// GetReportDates 已归档日期
	GetReportDates(ctx context.Context, user string) ([]int, error)
}

// GetSleepReportsRequest 获取报告列表请求
type GetSleepReportsRequest struct {
	UserEmail string // 必填
	StartDate int    // YYYYMMDD
	EndDate   int    // YYYYMMDD
	Page      int    // 默认 1
	PageSize  int    // 默认 10
}

// GetSleepReportsResponse 获取报告列表响应
type GetSleepReportsResponse struct {
	Items []*SleepReportOutlineDTO `json:"items"`
	Total int                      `json:"total"`
	Page  int                      `json:"page"`
	Size  int                      `json:"size"`
}

// SleepReportOutlineDTO 报告概要（不含完整 report 字段）
type SleepReportOutlineDTO struct {
	ID               string `json:"id"`
	Date             int    `json:"date"`
	RecordCount      int    `json:"recordCount"`
	AvgQuality       int    `json:"avgQuality"`
	SleepEfficiency  int    `json:"sleepEfficiency"`
	ConsistencyScore int    `json:"consistencyScore"`
	SleepDebt        int    `json:"sleepDebt"`
	Summary          string `json:"summary"`
	UpdatedAt        int64  `json:"updatedAt"`
}

// SleepReportDetail 报告详情
type SleepReportDetail struct {
	Report  *domain.SleepReport     `json:"report"`
	Data    domain.ReportData       `json:"data"`
	Metrics domain.AggregateMetrics `json:"metrics"`
	Advice  []domain.Recommendation `json:"recommendations"`
}

type sleepReportService struct {
	reportsRepo repository.SleepReportsRepository
	data        SleepDataService
	now         func() time.Time
	logger      *zap.Logger
}

// NewSleepReportService 创建 SleepReportService
func NewSleepReportService(reportsRepo repository.SleepReportsRepository, data SleepDataService, now func() time.Time, logger *zap.Logger) SleepReportService {
	if now == nil {
		now = time.Now
	}
	return &sleepReportService{
		reportsRepo: reportsRepo,
		data:        data,
		now:         now,
		logger:      logger,
	}
}

func (s *sleepReportService) GenerateReport(ctx context.Context, user string) (*domain.SleepReport, error) {
	if user == "" {
		return nil, ErrUserRequired
	}
	data, err := s.data.GetReportData(ctx, user)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal report data: %w", err)
	}

	agg := metrics.Derive(data.DailyData)
	report := &domain.SleepReport{
		UserEmail:        user,
		ReportDate:       dateToInt(s.now().UTC()),
		RecordCount:      len(data.DailyData),
		AvgQuality:       avgQuality(data.DailyData),
		SleepEfficiency:  agg.SleepEfficiency,
		ConsistencyScore: agg.ConsistencyScore,
		SleepDebt:        agg.SleepDebt,
		Summary:          data.AIInsights.Summary,
		Report:           string(raw),
	}
	if err := s.reportsRepo.SaveReport(ctx, report); err != nil {
		s.logger.Error("failed to save sleep report",
			zap.String("user", user),
			zap.Int("date", report.ReportDate),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to save sleep report: %w", err)
	}

	s.logger.Info("Sleep report archived",
		zap.String("user", user),
		zap.Int("date", report.ReportDate),
		zap.Int("records", report.RecordCount),
	)
	return report, nil
}

func (s *sleepReportService) GetReports(ctx context.Context, req GetSleepReportsRequest) (*GetSleepReportsResponse, error) {
	if req.UserEmail == "" {
		return nil, ErrUserRequired
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 10
	}

	// 默认日期范围：最近 30 天
	startDate, endDate := req.StartDate, req.EndDate
	if startDate == 0 || endDate == 0 {
		now := s.now().UTC()
		endDate = dateToInt(now)
		startDate = dateToInt(now.AddDate(0, 0, -30))
	}

	reports, total, err := s.reportsRepo.ListReports(ctx, req.UserEmail, startDate, endDate, page, size)
	if err != nil {
		s.logger.Error("failed to list sleep reports",
			zap.String("user", req.UserEmail),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list sleep reports: %w", err)
	}

	items := make([]*SleepReportOutlineDTO, 0, len(reports))
	for _, r := range reports {
		items = append(items, &SleepReportOutlineDTO{
			ID:               r.ReportID,
			Date:             r.ReportDate,
			RecordCount:      r.RecordCount,
			AvgQuality:       r.AvgQuality,
			SleepEfficiency:  r.SleepEfficiency,
			ConsistencyScore: r.ConsistencyScore,
			SleepDebt:        r.SleepDebt,
			Summary:          r.Summary,
			UpdatedAt:        r.UpdatedAt,
		})
	}

	return &GetSleepReportsResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

func (s *sleepReportService) GetReportDetail(ctx context.Context, user string, date int) (*SleepReportDetail, error) {
	if user == "" {
		return nil, ErrUserRequired
	}
	if date == 0 {
		return nil, fmt.Errorf("date is required")
	}

	report, err := s.reportsRepo.GetReport(ctx, user, date)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, err
		}
		s.logger.Error("failed to get sleep report detail",
			zap.String("user", user),
			zap.Int("date", date),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get sleep report detail: %w", err)
	}

	detail := &SleepReportDetail{Report: report}
	if report.Report != "" {
		if err := json.Unmarshal([]byte(report.Report), &detail.Data); err != nil {
			return nil, fmt.Errorf("decode archived report: %w", err)
		}
	}
	detail.Metrics = metrics.Derive(detail.Data.DailyData)
	detail.Advice = metrics.Recommend(detail.Metrics)
	return detail, nil
}

func (s *sleepReportService) GetReportDates(ctx context.Context, user string) ([]int, error) {
	if user == "" {
		return nil, ErrUserRequired
	}
	dates, err := s.reportsRepo.GetReportDates(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get report dates: %w", err)
	}
	return dates, nil
}

// dateToInt 将时间转换为 YYYYMMDD 格式的整数
func dateToInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func avgQuality(records []domain.DailyRecord) int {
	recent := records
	if len(recent) > metrics.WindowSize {
		recent = recent[len(recent)-metrics.WindowSize:]
	}
	if len(recent) == 0 {
		return 0
	}
	sum := 0
	for _, r := range recent {
		sum += r.Quality
	}
	return metrics.Round(float64(sum) / float64(len(recent)))
}
