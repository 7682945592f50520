package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sleepsense/internal/domain"

	"github.com/google/uuid"
)

// MemorySleepReportsRepo 数据库关闭时使用的内存实现
type MemorySleepReportsRepo struct {
	mu      sync.RWMutex
	reports map[string]map[int]domain.SleepReport // userEmail -> date -> report
}

func NewMemorySleepReportsRepo() *MemorySleepReportsRepo {
	return &MemorySleepReportsRepo{
		reports: map[string]map[int]domain.SleepReport{},
	}
}

var _ SleepReportsRepository = (*MemorySleepReportsRepo)(nil)

func (r *MemorySleepReportsRepo) GetReport(_ context.Context, userEmail string, date int) (*domain.SleepReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.reports[userEmail][date]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &rep, nil
}

func (r *MemorySleepReportsRepo) ListReports(_ context.Context, userEmail string, startDate, endDate int, page, size int) ([]*domain.SleepReport, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.SleepReport, 0)
	for date, rep := range r.reports[userEmail] {
		if date < startDate || date > endDate {
			continue
		}
		rep := rep
		all = append(all, &rep)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ReportDate > all[j].ReportDate
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemorySleepReportsRepo) GetReportDates(_ context.Context, userEmail string) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dates := make([]int, 0, len(r.reports[userEmail]))
	for d := range r.reports[userEmail] {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(dates)))
	return dates, nil
}

func (r *MemorySleepReportsRepo) SaveReport(_ context.Context, report *domain.SleepReport) error {
	if report == nil || report.UserEmail == "" || report.ReportDate == 0 {
		return fmt.Errorf("user_email and report_date are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byDate, ok := r.reports[report.UserEmail]
	if !ok {
		byDate = map[int]domain.SleepReport{}
		r.reports[report.UserEmail] = byDate
	}

	now := time.Now().Unix()
	if existing, ok := byDate[report.ReportDate]; ok {
		report.ReportID = existing.ReportID
		report.CreatedAt = existing.CreatedAt
	} else {
		report.ReportID = uuid.NewString()
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	byDate[report.ReportDate] = *report
	return nil
}
