package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sleepsense/internal/domain"
	"sleepsense/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockReportsRepo testify mock 版本的 Repository
type mockReportsRepo struct {
	mock.Mock
}

func (m *mockReportsRepo) GetReport(ctx context.Context, userEmail string, date int) (*domain.SleepReport, error) {
	args := m.Called(ctx, userEmail, date)
	rep, _ := args.Get(0).(*domain.SleepReport)
	return rep, args.Error(1)
}

func (m *mockReportsRepo) ListReports(ctx context.Context, userEmail string, startDate, endDate int, page, size int) ([]*domain.SleepReport, int, error) {
	args := m.Called(ctx, userEmail, startDate, endDate, page, size)
	reps, _ := args.Get(0).([]*domain.SleepReport)
	return reps, args.Int(1), args.Error(2)
}

func (m *mockReportsRepo) GetReportDates(ctx context.Context, userEmail string) ([]int, error) {
	args := m.Called(ctx, userEmail)
	dates, _ := args.Get(0).([]int)
	return dates, args.Error(1)
}

func (m *mockReportsRepo) SaveReport(ctx context.Context, report *domain.SleepReport) error {
	return m.Called(ctx, report).Error(0)
}

var _ repository.SleepReportsRepository = (*mockReportsRepo)(nil)

func newTestReportService(t *testing.T, repo repository.SleepReportsRepository) SleepReportService {
	t.Helper()
	data, _, _ := newTestDataService(t, SleepDataOptions{SeedDemo: true})
	return NewSleepReportService(repo, data, func() time.Time { return fixedNow }, zap.NewNop())
}

func TestSleepReportService_GenerateAndDetail(t *testing.T) {
	repo := repository.NewMemorySleepReportsRepo()
	svc := newTestReportService(t, repo)
	ctx := context.Background()

	rep, err := svc.GenerateReport(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 20240116, rep.ReportDate)
	assert.Equal(t, 7, rep.RecordCount)
	assert.Equal(t, 82, rep.AvgQuality)
	assert.Equal(t, 29, rep.SleepEfficiency)
	assert.Equal(t, 44, rep.ConsistencyScore)
	assert.Equal(t, 3, rep.SleepDebt)
	assert.NotEmpty(t, rep.ReportID)

	detail, err := svc.GetReportDetail(ctx, "ana@example.com", 20240116)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", detail.Data.UserEmail)
	assert.Len(t, detail.Data.DailyData, 7)
	assert.Equal(t, 29, detail.Metrics.SleepEfficiency)
	assert.Len(t, detail.Advice, 3)

	dates, err := svc.GetReportDates(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, []int{20240116}, dates)

	list, err := svc.GetReports(ctx, GetSleepReportsRequest{UserEmail: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 10, list.Size)
	require.Len(t, list.Items, 1)
	assert.Equal(t, rep.ReportID, list.Items[0].ID)
}

func TestSleepReportService_DetailNotFound(t *testing.T) {
	svc := newTestReportService(t, repository.NewMemorySleepReportsRepo())
	_, err := svc.GetReportDetail(context.Background(), "ana@example.com", 20240101)
	assert.ErrorIs(t, err, repository.ErrReportNotFound)

	_, err = svc.GetReportDetail(context.Background(), "ana@example.com", 0)
	assert.Error(t, err)
}

func TestSleepReportService_DefaultDateRange(t *testing.T) {
	repo := &mockReportsRepo{}
	repo.On("ListReports", mock.Anything, "ana@example.com", 20231217, 20240116, 2, 5).
		Return([]*domain.SleepReport{}, 0, nil)

	svc := newTestReportService(t, repo)
	resp, err := svc.GetReports(context.Background(), GetSleepReportsRequest{UserEmail: "ana@example.com", Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Page)
	assert.Empty(t, resp.Items)
	repo.AssertExpectations(t)
}

func TestSleepReportService_SaveError(t *testing.T) {
	repo := &mockReportsRepo{}
	repo.On("SaveReport", mock.Anything, mock.AnythingOfType("*domain.SleepReport")).Return(errors.New("db down"))

	svc := newTestReportService(t, repo)
	_, err := svc.GenerateReport(context.Background(), "ana@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	repo.AssertExpectations(t)
}

func TestSleepReportService_UserRequired(t *testing.T) {
	svc := newTestReportService(t, repository.NewMemorySleepReportsRepo())
	_, err := svc.GenerateReport(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserRequired)
	_, err = svc.GetReports(context.Background(), GetSleepReportsRequest{})
	assert.ErrorIs(t, err, ErrUserRequired)
}
