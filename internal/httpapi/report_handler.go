package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"sleepsense/internal/domain"
	"sleepsense/internal/repository"
	"sleepsense/internal/service"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler 睡眠报告接口
type ReportHandler struct {
	reports service.SleepReportService
	data    service.SleepDataService
	logger  *zap.Logger
}

func NewReportHandler(reports service.SleepReportService, data service.SleepDataService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, data: data, logger: logger}
}

// Reports 列表与生成共用同一路径
// GET  /sleep/api/v1/reports?startDate=20240101&endDate=20240131&page=1&size=10
// POST /sleep/api/v1/reports
func (h *ReportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListReports(w, r)
	case http.MethodPost:
		h.GenerateReport(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// GenerateReport 生成并归档当天报告
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	rep, err := h.reports.GenerateReport(r.Context(), user)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(rep))
}

// ListReports 报告列表
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}

	startDate, _ := parseIntQuery(r, "startDate", 0)
	endDate, _ := parseIntQuery(r, "endDate", 0)
	page, _ := parseIntQuery(r, "page", 1)
	size, _ := parseIntQuery(r, "size", 10)

	resp, err := h.reports.GetReports(r.Context(), service.GetSleepReportsRequest{
		UserEmail: user,
		StartDate: startDate,
		EndDate:   endDate,
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		h.logger.Error("ListReports failed", zap.String("user", user), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	result := map[string]any{
		"items": resp.Items,
		"pagination": map[string]any{
			"size":  resp.Size,
			"page":  resp.Page,
			"total": resp.Total,
		},
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// GetReportDates 已归档日期
// GET /sleep/api/v1/reports/dates
func (h *ReportHandler) GetReportDates(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	dates, err := h.reports.GetReportDates(r.Context(), user)
	if err != nil {
		h.logger.Error("GetReportDates failed", zap.String("user", user), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(dates))
}

// GetReportDetail 报告详情
// GET /sleep/api/v1/reports/detail?date=20240116
func (h *ReportHandler) GetReportDetail(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	date, err := parseIntQuery(r, "date", 0)
	if err != nil || date == 0 {
		writeJSON(w, http.StatusOK, Fail("date parameter is required (YYYYMMDD format)"))
		return
	}

	detail, err := h.reports.GetReportDetail(r.Context(), user, date)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("no report archived for %d", date)))
			return
		}
		h.logger.Error("GetReportDetail failed",
			zap.String("user", user),
			zap.Int("date", date),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

// ExportReport 下载 XLSX 报告；未指定 date 时导出当前数据
// GET /sleep/api/v1/reports/export?date=20240116
func (h *ReportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	date, err := parseIntQuery(r, "date", 0)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("date must be YYYYMMDD"))
		return
	}

	var data domain.ReportData
	if date == 0 {
		data, err = h.data.GetReportData(r.Context(), user)
	} else {
		var detail *service.SleepReportDetail
		detail, err = h.reports.GetReportDetail(r.Context(), user, date)
		if detail != nil {
			data = detail.Data
		}
	}
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	content, err := GenerateSleepReportExcel(data)
	if err != nil {
		h.logger.Error("ExportReport failed", zap.String("user", user), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to generate report: "+err.Error()))
		return
	}

	name := "sleep-report.xlsx"
	if date != 0 {
		name = fmt.Sprintf("sleep-report-%d.xlsx", date)
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
