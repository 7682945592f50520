package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"sleepsense/internal/domain"
	"sleepsense/internal/service"

	"go.uber.org/zap"
)

// SleepHandler 睡眠数据接口
type SleepHandler struct {
	data   service.SleepDataService
	logger *zap.Logger
}

func NewSleepHandler(data service.SleepDataService, logger *zap.Logger) *SleepHandler {
	return &SleepHandler{data: data, logger: logger}
}

// Import 导入睡眠数据
// POST /sleep/api/v1/import?format=json|csv  body 为原始文件内容
func (h *SleepHandler) Import(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	body, err := readBody(r, maxImportBody)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	res, err := h.data.Import(r.Context(), user, body, format)
	if err != nil {
		h.logger.Error("Import failed",
			zap.String("user", user),
			zap.String("format", format),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusOK, FailWith(res.Message, res))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// GetData 完整数据块
// GET /sleep/api/v1/data
func (h *SleepHandler) GetData(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	data, err := h.data.GetData(r.Context(), user)
	if err != nil {
		h.fail(w, "GetData", user, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(data))
}

// GetCurrent 当前快照
// GET /sleep/api/v1/current
func (h *SleepHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	cur, err := h.data.GetCurrent(r.Context(), user)
	if err != nil {
		h.fail(w, "GetCurrent", user, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cur))
}

// UpdateManualMetrics 手动录入
// POST /sleep/api/v1/metrics/manual
func (h *SleepHandler) UpdateManualMetrics(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	var m domain.ManualMetrics
	if err := readBodyJSON(r, maxJSONBody, &m); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body: "+err.Error()))
		return
	}
	data, err := h.data.UpdateManualMetrics(r.Context(), user, m)
	if err != nil {
		h.fail(w, "UpdateManualMetrics", user, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(data))
}

// GetCalculatedMetrics 最近 7 天滚动统计
// GET /sleep/api/v1/metrics/calculated
func (h *SleepHandler) GetCalculatedMetrics(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	agg, err := h.data.GetCalculatedMetrics(r.Context(), user)
	if err != nil {
		h.fail(w, "GetCalculatedMetrics", user, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(agg))
}

// GetRecommendations 建议
// GET /sleep/api/v1/recommendations?limit=N
func (h *SleepHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	limit, err := parseIntQuery(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("limit must be an integer"))
		return
	}
	recs, err := h.data.GetRecommendations(r.Context(), user, limit)
	if err != nil {
		h.fail(w, "GetRecommendations", user, err)
		return
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	writeJSON(w, http.StatusOK, Ok(recs))
}

// GetCalendar 日历
// GET /sleep/api/v1/calendar
func (h *SleepHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	cal, err := h.data.GetCalendar(r.Context(), user)
	if err != nil {
		h.fail(w, "GetCalendar", user, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cal))
}

// AddLifestyleEntry 生活习惯记录
// POST /sleep/api/v1/lifestyle
func (h *SleepHandler) AddLifestyleEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	var e domain.LifestyleRecord
	if err := readBodyJSON(r, maxJSONBody, &e); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body: "+err.Error()))
		return
	}
	saved, err := h.data.AddLifestyleEntry(r.Context(), user, e)
	if err != nil {
		h.fail(w, "AddLifestyleEntry", user, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved))
}

func (h *SleepHandler) fail(w http.ResponseWriter, op, user string, err error) {
	if !errors.Is(err, service.ErrUserRequired) {
		h.logger.Error(op+" failed", zap.String("user", user), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, Fail(err.Error()))
}

func formatFromContentType(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "csv"):
		return "csv"
	case strings.Contains(ct, "json"):
		return "json"
	default:
		return ""
	}
}
