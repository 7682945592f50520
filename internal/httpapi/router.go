package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 基于标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSleepRoutes 睡眠数据路由
func (r *Router) RegisterSleepRoutes(h *SleepHandler) {
	r.Handle("/sleep/api/v1/import", method(http.MethodPost, h.Import))
	r.Handle("/sleep/api/v1/data", method(http.MethodGet, h.GetData))
	r.Handle("/sleep/api/v1/current", method(http.MethodGet, h.GetCurrent))
	r.Handle("/sleep/api/v1/metrics/manual", method(http.MethodPost, h.UpdateManualMetrics))
	r.Handle("/sleep/api/v1/metrics/calculated", method(http.MethodGet, h.GetCalculatedMetrics))
	r.Handle("/sleep/api/v1/recommendations", method(http.MethodGet, h.GetRecommendations))
	r.Handle("/sleep/api/v1/calendar", method(http.MethodGet, h.GetCalendar))
	r.Handle("/sleep/api/v1/lifestyle", method(http.MethodPost, h.AddLifestyleEntry))
}

// RegisterReportRoutes 报告路由
func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle("/sleep/api/v1/reports", h.Reports)
	r.Handle("/sleep/api/v1/reports/dates", method(http.MethodGet, h.GetReportDates))
	r.Handle("/sleep/api/v1/reports/detail", method(http.MethodGet, h.GetReportDetail))
	r.Handle("/sleep/api/v1/reports/export", method(http.MethodGet, h.ExportReport))
}

// RegisterAssistantRoutes 对话与语音路由
func (r *Router) RegisterAssistantRoutes(h *AssistantHandler) {
	r.Handle("/assistant/api/v1/chat", method(http.MethodPost, h.Chat))
	r.Handle("/assistant/api/v1/greeting", method(http.MethodGet, h.Greeting))
	r.Handle("/assistant/api/v1/voice", method(http.MethodPost, h.Voice))
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("/health", h.HealthCheck)
	r.Handle("/healthz", h.HealthCheck)
}
