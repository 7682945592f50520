package httpapi

import (
	"net/http"
	"strings"
	"time"

	"sleepsense/internal/assistant"
	"sleepsense/internal/domain"
	"sleepsense/internal/service"

	"go.uber.org/zap"
)

// AssistantHandler 睡眠教练对话与语音指令
type AssistantHandler struct {
	data   service.SleepDataService
	voice  *assistant.Dispatcher
	now    func() time.Time
	logger *zap.Logger
}

func NewAssistantHandler(data service.SleepDataService, voice *assistant.Dispatcher, logger *zap.Logger) *AssistantHandler {
	if voice == nil {
		voice = assistant.NewDispatcher(nil)
	}
	return &AssistantHandler{data: data, voice: voice, now: time.Now, logger: logger}
}

// ChatRequest 对话请求；age 可选
type ChatRequest struct {
	Message string `json:"message"`
	Age     int    `json:"age"`
}

// VoiceRequest 语音指令（已转写文本）
type VoiceRequest struct {
	Command string `json:"command"`
}

// VoiceResponse 语音指令结果；指令包含数据更新时附带更新后的快照
type VoiceResponse struct {
	Command assistant.Command      `json:"command"`
	Current *domain.CurrentMetrics `json:"currentMetrics,omitempty"`
}

// Chat POST /assistant/api/v1/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusOK, Fail("message is required"))
		return
	}

	cur, err := h.data.GetCurrent(r.Context(), user)
	if err != nil {
		h.logger.Error("Chat failed to load current metrics", zap.String("user", user), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(assistant.Chat(req.Message, req.Age, cur)))
}

// Greeting GET /assistant/api/v1/greeting?age=30
func (h *AssistantHandler) Greeting(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	age, err := parseIntQuery(r, "age", 0)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	cur, err := h.data.GetCurrent(r.Context(), user)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{
		"greeting": assistant.Greeting(age, cur, h.now()),
	}))
}

// Voice POST /assistant/api/v1/voice
func (h *AssistantHandler) Voice(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromReq(w, r)
	if !ok {
		return
	}
	var req VoiceRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body: "+err.Error()))
		return
	}

	cur, err := h.data.GetCurrent(r.Context(), user)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	resp := VoiceResponse{Command: h.voice.Dispatch(req.Command, cur)}
	if resp.Command.Update != nil && !resp.Command.Update.IsEmpty() {
		data, err := h.data.UpdateManualMetrics(r.Context(), user, *resp.Command.Update)
		if err != nil {
			h.logger.Error("Voice update failed", zap.String("user", user), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
		resp.Current = &data.CurrentMetrics
	}

	h.logger.Debug("Voice command dispatched",
		zap.String("user", user),
		zap.String("action", string(resp.Command.Action)),
	)
	writeJSON(w, http.StatusOK, Ok(resp))
}
