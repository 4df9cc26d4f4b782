package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/service"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/health"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httputil"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
)

// Deps HTTP API 의존성
type Deps struct {
	Chat      *service.ChatService
	Memories  *service.MemoryService
	Facts     *service.UserMemoryService
	Summaries *service.SummaryService
	Pipeline  *service.ActivityPipeline
	Dashboard *service.DashboardService

	HealthChecks  map[string]health.CheckFunc
	Metrics       *metrics.Recorder // nil 이면 /metrics 미노출
	MetricsAPIKey string
	Logger        *slog.Logger
}

type api struct {
	Deps
	validate *validator.Validate
}

// Register HTTP API 라우트 등록.
func Register(mux *http.ServeMux, deps Deps) {
	a := &api{Deps: deps, validate: newValidator()}

	// GET /health - 헬스체크
	mux.HandleFunc("GET /health", a.handleHealth)

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", metrics.APIKeyAuth(deps.MetricsAPIKey, deps.Metrics.Handler()))
	}

	// 채팅
	mux.HandleFunc("POST /api/chat/send", a.handleChatSend)
	mux.HandleFunc("GET /api/chat/history/{user_id}", a.handleChatHistory)
	mux.HandleFunc("GET /api/chat/search/{user_id}", a.handleChatSearch)
	mux.HandleFunc("POST /api/chat/sessions/{session_id}/end", a.handleEndSession)

	a.registerMemoryRoutes(mux)
	a.registerStatsRoutes(mux)

	deps.Logger.Info("bondhu_http_api_registered", "metrics", deps.Metrics != nil)
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := health.Check(r.Context(), a.HealthChecks)
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

type (
	// HistoryResponse 채팅 기록 페이지 응답
	HistoryResponse struct {
		UserID    string              `json:"user_id"`
		SessionID string              `json:"session_id,omitempty"`
		Messages  []model.ChatMessage `json:"messages"`
		Limit     int                 `json:"limit"`
		Offset    int                 `json:"offset"`
		Count     int                 `json:"count"`
	}

	// SearchResponse 채팅 검색 응답
	SearchResponse struct {
		Query    string              `json:"query"`
		Messages []model.ChatMessage `json:"messages"`
		Count    int                 `json:"count"`
	}

	// SummaryResponse 세션 요약 결과 응답
	SummaryResponse struct {
		SessionID string                    `json:"session_id"`
		Recorded  bool                      `json:"recorded"`
		Reason    string                    `json:"reason,omitempty"`
		Memory    *model.ConversationMemory `json:"memory,omitempty"`
	}
)

func (a *api) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req ChatSendRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "chat_send_rejected", err)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "chat_send_rejected", err, "user_id", req.UserID)
		return
	}

	start := time.Now()
	result, err := a.Chat.Send(r.Context(), service.SendRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	duration := time.Since(start).Milliseconds()
	if err != nil {
		respondError(w, a.Logger, "chat_send_failed", err, "user_id", req.UserID, "duration", duration)
		return
	}

	a.Logger.Info("chat_send_success",
		"user_id", req.UserID,
		"session_id", result.SessionID,
		"message_count", result.MessageCount,
		"unlocked", len(result.NewlyUnlocked),
		"duration", duration,
	)
	respondJSON(w, http.StatusOK, result)
}

func (a *api) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "chat_history_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultHistoryLimit)
	if err != nil {
		respondError(w, a.Logger, "chat_history_rejected", err, "user_id", userID)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, a.Logger, "chat_history_rejected", err, "user_id", userID)
		return
	}
	sessionID := httputil.QueryString(r, "session_id")

	messages, err := a.Chat.History(r.Context(), userID, sessionID, limit, offset)
	if err != nil {
		respondError(w, a.Logger, "chat_history_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, HistoryResponse{
		UserID:    userID,
		SessionID: sessionID,
		Messages:  nonNil(messages),
		Limit:     min(limit, bconfig.MaxSearchLimit),
		Offset:    offset,
		Count:     len(messages),
	})
}

func (a *api) handleChatSearch(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if err := authorize(r, userID); err != nil {
		respondError(w, a.Logger, "chat_search_rejected", err, "user_id", userID)
		return
	}
	limit, err := queryInt(r, "limit", bconfig.DefaultChatSearchLimit)
	if err != nil {
		respondError(w, a.Logger, "chat_search_rejected", err, "user_id", userID)
		return
	}
	query := httputil.QueryString(r, "q")

	messages, err := a.Chat.Search(r.Context(), userID, query, limit)
	if err != nil {
		respondError(w, a.Logger, "chat_search_failed", err, "user_id", userID)
		return
	}
	respondJSON(w, http.StatusOK, SearchResponse{Query: query, Messages: nonNil(messages), Count: len(messages)})
}

func (a *api) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	var req EndSessionRequest
	if err := decodeAndValidate(r, a.validate, &req); err != nil {
		respondError(w, a.Logger, "end_session_rejected", err, "session_id", sessionID)
		return
	}
	if err := authorize(r, req.UserID); err != nil {
		respondError(w, a.Logger, "end_session_rejected", err, "user_id", req.UserID)
		return
	}

	outcome, err := a.Chat.EndSession(r.Context(), req.UserID, sessionID)
	if err != nil {
		respondError(w, a.Logger, "end_session_failed", err, "user_id", req.UserID, "session_id", sessionID)
		return
	}
	a.Logger.Info("session_ended", "user_id", req.UserID, "session_id", sessionID, "recorded", outcome.Recorded)
	respondJSON(w, http.StatusOK, toSummaryResponse(sessionID, outcome))
}

func toSummaryResponse(sessionID string, outcome service.SummaryOutcome) SummaryResponse {
	resp := SummaryResponse{SessionID: sessionID, Recorded: outcome.Recorded, Reason: outcome.Reason}
	if outcome.Recorded {
		mem := outcome.Memory
		resp.Memory = &mem
	}
	return resp
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
