package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
)

const replyHistoryLimit = 20

// HistoryCache 채팅 기록/검색 결과 캐시
type HistoryCache interface {
	GetHistory(ctx context.Context, userID, sessionID string, limit, offset int) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, userID, sessionID string, limit, offset int, messages []model.ChatMessage) error
	GetSearch(ctx context.Context, userID, query string, limit int) ([]model.ChatMessage, bool, error)
	SetSearch(ctx context.Context, userID, query string, limit int, messages []model.ChatMessage) error
	Invalidate(ctx context.Context, userID string) error
}

// RateLimiter 사용자별 요청 제한. 초과하면 RateLimitedError.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) error
}

// SendRequest 채팅 전송 요청
type SendRequest struct {
	UserID    string
	SessionID string
	Message   string
}

// SendResult 채팅 전송 결과
type SendResult struct {
	Response              string              `json:"response"`
	HasPersonalityContext bool                `json:"has_personality_context"`
	Timestamp             time.Time           `json:"timestamp"`
	SessionID             string              `json:"session_id"`
	MessageCount          int                 `json:"message_count"`
	NewlyUnlocked         []model.Achievement `json:"newly_unlocked"`
}

// ChatDeps ChatService 의존성 묶음
type ChatDeps struct {
	Repo       *repository.Repository
	Pipeline   *ActivityPipeline
	Contexts   *ContextBuilder
	Facts      *UserMemoryService
	Extractor  *Extractor // nil 이면 사실 추출 안 함
	Responder  Responder
	Summaries  *SummaryService
	Dispatcher SummaryDispatcher
	Lexicon    *Lexicon
	Cache      HistoryCache // nil 이면 캐시 없음
	Limiter    RateLimiter  // nil 이면 제한 없음
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// ChatService 채팅 턴 저장과 응답 생성, 기록 조회 서비스.
type ChatService struct {
	ChatDeps
	now func() time.Time
}

// NewChatService 생성자.
func NewChatService(deps ChatDeps) *ChatService {
	return &ChatService{ChatDeps: deps, now: time.Now}
}

// Send 사용자 턴 저장 → 사실 추출 → 활동 파이프라인 → 기억 컨텍스트 → 응답 → AI 턴 저장 → 요약 트리거.
// 추출/파이프라인/컨텍스트 실패는 기록만 하고 사용자 턴은 유지한다.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	userID := strings.TrimSpace(req.UserID)
	message := strings.TrimSpace(req.Message)
	if userID == "" {
		return SendResult{}, berrors.Invalid("user_id", "required")
	}
	if message == "" {
		return SendResult{}, berrors.Invalid("message", "required")
	}
	if s.Limiter != nil {
		if err := s.Limiter.Allow(ctx, userID); err != nil {
			s.Metrics.RateLimited()
			return SendResult{}, err
		}
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	userTurn, err := s.Repo.AppendMessage(ctx, model.ChatMessage{
		UserID:       userID,
		SessionID:    sessionID,
		SenderType:   model.SenderUser,
		Message:      message,
		MoodDetected: s.Lexicon.DetectMood(message),
		Timestamp:    s.now().UTC(),
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("persist user turn failed: %w", err)
	}
	s.Metrics.MessageAppended(string(model.SenderUser))

	s.extractFacts(ctx, userID, sessionID, message)

	result := SendResult{SessionID: sessionID, NewlyUnlocked: []model.Achievement{}}

	pipelineResult, err := s.Pipeline.HandleMessageAppended(ctx, model.MessageAppended{
		UserID:    userID,
		SessionID: sessionID,
		MessageID: userTurn.ID,
		Timestamp: userTurn.Timestamp,
	})
	if err == nil {
		result.NewlyUnlocked = pipelineResult.NewlyUnlocked
	}

	memCtx, err := s.Contexts.BuildContext(ctx, userID, message)
	if err != nil {
		s.Logger.Warn("chat_context_build_failed", "user_id", userID, "err", err)
		memCtx = MemoryContext{}
	}
	result.HasPersonalityContext = memCtx.HasPersonality()

	history, err := s.recentHistory(ctx, userID, sessionID, userTurn.ID)
	if err != nil {
		s.Logger.Warn("chat_history_load_failed", "user_id", userID, "session_id", sessionID, "err", err)
	}

	reply, err := s.Responder.Reply(ctx, ReplyRequest{
		UserID:    userID,
		SessionID: sessionID,
		Message:   message,
		Context:   memCtx,
		History:   history,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("generate reply failed: %w", err)
	}

	aiTurn, err := s.Repo.AppendMessage(ctx, model.ChatMessage{
		UserID:     userID,
		SessionID:  sessionID,
		SenderType: model.SenderAI,
		Message:    reply,
		Timestamp:  s.now().UTC(),
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("persist ai turn failed: %w", err)
	}
	s.Metrics.MessageAppended(string(model.SenderAI))
	result.Response = aiTurn.Message
	result.Timestamp = aiTurn.Timestamp

	s.invalidate(ctx, userID)

	count, err := s.Repo.CountSessionMessages(ctx, userID, sessionID, model.SenderUser)
	if err != nil {
		s.Logger.Warn("chat_count_messages_failed", "user_id", userID, "session_id", sessionID, "err", err)
		return result, nil
	}
	result.MessageCount = int(count)

	if IsSummaryDue(result.MessageCount, s.Summaries.Interval()) {
		job := model.SummaryJob{UserID: userID, SessionID: sessionID, MessageCount: result.MessageCount, RequestedAt: s.now().UTC()}
		if err := s.Dispatcher.Dispatch(ctx, job); err != nil {
			s.Logger.Warn("summary_dispatch_failed", "user_id", userID, "session_id", sessionID, "count", result.MessageCount, "err", err)
		}
	}
	return result, nil
}

// recentHistory 응답 생성용 최근 대화 (시간순, 현재 사용자 턴 제외)
func (s *ChatService) recentHistory(ctx context.Context, userID, sessionID string, currentID uint64) ([]model.ChatMessage, error) {
	recent, err := s.Repo.ListHistory(ctx, userID, sessionID, replyHistoryLimit+1, 0)
	if err != nil {
		return nil, err
	}
	recent = slices.DeleteFunc(recent, func(m model.ChatMessage) bool { return m.ID == currentID })
	slices.Reverse(recent)
	return recent, nil
}

// History 최신순 페이지 조회. 캐시를 먼저 확인한다.
func (s *ChatService) History(ctx context.Context, userID, sessionID string, limit, offset int) ([]model.ChatMessage, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if limit <= 0 {
		return nil, berrors.Invalid("limit", "must be positive")
	}
	if offset < 0 {
		return nil, berrors.Invalid("offset", "must not be negative")
	}
	limit = min(limit, bconfig.MaxSearchLimit)

	if s.Cache != nil {
		if cached, ok, err := s.Cache.GetHistory(ctx, userID, sessionID, limit, offset); err != nil {
			s.Logger.Warn("chat_history_cache_get_failed", "user_id", userID, "err", err)
		} else if ok {
			return cached, nil
		}
	}

	messages, err := s.Repo.ListHistory(ctx, userID, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list history failed: %w", err)
	}

	if s.Cache != nil {
		if err := s.Cache.SetHistory(ctx, userID, sessionID, limit, offset, messages); err != nil {
			s.Logger.Warn("chat_history_cache_set_failed", "user_id", userID, "err", err)
		}
	}
	return messages, nil
}

// Search 메시지 본문 부분 일치 검색. limit 은 최대 100.
func (s *ChatService) Search(ctx context.Context, userID, query string, limit int) ([]model.ChatMessage, error) {
	userID = strings.TrimSpace(userID)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, berrors.Invalid("q", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if cached, ok, err := s.Cache.GetSearch(ctx, userID, query, limit); err != nil {
			s.Logger.Warn("chat_search_cache_get_failed", "user_id", userID, "err", err)
		} else if ok {
			return cached, nil
		}
	}

	messages, err := s.Repo.SearchMessages(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search messages failed: %w", err)
	}

	if s.Cache != nil {
		if err := s.Cache.SetSearch(ctx, userID, query, limit, messages); err != nil {
			s.Logger.Warn("chat_search_cache_set_failed", "user_id", userID, "err", err)
		}
	}
	return messages, nil
}

// EndSession 세션의 남은 구간을 바로 요약한다.
func (s *ChatService) EndSession(ctx context.Context, userID, sessionID string) (SummaryOutcome, error) {
	outcome, err := s.Summaries.ProcessJob(ctx, model.SummaryJob{
		UserID:      userID,
		SessionID:   sessionID,
		Force:       true,
		RequestedAt: s.now().UTC(),
	})
	if err != nil {
		return SummaryOutcome{}, err
	}
	return outcome, nil
}

func (s *ChatService) invalidate(ctx context.Context, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		s.Logger.Warn("chat_cache_invalidate_failed", "user_id", userID, "err", err)
	}
}

// extractFacts 메시지에서 뽑은 사실을 기록한다. 실패해도 채팅은 계속된다.
func (s *ChatService) extractFacts(ctx context.Context, userID, sessionID, message string) {
	if s.Extractor == nil || s.Facts == nil {
		return
	}
	items := s.Extractor.Extract(message)
	if len(items) == 0 {
		return
	}
	for i := range items {
		items[i].Metadata["session_id"] = sessionID
	}
	stored, err := s.Facts.AddMemoriesBatch(ctx, userID, items)
	if err != nil {
		s.Logger.Warn("chat_fact_extract_failed", "user_id", userID, "session_id", sessionID, "stored", len(stored), "err", err)
		return
	}
	s.Logger.Debug("chat_facts_extracted", "user_id", userID, "count", len(stored))
}
