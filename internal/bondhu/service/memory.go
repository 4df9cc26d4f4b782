package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
)

// MemoryService 대화 기억 기록/조회/정리 서비스.
type MemoryService struct {
	repo    *repository.Repository
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewMemoryService 생성자.
func NewMemoryService(repo *repository.Repository, recorder *metrics.Recorder, logger *slog.Logger) *MemoryService {
	return &MemoryService{repo: repo, metrics: recorder, logger: logger, now: time.Now}
}

// ValidateMemoryInput 기억 기록 요청을 검증하고 토픽/개체를 정규화한 사본을 반환한다.
func ValidateMemoryInput(in model.MemoryInput) (model.MemoryInput, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.UserID == "" {
		return in, berrors.Invalid("user_id", "required")
	}
	if in.SessionID == "" {
		return in, berrors.Invalid("session_id", "required")
	}
	if len(in.MessageIDs) == 0 {
		return in, berrors.Invalid("message_ids", "must not be empty")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return in, berrors.Invalid("start_time", "start_time and end_time are required")
	}
	if in.StartTime.After(in.EndTime) {
		return in, berrors.Invalid("start_time", "must not be after end_time")
	}

	in.Topics = NormalizeTopics(in.Topics)
	in.Emotions = NormalizeTopics(in.Emotions)

	entities := make([]model.EntityRef, 0, len(in.Entities))
	seen := make(map[model.EntityRef]struct{}, len(in.Entities))
	for _, e := range in.Entities {
		ref := model.EntityRef{Name: NormalizeTopic(e.Name), Type: strings.TrimSpace(e.Type)}
		if ref.Name == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		entities = append(entities, ref)
	}
	in.Entities = entities

	if in.MessageCount <= 0 {
		in.MessageCount = len(in.MessageIDs)
	}
	return in, nil
}

// RecordConversationMemory 기억과 인덱스 행을 한 트랜잭션으로 기록한다.
// 같은 세션/메시지 수의 기억이 이미 있으면 ErrSummaryAlreadyClaimed.
func (s *MemoryService) RecordConversationMemory(ctx context.Context, in model.MemoryInput) (model.ConversationMemory, error) {
	in, err := ValidateMemoryInput(in)
	if err != nil {
		return model.ConversationMemory{}, err
	}

	mem, err := s.repo.InsertConversationMemory(ctx, in)
	if err != nil {
		if errors.Is(err, berrors.ErrSummaryAlreadyClaimed) {
			s.metrics.Summary("skipped")
			return model.ConversationMemory{}, err
		}
		return model.ConversationMemory{}, fmt.Errorf("record conversation memory failed: %w", err)
	}

	s.metrics.Summary("recorded")
	s.logger.Info("conversation_memory_recorded",
		"user_id", mem.UserID,
		"session_id", mem.SessionID,
		"message_count", mem.MessageCount,
		"topics", len(mem.Topics),
	)
	return mem, nil
}

// CleanupOldMemories olderThan 보다 오래된 기억과 인덱스 행을 삭제한다. userID 가 비어있으면 전체 사용자.
func (s *MemoryService) CleanupOldMemories(ctx context.Context, userID string, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, berrors.Invalid("older_than", "must be positive")
	}
	cutoff := s.now().Add(-olderThan)
	deleted, err := s.repo.DeleteMemoriesOlderThan(ctx, strings.TrimSpace(userID), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old memories failed: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("old_memories_cleaned", "user_id", userID, "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// ReindexUserMemories 저장된 기억의 토픽으로 토픽 인덱스 행을 다시 만든다.
func (s *MemoryService) ReindexUserMemories(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, berrors.Invalid("user_id", "required")
	}
	memories, err := s.repo.ListAllMemories(ctx, userID, bconfig.MaxTopicFrequencyRows)
	if err != nil {
		return 0, fmt.Errorf("load memories for reindex failed: %w", err)
	}
	for i := range memories {
		memories[i].Topics = NormalizeTopics(memories[i].Topics)
	}
	rebuilt, err := s.repo.ReplaceTopicIndex(ctx, userID, memories)
	if err != nil {
		return 0, fmt.Errorf("reindex memories failed: %w", err)
	}
	s.logger.Info("memory_topic_index_rebuilt", "user_id", userID, "memories", len(memories), "entries", rebuilt)
	return rebuilt, nil
}
