package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// GetRecentSummaries 최근 days 일 이내에 시작된 기억 (최신순)
func (s *MemoryService) GetRecentSummaries(ctx context.Context, userID string, days, limit int) ([]model.ConversationMemory, error) {
	if days <= 0 {
		return nil, berrors.Invalid("days", "must be positive")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -days)
	memories, err := s.repo.RecentMemories(ctx, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent summaries failed: %w", err)
	}
	return memories, nil
}

// SearchByTopic 인덱스로 세션을 찾은 뒤 기억의 토픽 집합으로 다시 확인한다.
func (s *MemoryService) SearchByTopic(ctx context.Context, userID, topic string, limit int) ([]model.ConversationMemory, error) {
	normalized := NormalizeTopic(topic)
	if normalized == "" {
		return nil, berrors.Invalid("topic", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.SessionsByTopic(ctx, userID, normalized, bconfig.MaxSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("resolve topic sessions failed: %w", err)
	}
	if len(sessions) == 0 {
		return []model.ConversationMemory{}, nil
	}

	candidates, err := s.repo.MemoriesBySessions(ctx, userID, sessions, bconfig.MaxSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("load topic memories failed: %w", err)
	}

	out := make([]model.ConversationMemory, 0, limit)
	for _, m := range candidates {
		if !slices.Contains(m.Topics, normalized) {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetTopicFrequency 토픽별 빈도 (빈도 내림차순, 토픽 오름차순). 상한 행 수를 둔다.
func (s *MemoryService) GetTopicFrequency(ctx context.Context, userID string) ([]model.TopicCount, error) {
	freq, err := s.repo.TopicFrequency(ctx, userID, bconfig.MaxTopicFrequencyRows)
	if err != nil {
		return nil, fmt.Errorf("get topic frequency failed: %w", err)
	}
	return freq, nil
}

// GetMostDiscussedTopics 빈도 상위 limit 개 토픽
func (s *MemoryService) GetMostDiscussedTopics(ctx context.Context, userID string, limit int) ([]model.TopicCount, error) {
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	freq, err := s.repo.TopicFrequency(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get most discussed topics failed: %w", err)
	}
	return freq, nil
}

// SearchByEmotion 감정 태그로 검색
func (s *MemoryService) SearchByEmotion(ctx context.Context, userID, emotion string, limit int) ([]model.ConversationMemory, error) {
	emotion = NormalizeTopic(emotion)
	if emotion == "" {
		return nil, berrors.Invalid("emotion", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	memories, err := s.repo.MemoriesByEmotion(ctx, userID, emotion, limit)
	if err != nil {
		return nil, fmt.Errorf("search by emotion failed: %w", err)
	}
	return memories, nil
}

// GetBySession 세션의 기억 목록
func (s *MemoryService) GetBySession(ctx context.Context, userID, sessionID string, limit int) ([]model.ConversationMemory, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, berrors.Invalid("session_id", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	memories, err := s.repo.MemoriesBySession(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get memories by session failed: %w", err)
	}
	return memories, nil
}

// SearchByText 요약문 부분 일치 검색
func (s *MemoryService) SearchByText(ctx context.Context, userID, query string, limit int) ([]model.ConversationMemory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, berrors.Invalid("q", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	memories, err := s.repo.SearchMemoriesByText(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories by text failed: %w", err)
	}
	return memories, nil
}

// GetConversationTimeline 최근 days 일의 기억을 시간순(오래된 것부터)으로 반환한다.
func (s *MemoryService) GetConversationTimeline(ctx context.Context, userID string, days, limit int) ([]model.ConversationMemory, error) {
	memories, err := s.GetRecentSummaries(ctx, userID, days, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(memories)
	return memories, nil
}

// FindSessionsByTopic 토픽 부분 일치 인덱스 검색
func (s *MemoryService) FindSessionsByTopic(ctx context.Context, userID, fragment string, limit int) ([]model.IndexHit, error) {
	fragment = NormalizeTopic(fragment)
	if fragment == "" {
		return nil, berrors.Invalid("topic", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	hits, err := s.repo.FindSessionsByTopic(ctx, userID, fragment, limit)
	if err != nil {
		return nil, fmt.Errorf("find sessions by topic failed: %w", err)
	}
	return hits, nil
}

// FindSessionsByEntity 개체 이름 부분 일치 인덱스 검색
func (s *MemoryService) FindSessionsByEntity(ctx context.Context, userID, fragment string, limit int) ([]model.IndexHit, error) {
	fragment = NormalizeTopic(fragment)
	if fragment == "" {
		return nil, berrors.Invalid("entity", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	hits, err := s.repo.FindSessionsByEntity(ctx, userID, fragment, limit)
	if err != nil {
		return nil, fmt.Errorf("find sessions by entity failed: %w", err)
	}
	return hits, nil
}

// ConversationOverview 세션별 대화 개요
func (s *MemoryService) ConversationOverview(ctx context.Context, userID string, limit int) ([]model.SessionOverview, error) {
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	overview, err := s.repo.ConversationOverview(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation overview failed: %w", err)
	}
	return overview, nil
}
