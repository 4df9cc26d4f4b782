package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
)

const reclassifyBatchSize = 200

// UserMemoryInput 사실 기록 요청 항목
type UserMemoryInput struct {
	Key      string
	Value    string
	Metadata map[string]any
}

// UserMemoryService 사용자 장기 사실(키-값) 저장/분류 서비스.
type UserMemoryService struct {
	repo       *repository.Repository
	classifier *Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewUserMemoryService 생성자.
func NewUserMemoryService(repo *repository.Repository, classifier *Classifier, logger *slog.Logger) *UserMemoryService {
	return &UserMemoryService{repo: repo, classifier: classifier, logger: logger, now: time.Now}
}

// Upsert 사실을 기록하고 키 규칙으로 분류한다. 수동 지정된 분류는 유지된다.
func (s *UserMemoryService) Upsert(ctx context.Context, userID string, in UserMemoryInput) (model.UserMemory, error) {
	userID = strings.TrimSpace(userID)
	key := strings.TrimSpace(in.Key)
	if userID == "" {
		return model.UserMemory{}, berrors.Invalid("user_id", "required")
	}
	if key == "" {
		return model.UserMemory{}, berrors.Invalid("key", "required")
	}

	class := s.classifier.Classify(key)
	m, err := s.repo.UpsertUserMemory(ctx, model.UserMemory{
		UserID:     userID,
		Key:        key,
		Value:      in.Value,
		Importance: class.Importance,
		Category:   class.Category,
		Metadata:   in.Metadata,
	})
	if err != nil {
		return model.UserMemory{}, fmt.Errorf("upsert user memory failed: %w", err)
	}
	return m, nil
}

// AddMemoriesBatch 여러 사실을 순서대로 기록한다. 첫 실패에서 멈춘다.
func (s *UserMemoryService) AddMemoriesBatch(ctx context.Context, userID string, items []UserMemoryInput) ([]model.UserMemory, error) {
	out := make([]model.UserMemory, 0, len(items))
	for i, item := range items {
		m, err := s.Upsert(ctx, userID, item)
		if err != nil {
			return out, fmt.Errorf("batch item %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// GetMemories 중요도(선택)로 필터링한 사실 목록
func (s *UserMemoryService) GetMemories(ctx context.Context, userID string, importance string, limit int) ([]model.UserMemory, error) {
	tier := model.Importance(strings.ToLower(strings.TrimSpace(importance)))
	if tier != "" && !tier.Valid() {
		return nil, berrors.Invalid("importance", fmt.Sprintf("unknown importance %q", importance))
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	memories, err := s.repo.ListUserMemories(ctx, userID, tier, limit)
	if err != nil {
		return nil, fmt.Errorf("list user memories failed: %w", err)
	}
	return memories, nil
}

// SearchMemories 키 부분 일치 검색
func (s *UserMemoryService) SearchMemories(ctx context.Context, userID string, query string, limit int) ([]model.UserMemory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, berrors.Invalid("q", "required")
	}
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	memories, err := s.repo.SearchUserMemories(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search user memories failed: %w", err)
	}
	return memories, nil
}

// GetImportantMemories 중요도 high 사실을 조회하고 접근 기록을 남긴다.
func (s *UserMemoryService) GetImportantMemories(ctx context.Context, userID string, limit int) ([]model.UserMemory, error) {
	limit, err := boundedLimit(limit)
	if err != nil {
		return nil, err
	}
	memories, err := s.repo.ListUserMemories(ctx, userID, model.ImportanceHigh, limit)
	if err != nil {
		return nil, fmt.Errorf("list important memories failed: %w", err)
	}
	if len(memories) == 0 {
		return memories, nil
	}

	ids := make([]string, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	now := s.now().UTC()
	if err := s.repo.TouchUserMemories(ctx, userID, ids, now); err != nil {
		// 조회 결과는 그대로 반환
		s.logger.Warn("user_memory_touch_failed", "user_id", userID, "count", len(ids), "err", err)
		return memories, nil
	}
	for i := range memories {
		memories[i].AccessCount++
		memories[i].LastAccessed = &now
	}
	return memories, nil
}

// SetOverride 분류를 수동 지정한다. 이후 자동 분류는 이 행을 건드리지 않는다.
func (s *UserMemoryService) SetOverride(ctx context.Context, userID, key, importance, category string) (model.UserMemory, error) {
	tier := model.Importance(strings.ToLower(strings.TrimSpace(importance)))
	if !tier.Valid() {
		return model.UserMemory{}, berrors.Invalid("importance", fmt.Sprintf("unknown importance %q", importance))
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return model.UserMemory{}, berrors.Invalid("category", "required")
	}
	m, err := s.repo.SetManualClassification(ctx, userID, strings.TrimSpace(key), tier, category)
	if err != nil {
		return model.UserMemory{}, fmt.Errorf("set manual classification failed: %w", err)
	}
	return m, nil
}

// Reclassify 현재 규칙표로 다시 분류한다. 결과가 달라진 행만 기록하고 그 수를 반환한다.
// userID 가 비어있으면 전체 사용자 대상.
func (s *UserMemoryService) Reclassify(ctx context.Context, userID string) (int, error) {
	changed := 0
	err := s.repo.ForEachClassifiable(ctx, strings.TrimSpace(userID), reclassifyBatchSize, func(batch []model.UserMemory) error {
		for _, m := range batch {
			class := s.classifier.Classify(m.Key)
			if class.Importance == m.Importance && class.Category == m.Category {
				continue
			}
			updated, err := s.repo.UpdateClassification(ctx, m.ID, class.Importance, class.Category)
			if err != nil {
				return err
			}
			if updated {
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return changed, fmt.Errorf("reclassify user memories failed: %w", err)
	}

	s.logger.Info("user_memories_reclassified", "user_id", userID, "changed", changed)
	return changed, nil
}

// Stats 중요도별 개수
func (s *UserMemoryService) Stats(ctx context.Context, userID string) (model.MemoryStats, error) {
	stats, err := s.repo.UserMemoryStats(ctx, userID)
	if err != nil {
		return model.MemoryStats{}, fmt.Errorf("user memory stats failed: %w", err)
	}
	return stats, nil
}

// boundedLimit 0 이하 → InvalidArgument, 상한 초과 → 상한
func boundedLimit(limit int) (int, error) {
	if limit <= 0 {
		return 0, berrors.Invalid("limit", "must be positive")
	}
	return min(limit, bconfig.MaxSearchLimit), nil
}
