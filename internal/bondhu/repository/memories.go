package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// InsertConversationMemory: 기억을 저장하고 토픽 → 개체 순서로 인덱스 행을 같은 트랜잭션에서 기록한다.
// 같은 (user, session, message_count) 기억이 이미 있으면 ErrSummaryAlreadyClaimed.
func (r *Repository) InsertConversationMemory(ctx context.Context, in model.MemoryInput) (model.ConversationMemory, error) {
	if err := r.ready(); err != nil {
		return model.ConversationMemory{}, err
	}

	now := time.Now().UTC()
	entity := ConversationMemory{
		ID:                  uuid.NewString(),
		UserID:              in.UserID,
		SessionID:           in.SessionID,
		MessageCount:        in.MessageCount,
		ConversationSummary: in.Summary,
		Topics:              datatypes.NewJSONSlice(nonNilStrings(in.Topics)),
		Emotions:            datatypes.NewJSONSlice(nonNilStrings(in.Emotions)),
		KeyPoints:           datatypes.NewJSONSlice(nonNilStrings(in.KeyPoints)),
		MessageIDs:          datatypes.NewJSONSlice(in.MessageIDs),
		StartTime:           in.StartTime.UTC(),
		EndTime:             in.EndTime.UTC(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "session_id"}, {Name: "message_count"}},
			DoNothing: true,
		}).Create(&entity)
		if res.Error != nil {
			return fmt.Errorf("insert memory failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return berrors.ErrSummaryAlreadyClaimed
		}

		entries := buildIndexEntries(entity, in.Entities)
		if len(entries) == 0 {
			return nil
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("insert memory index failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, berrors.ErrSummaryAlreadyClaimed) {
			return model.ConversationMemory{}, err
		}
		return model.ConversationMemory{}, dbError("insert_conversation_memory", err)
	}
	return toConversationMemory(entity), nil
}

// RecentMemories: since 이후 시작된 기억을 최신순으로 반환한다.
func (r *Repository) RecentMemories(ctx context.Context, userID string, since time.Time, limit int) ([]model.ConversationMemory, error) {
	return r.findMemories(ctx, "recent_memories", limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND start_time >= ?", userID, since.UTC())
	})
}

// MemoriesBySessions: 세션 ID 목록에 해당하는 기억을 최신순으로 반환한다.
func (r *Repository) MemoriesBySessions(ctx context.Context, userID string, sessionIDs []string, limit int) ([]model.ConversationMemory, error) {
	if len(sessionIDs) == 0 {
		return []model.ConversationMemory{}, nil
	}
	return r.findMemories(ctx, "memories_by_sessions", limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND session_id IN ?", userID, sessionIDs)
	})
}

// MemoriesBySession: 한 세션의 기억을 최신순으로 반환한다.
func (r *Repository) MemoriesBySession(ctx context.Context, userID, sessionID string, limit int) ([]model.ConversationMemory, error) {
	return r.findMemories(ctx, "memories_by_session", limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND session_id = ?", userID, sessionID)
	})
}

// MemoriesByEmotion: 감정 태그를 포함한 기억을 최신순으로 반환한다.
func (r *Repository) MemoriesByEmotion(ctx context.Context, userID, emotion string, limit int) ([]model.ConversationMemory, error) {
	// JSON 배열 원소와 정확히 일치하도록 따옴표로 감싼다.
	pattern := `%"` + likeLiteral(strings.ReplaceAll(emotion, `"`, "")) + `"%`
	return r.findMemories(ctx, "memories_by_emotion", limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ? AND CAST(emotions AS TEXT) LIKE ?"+likeEscape, userID, pattern)
	})
}

// SearchMemoriesByText: 요약문 대소문자 무시 부분 일치 검색
func (r *Repository) SearchMemoriesByText(ctx context.Context, userID, query string, limit int) ([]model.ConversationMemory, error) {
	return r.findMemories(ctx, "search_memories_by_text", limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID).
			Where("LOWER(conversation_summary) LIKE ?"+likeEscape, likePattern(query))
	})
}

// ListAllMemories: 사용자의 전체 기억 (재인덱싱용). 상한을 둔다.
func (r *Repository) ListAllMemories(ctx context.Context, userID string, limit int) ([]model.ConversationMemory, error) {
	return r.findMemories(ctx, "list_all_memories", limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	})
}

// DeleteMemoriesOlderThan: cutoff 이전에 시작된 기억과 해당 인덱스 행을 삭제한다. userID가 비어있으면 전체 사용자.
func (r *Repository) DeleteMemoriesOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	scope := func(q *gorm.DB) *gorm.DB {
		if userID != "" {
			q = q.Where("user_id = ?", userID)
		}
		return q
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := scope(tx.Model(&ConversationMemory{})).
			Where("start_time < ?", cutoff.UTC()).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("select old memories failed: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("memory_id IN ?", ids).Delete(&MemoryIndexEntry{}).Error; err != nil {
			return fmt.Errorf("delete memory index failed: %w", err)
		}
		res := tx.Where("id IN ?", ids).Delete(&ConversationMemory{})
		if res.Error != nil {
			return fmt.Errorf("delete memories failed: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, dbError("delete_old_memories", err)
	}
	return deleted, nil
}

// ReplaceTopicIndex: 사용자의 토픽 인덱스 행을 저장된 기억 기준으로 다시 만든다.
func (r *Repository) ReplaceTopicIndex(ctx context.Context, userID string, memories []model.ConversationMemory) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	entries := make([]MemoryIndexEntry, 0, len(memories)*2)
	for _, m := range memories {
		for _, topic := range m.Topics {
			entries = append(entries, topicEntry(m.ID, m.UserID, m.SessionID, topic, m.StartTime))
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND index_type = ?", userID, string(model.IndexTopic)).
			Delete(&MemoryIndexEntry{}).Error; err != nil {
			return fmt.Errorf("clear topic index failed: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&entries, 200).Error; err != nil {
			return fmt.Errorf("rebuild topic index failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, dbError("replace_topic_index", err)
	}
	return len(entries), nil
}

func (r *Repository) findMemories(
	ctx context.Context,
	operation string,
	limit int,
	scope func(*gorm.DB) *gorm.DB,
) ([]model.ConversationMemory, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var rows []ConversationMemory
	if err := scope(r.db.WithContext(ctx).Model(&ConversationMemory{})).
		Order("start_time DESC").Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, dbError(operation, err)
	}

	out := make([]model.ConversationMemory, 0, len(rows))
	for _, row := range rows {
		out = append(out, toConversationMemory(row))
	}
	return out, nil
}

func buildIndexEntries(m ConversationMemory, entities []model.EntityRef) []MemoryIndexEntry {
	entries := make([]MemoryIndexEntry, 0, len(m.Topics)+len(entities))
	for _, topic := range m.Topics {
		entries = append(entries, topicEntry(m.ID, m.UserID, m.SessionID, topic, m.StartTime))
	}
	for _, e := range entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		entityType := strings.TrimSpace(e.Type)
		entries = append(entries, MemoryIndexEntry{
			UserID:     m.UserID,
			SessionID:  m.SessionID,
			MemoryID:   m.ID,
			IndexType:  string(model.IndexEntity),
			EntityName: &name,
			EntityType: &entityType,
			Timestamp:  m.StartTime,
		})
	}
	return entries
}

func topicEntry(memoryID, userID, sessionID, topic string, ts time.Time) MemoryIndexEntry {
	t := topic
	return MemoryIndexEntry{
		UserID:    userID,
		SessionID: sessionID,
		MemoryID:  memoryID,
		IndexType: string(model.IndexTopic),
		Topic:     &t,
		Timestamp: ts.UTC(),
	}
}

func toConversationMemory(row ConversationMemory) model.ConversationMemory {
	return model.ConversationMemory{
		ID:           row.ID,
		UserID:       row.UserID,
		SessionID:    row.SessionID,
		Summary:      row.ConversationSummary,
		Topics:       nonNilStrings(row.Topics),
		Emotions:     nonNilStrings(row.Emotions),
		KeyPoints:    nonNilStrings(row.KeyPoints),
		MessageIDs:   []uint64(row.MessageIDs),
		MessageCount: row.MessageCount,
		StartTime:    row.StartTime.UTC(),
		EndTime:      row.EndTime.UTC(),
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
