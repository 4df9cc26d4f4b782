package repository

import (
	"context"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// SessionsByTopic: 정규화된 토픽과 정확히 일치하는 인덱스 행의 세션 ID (최신순, 중복 제거).
func (r *Repository) SessionsByTopic(ctx context.Context, userID, topic string, limit int) ([]string, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var sessionIDs []string
	if err := r.db.WithContext(ctx).Model(&MemoryIndexEntry{}).
		Select("session_id").
		Where("user_id = ? AND index_type = ? AND topic = ?", userID, string(model.IndexTopic), topic).
		Group("session_id").
		Order("MAX(timestamp) DESC").
		Limit(limit).
		Pluck("session_id", &sessionIDs).Error; err != nil {
		return nil, dbError("sessions_by_topic", err)
	}
	return sessionIDs, nil
}

// TopicFrequency: 토픽별 인덱스 행 수 (빈도 내림차순, 토픽 오름차순).
func (r *Repository) TopicFrequency(ctx context.Context, userID string, limit int) ([]model.TopicCount, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var rows []model.TopicCount
	if err := r.db.WithContext(ctx).Model(&MemoryIndexEntry{}).
		Select("topic AS topic, COUNT(*) AS count").
		Where("user_id = ? AND index_type = ? AND topic IS NOT NULL", userID, string(model.IndexTopic)).
		Group("topic").
		Order("count DESC").Order("topic ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, dbError("topic_frequency", err)
	}
	if rows == nil {
		rows = []model.TopicCount{}
	}
	return rows, nil
}

// FindSessionsByTopic: 토픽 대소문자 무시 부분 일치 인덱스 검색 (최신순).
func (r *Repository) FindSessionsByTopic(ctx context.Context, userID, fragment string, limit int) ([]model.IndexHit, error) {
	return r.findIndexHits(ctx, "find_sessions_by_topic", userID, model.IndexTopic, "LOWER(topic)", fragment, limit)
}

// FindSessionsByEntity: 개체 이름 대소문자 무시 부분 일치 인덱스 검색 (최신순).
func (r *Repository) FindSessionsByEntity(ctx context.Context, userID, fragment string, limit int) ([]model.IndexHit, error) {
	return r.findIndexHits(ctx, "find_sessions_by_entity", userID, model.IndexEntity, "LOWER(entity_name)", fragment, limit)
}

func (r *Repository) findIndexHits(
	ctx context.Context,
	operation string,
	userID string,
	indexType model.IndexType,
	column string,
	fragment string,
	limit int,
) ([]model.IndexHit, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var rows []MemoryIndexEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND index_type = ?", userID, string(indexType)).
		Where(column+" LIKE ?"+likeEscape, likePattern(fragment)).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, dbError(operation, err)
	}

	hits := make([]model.IndexHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, toIndexHit(row))
	}
	return hits, nil
}

func toIndexHit(row MemoryIndexEntry) model.IndexHit {
	hit := model.IndexHit{SessionID: row.SessionID, Timestamp: row.Timestamp.UTC()}
	if row.Topic != nil {
		hit.Topic = *row.Topic
	}
	if row.EntityName != nil {
		hit.EntityName = *row.EntityName
	}
	if row.EntityType != nil {
		hit.EntityType = *row.EntityType
	}
	return hit
}
