package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// UpsertUserMemory: (user_id, key) 기준 upsert. 수동 지정된 행은 중요도/분류를 유지한다.
func (r *Repository) UpsertUserMemory(ctx context.Context, m model.UserMemory) (model.UserMemory, error) {
	if err := r.ready(); err != nil {
		return model.UserMemory{}, err
	}

	now := time.Now().UTC()
	entity := UserMemory{
		ID:         uuid.NewString(),
		UserID:     m.UserID,
		MemoryKey:  m.Key,
		Value:      m.Value,
		Importance: string(m.Importance),
		Category:   m.Category,
		Metadata:   datatypes.JSONMap(m.Metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "memory_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":    m.Value,
			"metadata": datatypes.JSONMap(m.Metadata),
			"importance": gorm.Expr(
				`CASE WHEN "user_memories"."manual_override" THEN "user_memories"."importance" ELSE ? END`,
				string(m.Importance),
			),
			"category": gorm.Expr(
				`CASE WHEN "user_memories"."manual_override" THEN "user_memories"."category" ELSE ? END`,
				m.Category,
			),
			"updated_at": now,
		}),
	}).Create(&entity).Error; err != nil {
		return model.UserMemory{}, dbError("upsert_user_memory", err)
	}

	return r.GetUserMemory(ctx, m.UserID, m.Key)
}

// SetManualClassification: 사용자가 직접 지정한 중요도/분류를 기록하고 자동 재분류 대상에서 제외한다.
func (r *Repository) SetManualClassification(ctx context.Context, userID, key string, importance model.Importance, category string) (model.UserMemory, error) {
	if err := r.ready(); err != nil {
		return model.UserMemory{}, err
	}

	res := r.db.WithContext(ctx).Model(&UserMemory{}).
		Where("user_id = ? AND memory_key = ?", userID, key).
		Updates(map[string]any{
			"importance":      string(importance),
			"category":        category,
			"manual_override": true,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return model.UserMemory{}, dbError("set_manual_classification", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.UserMemory{}, berrors.NotFoundError{Resource: "user_memory", ID: key}
	}
	return r.GetUserMemory(ctx, userID, key)
}

// GetUserMemory: 키로 단건 조회
func (r *Repository) GetUserMemory(ctx context.Context, userID, key string) (model.UserMemory, error) {
	if err := r.ready(); err != nil {
		return model.UserMemory{}, err
	}

	var row UserMemory
	err := r.db.WithContext(ctx).Where("user_id = ? AND memory_key = ?", userID, key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserMemory{}, berrors.NotFoundError{Resource: "user_memory", ID: key}
	}
	if err != nil {
		return model.UserMemory{}, dbError("get_user_memory", err)
	}
	return toUserMemory(row), nil
}

// ListUserMemories: 중요도(선택) 필터로 최근 갱신순 조회
func (r *Repository) ListUserMemories(ctx context.Context, userID string, importance model.Importance, limit int) ([]model.UserMemory, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if importance != "" {
		q = q.Where("importance = ?", string(importance))
	}

	var rows []UserMemory
	if err := q.Order("updated_at DESC").Order("memory_key ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, dbError("list_user_memories", err)
	}
	return toUserMemories(rows), nil
}

// SearchUserMemories: 키 대소문자 무시 부분 일치 검색
func (r *Repository) SearchUserMemories(ctx context.Context, userID, fragment string, limit int) ([]model.UserMemory, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var rows []UserMemory
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("LOWER(memory_key) LIKE ?"+likeEscape, likePattern(fragment)).
		Order("memory_key ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, dbError("search_user_memories", err)
	}
	return toUserMemories(rows), nil
}

// TouchUserMemories: 조회된 기억의 access_count/last_accessed 갱신
func (r *Repository) TouchUserMemories(ctx context.Context, userID string, ids []string, now time.Time) error {
	if err := r.ready(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Model(&UserMemory{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Updates(map[string]any{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": now.UTC(),
		}).Error; err != nil {
		return dbError("touch_user_memories", err)
	}
	return nil
}

// ForEachClassifiable: 수동 지정되지 않은 기억을 배치 단위로 순회한다. userID가 비어있으면 전체 사용자.
func (r *Repository) ForEachClassifiable(ctx context.Context, userID string, batchSize int, fn func([]model.UserMemory) error) error {
	if err := r.ready(); err != nil {
		return err
	}

	q := r.db.WithContext(ctx).Model(&UserMemory{}).Where("manual_override = ?", false)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var batch []UserMemory
	res := q.FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		return fn(toUserMemories(batch))
	})
	if res.Error != nil {
		return dbError("for_each_classifiable", res.Error)
	}
	return nil
}

// UpdateClassification: 자동 분류 결과 기록. 그 사이 수동 지정된 행은 건드리지 않는다.
func (r *Repository) UpdateClassification(ctx context.Context, id string, importance model.Importance, category string) (bool, error) {
	if err := r.ready(); err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Model(&UserMemory{}).
		Where("id = ? AND manual_override = ?", id, false).
		Updates(map[string]any{
			"importance": string(importance),
			"category":   category,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, dbError("update_classification", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func toUserMemory(row UserMemory) model.UserMemory {
	m := model.UserMemory{
		ID:             row.ID,
		UserID:         row.UserID,
		Key:            row.MemoryKey,
		Value:          row.Value,
		Importance:     model.Importance(row.Importance),
		Category:       row.Category,
		AccessCount:    row.AccessCount,
		LastAccessed:   row.LastAccessed,
		ManualOverride: row.ManualOverride,
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if len(row.Metadata) > 0 {
		m.Metadata = map[string]any(row.Metadata)
	}
	return m
}

func toUserMemories(rows []UserMemory) []model.UserMemory {
	out := make([]model.UserMemory, 0, len(rows))
	for _, row := range rows {
		out = append(out, toUserMemory(row))
	}
	return out
}
