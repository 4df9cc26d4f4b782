package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// SeedAchievements: 카탈로그를 멱등하게 적재한다 ((type, requirement) 충돌 시 무시).
func (r *Repository) SeedAchievements(ctx context.Context, catalog []model.Achievement) error {
	if err := r.ready(); err != nil {
		return err
	}
	if len(catalog) == 0 {
		return nil
	}

	rows := make([]Achievement, 0, len(catalog))
	for _, a := range catalog {
		rows = append(rows, Achievement{
			AchievementType:  a.Type,
			AchievementName:  a.Name,
			Description:      a.Description,
			RequirementValue: a.Requirement,
			IconName:         a.Icon,
		})
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "achievement_type"}, {Name: "requirement_value"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		return dbError("seed_achievements", err)
	}
	return nil
}

// ListAchievements: 종류별 카탈로그를 요구치 오름차순으로 반환한다. achievementType이 비어있으면 전체.
func (r *Repository) ListAchievements(ctx context.Context, achievementType string) ([]model.Achievement, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Model(&Achievement{})
	if achievementType != "" {
		q = q.Where("achievement_type = ?", achievementType)
	}

	var rows []Achievement
	if err := q.Order("requirement_value ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, dbError("list_achievements", err)
	}

	out := make([]model.Achievement, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Achievement{
			ID:          row.ID,
			Type:        row.AchievementType,
			Name:        row.AchievementName,
			Description: row.Description,
			Requirement: row.RequirementValue,
			Icon:        row.IconName,
		})
	}
	return out, nil
}
