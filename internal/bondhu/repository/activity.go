package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// ErrConcurrentUpdate: 버전 충돌 재시도 횟수를 모두 소진한 경우
var ErrConcurrentUpdate = errors.New("activity stats concurrent update retries exhausted")

// StatsMutator: 활동 누적 행을 변경한다. 변경이 없으면 false를 반환한다.
// 버전 충돌 시 새로 읽은 상태로 다시 호출되므로 부수 효과가 없어야 한다.
type StatsMutator func(stats *model.ActivityStats) (bool, error)

// IncrementActivity: 활동 카운터를 원자적으로 증가시키고 활동 날짜를 기록한다.
// 행이 없으면 current_streak_days=1 로 새로 만든다.
func (r *Repository) IncrementActivity(ctx context.Context, userID string, activityType model.ActivityType, now time.Time) error {
	if err := r.ready(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	now = now.UTC()

	entity := UserActivityStats{
		UserID:               userID,
		CurrentStreakDays:    1,
		LongestStreakDays:    1,
		LastActivityAt:       &now,
		WellnessScoreHistory: datatypes.NewJSONType([]model.WellnessPoint{}),
		AchievementUnlocks:   datatypes.NewJSONType(map[string]model.AchievementUnlock{}),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	// version 은 MutateStats 가 쓰는 파생 컬럼만 보호한다. 카운터는 원자적 증가라 올리지 않는다.
	updates := map[string]any{
		"last_activity_at": now,
		"updated_at":       now,
	}
	switch activityType {
	case model.ActivityChat:
		entity.TotalMessages = 1
		updates["total_messages"] = gorm.Expr(`"user_activity_stats"."total_messages" + 1`)
	case model.ActivityGame:
		entity.TotalGamesPlayed = 1
		updates["total_games_played"] = gorm.Expr(`"user_activity_stats"."total_games_played" + 1`)
	case model.ActivityLogin:
	default:
		return fmt.Errorf("unknown activity type: %q", activityType)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(updates),
		}).Create(&entity).Error; err != nil {
			return fmt.Errorf("upsert activity stats failed: %w", err)
		}

		day := UserActivityDay{UserID: userID, ActivityDate: model.DateString(now), CreatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&day).Error; err != nil {
			return fmt.Errorf("record activity day failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return dbError("increment_activity", err)
	}
	return nil
}

// GetActivityStats: 활동 누적 행 조회. 없으면 found=false.
func (r *Repository) GetActivityStats(ctx context.Context, userID string) (model.ActivityStats, bool, error) {
	if err := r.ready(); err != nil {
		return model.ActivityStats{}, false, err
	}

	var row UserActivityStats
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ActivityStats{}, false, nil
	}
	if err != nil {
		return model.ActivityStats{}, false, dbError("get_activity_stats", err)
	}
	return toActivityStats(row), true, nil
}

// MutateStats: 버전 조건부 UPDATE로 활동 누적 행을 변경한다 (낙관적 동시성).
// 다른 쓰기와 경합하면 최신 상태로 mutate를 다시 실행한다.
func (r *Repository) MutateStats(ctx context.Context, userID string, maxAttempts int, mutate StatsMutator) (model.ActivityStats, bool, error) {
	if err := r.ready(); err != nil {
		return model.ActivityStats{}, false, err
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		stats, found, err := r.GetActivityStats(ctx, userID)
		if err != nil || !found {
			return stats, found, err
		}

		expected := stats.Version
		changed, err := mutate(&stats)
		if err != nil {
			return model.ActivityStats{}, true, err
		}
		if !changed {
			return stats, true, nil
		}

		res := r.db.WithContext(ctx).Model(&UserActivityStats{}).
			Where("user_id = ? AND version = ?", userID, expected).
			Updates(mutableColumns(stats, expected+1))
		if res.Error != nil {
			return model.ActivityStats{}, true, dbError("mutate_activity_stats", res.Error)
		}
		if res.RowsAffected == 1 {
			stats.Version = expected + 1
			return stats, true, nil
		}
	}
	return model.ActivityStats{}, true, ErrConcurrentUpdate
}

// CountActiveDaysSince: sinceDate(포함) 이후 활동한 서로 다른 날짜 수
func (r *Repository) CountActiveDaysSince(ctx context.Context, userID string, sinceDate string) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&UserActivityDay{}).
		Where("user_id = ? AND activity_date >= ?", userID, sinceDate).
		Count(&count).Error; err != nil {
		return 0, dbError("count_active_days", err)
	}
	return count, nil
}

func mutableColumns(s model.ActivityStats, nextVersion int64) map[string]any {
	return map[string]any{
		"current_streak_days":       s.CurrentStreakDays,
		"current_streak_start_date": nullableString(s.CurrentStreakStartDate),
		"longest_streak_days":       s.LongestStreakDays,
		"last_activity_date":        nullableString(s.LastActivityDate),
		"wellness_score":            s.WellnessScore,
		"wellness_score_history":    datatypes.NewJSONType(nonNilHistory(s.WellnessHistory)),
		"achievement_unlocks":       datatypes.NewJSONType(nonNilUnlocks(s.AchievementUnlocks)),
		"total_achievements":        s.TotalAchievements,
		"updated_at":                time.Now().UTC(),
		"version":                   nextVersion,
	}
}

func toActivityStats(row UserActivityStats) model.ActivityStats {
	stats := model.ActivityStats{
		UserID:             row.UserID,
		TotalMessages:      row.TotalMessages,
		TotalGamesPlayed:   row.TotalGamesPlayed,
		CurrentStreakDays:  row.CurrentStreakDays,
		LongestStreakDays:  row.LongestStreakDays,
		LastActivityAt:     row.LastActivityAt,
		WellnessScore:      row.WellnessScore,
		WellnessHistory:    slices.Clone(nonNilHistory(row.WellnessScoreHistory.Data())),
		AchievementUnlocks: maps.Clone(nonNilUnlocks(row.AchievementUnlocks.Data())),
		TotalAchievements:  row.TotalAchievements,
		Version:            row.Version,
	}
	if row.CurrentStreakStartDate != nil {
		stats.CurrentStreakStartDate = *row.CurrentStreakStartDate
	}
	if row.LastActivityDate != nil {
		stats.LastActivityDate = *row.LastActivityDate
	}
	return stats
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNilHistory(h []model.WellnessPoint) []model.WellnessPoint {
	if h == nil {
		return []model.WellnessPoint{}
	}
	return h
}

func nonNilUnlocks(m map[string]model.AchievementUnlock) map[string]model.AchievementUnlock {
	if m == nil {
		return map[string]model.AchievementUnlock{}
	}
	return m
}
