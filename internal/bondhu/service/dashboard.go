package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	bmessages "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/messages"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/messageprovider"
)

// streakStatusTiers 연속 일수 구간별 문구 (높은 구간부터)
var streakStatusTiers = []struct {
	min int
	key string
}{
	{100, bmessages.StatsStreakOnFire},
	{50, bmessages.StatsStreakIncredible},
	{25, bmessages.StatsStreakAmazing},
	{10, bmessages.StatsStreakMomentum},
	{5, bmessages.StatsStreakBuilding},
}

// DashboardService 대시보드 통계/업적 목록 조회
type DashboardService struct {
	repo        *repository.Repository
	msgProvider *messageprovider.Provider
	logger      *slog.Logger
	now         func() time.Time
}

// NewDashboardService 생성자.
func NewDashboardService(repo *repository.Repository, msgProvider *messageprovider.Provider, logger *slog.Logger) *DashboardService {
	return &DashboardService{repo: repo, msgProvider: msgProvider, logger: logger, now: time.Now}
}

// GetDashboardStats 통계 행이 없으면 기본값을 반환한다.
func (s *DashboardService) GetDashboardStats(ctx context.Context, userID string) (model.DashboardStats, error) {
	catalog, err := s.repo.ListAchievements(ctx, model.AchievementTypeStreak)
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("load achievement catalog failed: %w", err)
	}

	stats, found, err := s.repo.GetActivityStats(ctx, userID)
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("load activity stats failed: %w", err)
	}
	if !found {
		return model.DashboardStats{
			WellnessChangeText: s.msgProvider.Get(bmessages.StatsWellnessNoChange),
			MessagesTodayText:  s.msgProvider.Get(bmessages.StatsMessagesToday, messageprovider.P("count", 0)),
			StreakStatus:       s.msgProvider.Get(bmessages.StatsStreakStart),
			TotalAvailable:     len(catalog),
		}, nil
	}

	today, err := s.repo.CountUserMessagesSince(ctx, userID, model.StartOfDay(s.now()))
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("count today messages failed: %w", err)
	}

	change := WellnessChange(stats.WellnessHistory)
	return model.DashboardStats{
		WellnessScore:      stats.WellnessScore,
		WellnessChange:     change,
		WellnessChangeText: s.wellnessChangeText(change),
		TotalMessages:      stats.TotalMessages,
		MessagesTodayText:  s.msgProvider.Get(bmessages.StatsMessagesToday, messageprovider.P("count", today)),
		CurrentStreak:      stats.CurrentStreakDays,
		LongestStreak:      stats.LongestStreakDays,
		StreakStatus:       s.StreakStatus(stats.CurrentStreakDays),
		IsPersonalBest:     stats.CurrentStreakDays > 0 && stats.CurrentStreakDays == stats.LongestStreakDays,
		TotalAchievements:  stats.TotalAchievements,
		TotalAvailable:     len(catalog),
		GamesPlayed:        stats.TotalGamesPlayed,
	}, nil
}

// WellnessChange 마지막 기록과 그 직전 기록의 차이. 기록이 2개 미만이면 0.
func WellnessChange(history []model.WellnessPoint) int {
	if len(history) < 2 {
		return 0
	}
	return history[len(history)-1].Score - history[len(history)-2].Score
}

func (s *DashboardService) wellnessChangeText(change int) string {
	switch {
	case change > 0:
		return s.msgProvider.Get(bmessages.StatsWellnessUp, messageprovider.P("change", change))
	case change < 0:
		return s.msgProvider.Get(bmessages.StatsWellnessDown, messageprovider.P("change", change))
	default:
		return s.msgProvider.Get(bmessages.StatsWellnessNoChange)
	}
}

// StreakStatus 연속 일수 구간 문구
func (s *DashboardService) StreakStatus(streak int) string {
	for _, tier := range streakStatusTiers {
		if streak >= tier.min {
			return s.msgProvider.Get(tier.key)
		}
	}
	if streak <= 0 {
		return s.msgProvider.Get(bmessages.StatsStreakStart)
	}
	return s.msgProvider.Get(bmessages.StatsStreakKeepGoing)
}

// ListAchievements 카탈로그와 사용자 달성 여부
func (s *DashboardService) ListAchievements(ctx context.Context, userID string) (model.AchievementList, error) {
	catalog, err := s.repo.ListAchievements(ctx, model.AchievementTypeStreak)
	if err != nil {
		return model.AchievementList{}, fmt.Errorf("load achievement catalog failed: %w", err)
	}
	stats, _, err := s.repo.GetActivityStats(ctx, userID)
	if err != nil {
		return model.AchievementList{}, fmt.Errorf("load activity stats failed: %w", err)
	}

	list := model.AchievementList{
		Achievements:   make([]model.AchievementStatus, 0, len(catalog)),
		TotalAvailable: len(catalog),
	}
	for _, a := range catalog {
		status := model.AchievementStatus{Achievement: a}
		if unlock, ok := stats.AchievementUnlocks[a.Key()]; ok {
			at := unlock.UnlockedAt
			status.Unlocked = true
			status.UnlockedAt = &at
			list.TotalUnlocked++
		}
		list.Achievements = append(list.Achievements, status)
	}
	return list, nil
}
