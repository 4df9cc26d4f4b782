package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
)

// ActivityService 활동 누적/연속 기록/업적/활동 점수 서비스.
type ActivityService struct {
	repo    *repository.Repository
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewActivityService 생성자.
func NewActivityService(repo *repository.Repository, recorder *metrics.Recorder, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		repo:    repo,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// IncrementActivity 활동 카운터 증가. 빈 활동 종류는 chat 으로 처리한다.
func (s *ActivityService) IncrementActivity(ctx context.Context, userID string, rawType string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return berrors.Invalid("user_id", "required")
	}
	activityType, ok := model.ParseActivityType(rawType)
	if !ok {
		return berrors.Invalid("activity_type", fmt.Sprintf("unknown activity type %q", rawType))
	}
	return s.incrementAt(ctx, userID, activityType, s.now())
}

func (s *ActivityService) incrementAt(ctx context.Context, userID string, activityType model.ActivityType, at time.Time) error {
	if err := s.repo.IncrementActivity(ctx, userID, activityType, at); err != nil {
		return fmt.Errorf("increment activity failed: %w", err)
	}
	return nil
}

// NextStreak 연속 기록 상태 전이. 변경이 없으면 false.
// gap 은 마지막 활동일과 today 사이의 UTC 달력 일수다.
func NextStreak(stats model.ActivityStats, today time.Time) (model.ActivityStats, bool) {
	todayStr := model.DateString(today)

	last, err := model.ParseDate(stats.LastActivityDate)
	if stats.LastActivityDate == "" || err != nil {
		stats.CurrentStreakDays = 1
		stats.CurrentStreakStartDate = todayStr
	} else {
		gap := model.DaysBetween(last, today)
		switch {
		case gap <= 0:
			// 같은 날이거나 시계가 뒤로 간 경우
			return stats, false
		case gap == 1:
			stats.CurrentStreakDays++
			if stats.CurrentStreakStartDate == "" {
				stats.CurrentStreakStartDate = todayStr
			}
		default:
			stats.CurrentStreakDays = 1
			stats.CurrentStreakStartDate = todayStr
		}
	}

	stats.LongestStreakDays = max(stats.LongestStreakDays, stats.CurrentStreakDays)
	stats.LastActivityDate = todayStr
	return stats, true
}

// UpdateStreak 연속 활동 일수를 갱신한다. 버전 충돌 시 재시도한다.
func (s *ActivityService) UpdateStreak(ctx context.Context, userID string, today time.Time) (model.ActivityStats, error) {
	stats, found, err := s.repo.MutateStats(ctx, userID, bconfig.StreakUpdateMaxAttempts, func(st *model.ActivityStats) (bool, error) {
		next, changed := NextStreak(*st, today)
		*st = next
		return changed, nil
	})
	if err != nil {
		return model.ActivityStats{}, fmt.Errorf("update streak failed: %w", err)
	}
	if !found {
		return model.ActivityStats{}, berrors.NotFoundError{Resource: "activity_stats", ID: userID}
	}
	return stats, nil
}

// UnlockAchievements 달성 조건을 만족했지만 기록이 없는 업적을 unlocks 에 추가한다.
// catalog 는 요구치 내림차순으로 평가하며, 새로 달성한 항목만 반환한다.
func UnlockAchievements(stats *model.ActivityStats, catalog []model.Achievement, now time.Time) []model.Achievement {
	ordered := slices.Clone(catalog)
	slices.SortStableFunc(ordered, func(a, b model.Achievement) int { return b.Requirement - a.Requirement })

	if stats.AchievementUnlocks == nil {
		stats.AchievementUnlocks = make(map[string]model.AchievementUnlock)
	}

	var unlocked []model.Achievement
	for _, a := range ordered {
		if a.Requirement > stats.CurrentStreakDays {
			continue
		}
		key := a.Key()
		if _, exists := stats.AchievementUnlocks[key]; exists {
			continue
		}
		stats.AchievementUnlocks[key] = model.AchievementUnlock{
			UnlockedAt:  now.UTC(),
			Name:        a.Name,
			StreakValue: stats.CurrentStreakDays,
		}
		stats.TotalAchievements++
		unlocked = append(unlocked, a)
	}
	return unlocked
}

// CheckAchievements 연속 기록 업적 평가. 이미 달성한 업적은 다시 반환하지 않는다.
func (s *ActivityService) CheckAchievements(ctx context.Context, userID string) ([]model.Achievement, model.ActivityStats, error) {
	catalog, err := s.repo.ListAchievements(ctx, model.AchievementTypeStreak)
	if err != nil {
		return nil, model.ActivityStats{}, fmt.Errorf("load achievement catalog failed: %w", err)
	}

	now := s.now()
	var unlocked []model.Achievement
	stats, found, err := s.repo.MutateStats(ctx, userID, bconfig.StreakUpdateMaxAttempts, func(st *model.ActivityStats) (bool, error) {
		// 재시도마다 새 상태 기준으로 다시 계산
		unlocked = UnlockAchievements(st, catalog, now)
		return len(unlocked) > 0, nil
	})
	if err != nil {
		return nil, model.ActivityStats{}, fmt.Errorf("check achievements failed: %w", err)
	}
	if !found {
		return nil, model.ActivityStats{}, nil
	}

	if len(unlocked) > 0 {
		s.metrics.AchievementsUnlocked(model.AchievementTypeStreak, len(unlocked))
		s.logger.Info("achievements_unlocked", "user_id", userID, "count", len(unlocked), "streak", stats.CurrentStreakDays)
	}
	return unlocked, stats, nil
}

// WellnessInputs 활동 점수 계산 입력
type WellnessInputs struct {
	ActiveDays        int64 // 최근 7일 중 활동한 날 수
	StreakDays        int
	RecentMessages    int64 // 최근 7일 사용자 메시지 수
	GamesPlayed       int
	TotalAchievements int
}

// ComputeWellness 네 구성 요소를 각각 [0,25] 로 제한해 합산한다.
func ComputeWellness(in WellnessInputs) model.WellnessBreakdown {
	b := model.WellnessBreakdown{
		Activity:    clampComponent(int(in.ActiveDays) * bconfig.ActiveDayPoints),
		Consistency: clampComponent(in.StreakDays * bconfig.StreakDayPoints),
		Engagement:  clampComponent(int(in.RecentMessages / bconfig.MessagesPerPoint)),
		Growth:      clampComponent(in.GamesPlayed*bconfig.GamePoints + in.TotalAchievements*bconfig.AchievementPoints),
	}
	b.Score = b.Activity + b.Consistency + b.Engagement + b.Growth
	return b
}

func clampComponent(v int) int {
	return min(max(v, 0), bconfig.WellnessComponentMax)
}

// UpsertWellnessPoint 같은 날짜의 기록은 교체하고, 최대 개수를 넘으면 오래된 것부터 버린다.
func UpsertWellnessPoint(history []model.WellnessPoint, point model.WellnessPoint, maxPoints int) []model.WellnessPoint {
	out := slices.Clone(history)
	if idx := slices.IndexFunc(out, func(p model.WellnessPoint) bool { return p.Date == point.Date }); idx >= 0 {
		out[idx] = point
	} else {
		out = append(out, point)
	}
	slices.SortStableFunc(out, func(a, b model.WellnessPoint) int { return strings.Compare(a.Date, b.Date) })
	if maxPoints > 0 && len(out) > maxPoints {
		out = out[len(out)-maxPoints:]
	}
	return out
}

// CalculateWellness 활동 점수를 계산해 현재 값과 날짜별 기록을 갱신한다.
func (s *ActivityService) CalculateWellness(ctx context.Context, userID string, now time.Time) (model.WellnessBreakdown, model.ActivityStats, error) {
	today := model.StartOfDay(now)
	windowStart := today.AddDate(0, 0, -(bconfig.WellnessWindowDays - 1))

	activeDays, err := s.repo.CountActiveDaysSince(ctx, userID, model.DateString(windowStart))
	if err != nil {
		return model.WellnessBreakdown{}, model.ActivityStats{}, fmt.Errorf("count active days failed: %w", err)
	}
	recentMessages, err := s.repo.CountUserMessagesSince(ctx, userID, now.AddDate(0, 0, -bconfig.WellnessWindowDays))
	if err != nil {
		return model.WellnessBreakdown{}, model.ActivityStats{}, fmt.Errorf("count recent messages failed: %w", err)
	}

	var breakdown model.WellnessBreakdown
	stats, found, err := s.repo.MutateStats(ctx, userID, bconfig.StreakUpdateMaxAttempts, func(st *model.ActivityStats) (bool, error) {
		breakdown = ComputeWellness(WellnessInputs{
			ActiveDays:        activeDays,
			StreakDays:        st.CurrentStreakDays,
			RecentMessages:    recentMessages,
			GamesPlayed:       st.TotalGamesPlayed,
			TotalAchievements: st.TotalAchievements,
		})
		point := model.WellnessPoint{Date: model.DateString(today), Score: breakdown.Score}
		if st.WellnessScore == breakdown.Score && hasPoint(st.WellnessHistory, point) {
			return false, nil
		}
		st.WellnessScore = breakdown.Score
		st.WellnessHistory = UpsertWellnessPoint(st.WellnessHistory, point, bconfig.WellnessHistoryMaxPoints)
		return true, nil
	})
	if err != nil {
		return model.WellnessBreakdown{}, model.ActivityStats{}, fmt.Errorf("calculate wellness failed: %w", err)
	}
	if !found {
		return model.WellnessBreakdown{}, model.ActivityStats{}, nil
	}
	return breakdown, stats, nil
}

func hasPoint(history []model.WellnessPoint, point model.WellnessPoint) bool {
	return slices.Contains(history, point)
}

// GetStats 활동 누적 행 조회
func (s *ActivityService) GetStats(ctx context.Context, userID string) (model.ActivityStats, bool, error) {
	stats, found, err := s.repo.GetActivityStats(ctx, userID)
	if err != nil {
		return model.ActivityStats{}, false, fmt.Errorf("get activity stats failed: %w", err)
	}
	return stats, found, nil
}
