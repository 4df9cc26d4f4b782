package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
)

// 파이프라인 단계 이름
const (
	StageIncrementActivity = "increment_activity"
	StageUpdateStreak      = "update_streak"
	StageCheckAchievements = "check_achievements"
	StageCalculateWellness = "calculate_wellness"
)

// PipelineStageError 실패한 단계 이름을 담는다. 이후 단계는 실행되지 않는다.
type PipelineStageError struct {
	Stage string
	Err   error
}

func (e *PipelineStageError) Error() string {
	return fmt.Sprintf("activity pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *PipelineStageError) Unwrap() error { return e.Err }

// ActivityPipeline 메시지 저장 이후 활동 통계를 순서대로 갱신한다.
// 누적 → 연속 기록 → 업적 → 활동 점수.
type ActivityPipeline struct {
	activity *ActivityService
	metrics  *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewActivityPipeline 생성자.
func NewActivityPipeline(activity *ActivityService, recorder *metrics.Recorder, logger *slog.Logger) *ActivityPipeline {
	return &ActivityPipeline{
		activity: activity,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleMessageAppended 사용자 메시지 저장 이벤트 처리
func (p *ActivityPipeline) HandleMessageAppended(ctx context.Context, event model.MessageAppended) (model.PipelineResult, error) {
	userID := strings.TrimSpace(event.UserID)
	if userID == "" {
		return model.PipelineResult{}, berrors.Invalid("user_id", "required")
	}
	at := event.Timestamp
	if at.IsZero() {
		at = p.now()
	}
	return p.run(ctx, userID, model.ActivityChat, at)
}

// RecordActivity 게임/로그인 등 메시지 외 활동 처리
func (p *ActivityPipeline) RecordActivity(ctx context.Context, userID string, rawType string) (model.PipelineResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.PipelineResult{}, berrors.Invalid("user_id", "required")
	}
	activityType, ok := model.ParseActivityType(rawType)
	if !ok {
		return model.PipelineResult{}, berrors.Invalid("activity_type", fmt.Sprintf("unknown activity type %q", rawType))
	}
	return p.run(ctx, userID, activityType, p.now())
}

func (p *ActivityPipeline) run(ctx context.Context, userID string, activityType model.ActivityType, at time.Time) (model.PipelineResult, error) {
	started := time.Now()
	defer func() { p.metrics.ObservePipeline(time.Since(started)) }()

	var result model.PipelineResult

	if err := p.activity.incrementAt(ctx, userID, activityType, at); err != nil {
		return result, p.fail(userID, StageIncrementActivity, err)
	}

	stats, err := p.activity.UpdateStreak(ctx, userID, at)
	if err != nil {
		return result, p.fail(userID, StageUpdateStreak, err)
	}
	result.Stats = stats

	unlocked, stats, err := p.activity.CheckAchievements(ctx, userID)
	if err != nil {
		return result, p.fail(userID, StageCheckAchievements, err)
	}
	result.NewlyUnlocked = unlocked
	result.Stats = stats

	wellness, stats, err := p.activity.CalculateWellness(ctx, userID, at)
	if err != nil {
		return result, p.fail(userID, StageCalculateWellness, err)
	}
	result.Wellness = wellness
	result.Stats = stats

	if result.NewlyUnlocked == nil {
		result.NewlyUnlocked = []model.Achievement{}
	}
	return result, nil
}

func (p *ActivityPipeline) fail(userID string, stage string, err error) error {
	p.metrics.PipelineFailed(stage)
	p.logger.Warn("activity_pipeline_failed", "user_id", userID, "stage", stage, "err", err)
	return &PipelineStageError{Stage: stage, Err: err}
}
