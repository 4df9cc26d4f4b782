package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimSummary: 세션 워터마크를 count로 올리는 조건부 갱신으로 요약을 선점한다.
// 선점에 성공하면 이전 워터마크 값과 true를 반환한다. 이미 count 이상이면 false.
func (r *Repository) ClaimSummary(ctx context.Context, userID, sessionID string, count int) (int, bool, error) {
	if err := r.ready(); err != nil {
		return 0, false, err
	}

	var previous int
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		mark := SessionSummaryMark{UserID: userID, SessionID: sessionID, LastSummarizedCount: count, UpdatedAt: now}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mark)
		if res.Error != nil {
			return fmt.Errorf("insert summary mark failed: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			claimed = true
			return nil
		}

		var current SessionSummaryMark
		if err := tx.Where("user_id = ? AND session_id = ?", userID, sessionID).Take(&current).Error; err != nil {
			return fmt.Errorf("read summary mark failed: %w", err)
		}
		if current.LastSummarizedCount >= count {
			return nil
		}

		res = tx.Model(&SessionSummaryMark{}).
			Where("user_id = ? AND session_id = ? AND last_summarized_count = ?", userID, sessionID, current.LastSummarizedCount).
			Updates(map[string]any{"last_summarized_count": count, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("advance summary mark failed: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			previous = current.LastSummarizedCount
			claimed = true
		}
		return nil
	})
	if err != nil {
		return 0, false, dbError("claim_summary", err)
	}
	return previous, claimed, nil
}

// ReleaseSummary: 기록에 실패한 선점을 되돌린다. 그 사이 워터마크가 움직였으면 아무것도 하지 않는다.
func (r *Repository) ReleaseSummary(ctx context.Context, userID, sessionID string, claimed, previous int) error {
	if err := r.ready(); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Model(&SessionSummaryMark{}).
		Where("user_id = ? AND session_id = ? AND last_summarized_count = ?", userID, sessionID, claimed).
		Updates(map[string]any{"last_summarized_count": previous, "updated_at": time.Now().UTC()}).Error; err != nil {
		return dbError("release_summary", err)
	}
	return nil
}

// SummaryMark: 세션의 현재 워터마크 (없으면 0).
func (r *Repository) SummaryMark(ctx context.Context, userID, sessionID string) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	var mark SessionSummaryMark
	err := r.db.WithContext(ctx).Where("user_id = ? AND session_id = ?", userID, sessionID).Take(&mark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, dbError("summary_mark", err)
	}
	return mark.LastSummarizedCount, nil
}
