package repository

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

type overviewRow struct {
	SessionID        string
	MessageCount     int64
	UserMessageCount int64
	FirstMessageAt   scanTime
	LastMessageAt    scanTime
}

// ConversationOverview: 세션별 메시지 수, 사용자 메시지 수, 처음/마지막 시각, 요약 여부 (최근 세션 우선).
func (r *Repository) ConversationOverview(ctx context.Context, userID string, limit int) ([]model.SessionOverview, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var rows []overviewRow
	if err := r.db.WithContext(ctx).Model(&ChatMessage{}).
		Select(
			"session_id AS session_id, COUNT(*) AS message_count, "+
				"SUM(CASE WHEN sender_type = ? THEN 1 ELSE 0 END) AS user_message_count, "+
				"MIN(timestamp) AS first_message_at, MAX(timestamp) AS last_message_at",
			string(model.SenderUser),
		).
		Where("user_id = ?", userID).
		Group("session_id").
		Order("last_message_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, dbError("conversation_overview", err)
	}

	sessionIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		sessionIDs = append(sessionIDs, row.SessionID)
	}

	summarized := make(map[string]bool, len(rows))
	if len(sessionIDs) > 0 {
		var marked []string
		if err := r.db.WithContext(ctx).Model(&SessionSummaryMark{}).
			Where("user_id = ? AND session_id IN ? AND last_summarized_count > 0", userID, sessionIDs).
			Pluck("session_id", &marked).Error; err != nil {
			return nil, dbError("conversation_overview_marks", err)
		}
		for _, id := range marked {
			summarized[id] = true
		}
	}

	out := make([]model.SessionOverview, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.SessionOverview{
			SessionID:        row.SessionID,
			MessageCount:     row.MessageCount,
			UserMessageCount: row.UserMessageCount,
			FirstMessageAt:   time.Time(row.FirstMessageAt).UTC(),
			LastMessageAt:    time.Time(row.LastMessageAt).UTC(),
			Summarized:       summarized[row.SessionID],
		})
	}
	return out, nil
}

// UserMemoryStats: 중요도별 사용자 기억 수와 합계
func (r *Repository) UserMemoryStats(ctx context.Context, userID string) (model.MemoryStats, error) {
	if err := r.ready(); err != nil {
		return model.MemoryStats{}, err
	}

	var rows []struct {
		Importance string
		Count      int64
	}
	if err := r.db.WithContext(ctx).Model(&UserMemory{}).
		Select("importance AS importance, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("importance").
		Scan(&rows).Error; err != nil {
		return model.MemoryStats{}, dbError("user_memory_stats", err)
	}

	stats := model.MemoryStats{UserID: userID}
	for _, row := range rows {
		switch model.Importance(row.Importance) {
		case model.ImportanceHigh:
			stats.High += row.Count
		case model.ImportanceMedium:
			stats.Medium += row.Count
		default:
			stats.Low += row.Count
		}
		stats.Total += row.Count
	}
	return stats, nil
}

// scanTime: 집계 함수 결과 시각 스캐너. 드라이버에 따라 time.Time 또는 문자열로 온다.
type scanTime time.Time

var scanTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Scan: sql.Scanner 구현
func (t *scanTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = scanTime{}
		return nil
	case time.Time:
		*t = scanTime(v)
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

// Value: driver.Valuer 구현
func (t scanTime) Value() (driver.Value, error) {
	return time.Time(t), nil
}

func (t *scanTime) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	for _, layout := range scanTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = scanTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unparseable time value %q", raw)
}
