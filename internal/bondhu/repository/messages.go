package repository

import (
	"context"
	"strings"
	"time"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

const likeEscape = ` ESCAPE '\'`

// AppendMessage: 대화 턴 하나를 저장하고 ID가 채워진 사본을 반환한다.
func (r *Repository) AppendMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	if err := r.ready(); err != nil {
		return model.ChatMessage{}, err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	entity := ChatMessage{
		UserID:       strings.TrimSpace(msg.UserID),
		SessionID:    strings.TrimSpace(msg.SessionID),
		SenderType:   string(msg.SenderType),
		Message:      msg.Message,
		MoodDetected: string(msg.MoodDetected),
		Timestamp:    msg.Timestamp.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return model.ChatMessage{}, dbError("append_message", err)
	}
	return toChatMessage(entity), nil
}

// ListSessionMessages: 세션의 대화를 시간순(동률이면 ID순)으로 반환한다.
func (r *Repository) ListSessionMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var rows []ChatMessage
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("timestamp ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, dbError("list_session_messages", err)
	}
	return toChatMessages(rows), nil
}

// ListHistory: 최신순 페이지 조회. sessionID가 비어있으면 전체 세션 대상.
func (r *Repository) ListHistory(ctx context.Context, userID, sessionID string, limit, offset int) ([]model.ChatMessage, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}

	var rows []ChatMessage
	if err := q.Order("timestamp DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, dbError("list_history", err)
	}
	return toChatMessages(rows), nil
}

// SearchMessages: 메시지 본문 대소문자 무시 부분 일치 검색 (최신순).
func (r *Repository) SearchMessages(ctx context.Context, userID, query string, limit int) ([]model.ChatMessage, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	var rows []ChatMessage
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("LOWER(message) LIKE ?"+likeEscape, likePattern(query)).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, dbError("search_messages", err)
	}
	return toChatMessages(rows), nil
}

// CountSessionMessages: 세션 메시지 수. sender가 비어있으면 전체.
func (r *Repository) CountSessionMessages(ctx context.Context, userID, sessionID string, sender model.SenderType) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	q := r.db.WithContext(ctx).Model(&ChatMessage{}).
		Where("user_id = ? AND session_id = ?", userID, sessionID)
	if sender != "" {
		q = q.Where("sender_type = ?", string(sender))
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, dbError("count_session_messages", err)
	}
	return count, nil
}

// CountUserMessagesSince: since 이후 사용자 발화 수 (전체 세션).
func (r *Repository) CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&ChatMessage{}).
		Where("user_id = ? AND sender_type = ? AND timestamp >= ?", userID, string(model.SenderUser), since.UTC()).
		Count(&count).Error; err != nil {
		return 0, dbError("count_user_messages_since", err)
	}
	return count, nil
}

func toChatMessage(e ChatMessage) model.ChatMessage {
	return model.ChatMessage{
		ID:           e.ID,
		UserID:       e.UserID,
		SessionID:    e.SessionID,
		SenderType:   model.SenderType(e.SenderType),
		Message:      e.Message,
		MoodDetected: model.Mood(e.MoodDetected),
		Timestamp:    e.Timestamp.UTC(),
	}
}

func toChatMessages(rows []ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, toChatMessage(row))
	}
	return out
}
