// Package model 은 Bondhu 기억/활동 도메인 타입을 정의한다.
package model

import (
	"strings"
	"time"
)

// SenderType: 대화 턴의 발화자
type SenderType string

// SenderUser 등: 발화자 상수
const (
	SenderUser SenderType = "user"
	SenderAI   SenderType = "ai"
)

// Valid: 알려진 발화자인지 여부
func (s SenderType) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// ActivityType: 활동 누적기가 받는 활동 종류
type ActivityType string

// ActivityChat 등: 활동 종류 상수
const (
	ActivityChat  ActivityType = "chat"
	ActivityGame  ActivityType = "game"
	ActivityLogin ActivityType = "login"
)

// ParseActivityType: 문자열을 ActivityType으로 변환한다. 빈 값은 chat으로 간주한다.
func ParseActivityType(raw string) (ActivityType, bool) {
	switch ActivityType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ActivityChat:
		return ActivityChat, true
	case ActivityGame:
		return ActivityGame, true
	case ActivityLogin:
		return ActivityLogin, true
	default:
		return "", false
	}
}

// Mood: 사용자 메시지에서 감지한 기분
type Mood string

// MoodPositive 등: 기분 상수
const (
	MoodPositive Mood = "positive"
	MoodNegative Mood = "negative"
	MoodNeutral  Mood = "neutral"
)

// Importance: 사용자 기억 중요도
type Importance string

// ImportanceHigh 등: 중요도 상수
const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Valid: 알려진 중요도인지 여부
func (i Importance) Valid() bool {
	return i == ImportanceHigh || i == ImportanceMedium || i == ImportanceLow
}

// IndexType: 기억 인덱스 행 종류
type IndexType string

// IndexTopic 등: 인덱스 종류 상수
const (
	IndexTopic  IndexType = "topic"
	IndexEntity IndexType = "entity"
)

// AchievementTypeStreak: 연속 활동 업적 종류
const AchievementTypeStreak = "streak"

// ChatMessage: 저장된 대화 한 턴. 한 번 기록되면 변경되지 않는다.
type ChatMessage struct {
	ID           uint64     `json:"id"`
	UserID       string     `json:"user_id"`
	SessionID    string     `json:"session_id"`
	SenderType   SenderType `json:"sender_type"`
	Message      string     `json:"message"`
	MoodDetected Mood       `json:"mood_detected,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// WellnessPoint: 날짜별 활동 점수 기록
type WellnessPoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// AchievementUnlock: 업적 달성 메타데이터
type AchievementUnlock struct {
	UnlockedAt  time.Time `json:"unlocked_at"`
	Name        string    `json:"name"`
	StreakValue int       `json:"streak_value"`
}

// ActivityStats: 사용자별 활동 누적 상태
type ActivityStats struct {
	UserID                 string                       `json:"user_id"`
	TotalMessages          int                          `json:"total_messages"`
	TotalGamesPlayed       int                          `json:"total_games_played"`
	CurrentStreakDays      int                          `json:"current_streak_days"`
	CurrentStreakStartDate string                       `json:"current_streak_start_date,omitempty"`
	LongestStreakDays      int                          `json:"longest_streak_days"`
	LastActivityDate       string                       `json:"last_activity_date,omitempty"`
	LastActivityAt         *time.Time                   `json:"last_activity_at,omitempty"`
	WellnessScore          int                          `json:"wellness_score"`
	WellnessHistory        []WellnessPoint              `json:"wellness_score_history"`
	AchievementUnlocks     map[string]AchievementUnlock `json:"achievement_unlocks"`
	TotalAchievements      int                          `json:"total_achievements"`
	Version                int64                        `json:"-"`
}

// Achievement: 업적 카탈로그 항목
type Achievement struct {
	ID          uint64 `json:"id"`
	Type        string `json:"achievement_type" yaml:"type"`
	Name        string `json:"achievement_name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Requirement int    `json:"requirement_value" yaml:"requirement"`
	Icon        string `json:"icon_name" yaml:"icon"`
}

// Key: 달성 기록 맵에서 사용하는 키
func (a Achievement) Key() string {
	return a.Type + ":" + itoa(a.Requirement)
}

// WellnessBreakdown: 활동 점수 구성 요소
type WellnessBreakdown struct {
	Activity    int `json:"activity"`
	Consistency int `json:"consistency"`
	Engagement  int `json:"engagement"`
	Growth      int `json:"growth"`
	Score       int `json:"score"`
}

// PipelineResult: 메시지 파이프라인 실행 결과
type PipelineResult struct {
	Stats         ActivityStats     `json:"stats"`
	NewlyUnlocked []Achievement     `json:"newly_unlocked"`
	Wellness      WellnessBreakdown `json:"wellness"`
}

// MessageAppended: 사용자 메시지가 저장된 뒤 발생하는 이벤트
type MessageAppended struct {
	UserID    string
	SessionID string
	MessageID uint64
	Timestamp time.Time
}

// EntityRef: 대화에서 추출한 개체 (이름, 종류)
type EntityRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ConversationMemory: 요약된 세션 기억
type ConversationMemory struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	Summary      string    `json:"conversation_summary"`
	Topics       []string  `json:"topics"`
	Emotions     []string  `json:"emotions"`
	KeyPoints    []string  `json:"key_points"`
	MessageIDs   []uint64  `json:"message_ids"`
	MessageCount int       `json:"message_count"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// MemoryInput: 외부/내장 요약기가 만든 기억 기록 요청
type MemoryInput struct {
	UserID       string
	SessionID    string
	Summary      string
	Topics       []string
	Emotions     []string
	KeyPoints    []string
	Entities     []EntityRef
	MessageIDs   []uint64
	MessageCount int
	StartTime    time.Time
	EndTime      time.Time
}

// TopicCount: 토픽별 빈도
type TopicCount struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

// IndexHit: 인덱스 검색 결과
type IndexHit struct {
	SessionID  string    `json:"session_id"`
	Topic      string    `json:"topic,omitempty"`
	EntityName string    `json:"entity_name,omitempty"`
	EntityType string    `json:"entity_type,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// UserMemory: 사용자에 대한 장기 사실(키-값)
type UserMemory struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Key            string         `json:"key"`
	Value          string         `json:"value"`
	Importance     Importance     `json:"importance"`
	Category       string         `json:"category"`
	AccessCount    int            `json:"access_count"`
	LastAccessed   *time.Time     `json:"last_accessed,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ManualOverride bool           `json:"manual_override"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SessionOverview: 세션별 대화 개요
type SessionOverview struct {
	SessionID        string    `json:"session_id"`
	MessageCount     int64     `json:"message_count"`
	UserMessageCount int64     `json:"user_message_count"`
	FirstMessageAt   time.Time `json:"first_message_at"`
	LastMessageAt    time.Time `json:"last_message_at"`
	Summarized       bool      `json:"summarized"`
}

// MemoryStats: 사용자 기억 중요도별 개수
type MemoryStats struct {
	UserID string `json:"user_id"`
	High   int64  `json:"high"`
	Medium int64  `json:"medium"`
	Low    int64  `json:"low"`
	Total  int64  `json:"total"`
}

// SummaryJob: 세션 요약 작업
type SummaryJob struct {
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	Force        bool      `json:"force,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
}

// DashboardStats: 대시보드 통계 응답
type DashboardStats struct {
	WellnessScore      int    `json:"wellness_score"`
	WellnessChange     int    `json:"wellness_change"`
	WellnessChangeText string `json:"wellness_change_text"`
	TotalMessages      int    `json:"total_messages"`
	MessagesTodayText  string `json:"messages_today_text"`
	CurrentStreak      int    `json:"current_streak"`
	LongestStreak      int    `json:"longest_streak"`
	StreakStatus       string `json:"streak_status"`
	IsPersonalBest     bool   `json:"is_personal_best"`
	TotalAchievements  int    `json:"total_achievements"`
	TotalAvailable     int    `json:"total_available"`
	GamesPlayed        int    `json:"games_played"`
}

// AchievementStatus: 카탈로그 항목과 사용자 달성 여부
type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// AchievementList: 업적 목록 응답
type AchievementList struct {
	Achievements   []AchievementStatus `json:"achievements"`
	TotalUnlocked  int                 `json:"total_unlocked"`
	TotalAvailable int                 `json:"total_available"`
}
