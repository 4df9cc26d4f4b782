package repository

import (
	"time"

	"gorm.io/datatypes"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

// ChatMessage: 대화 턴 기록 (append-only)
// 복합 인덱스: idx_chat_messages_session (user_id, session_id, timestamp)
type ChatMessage struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       string    `gorm:"column:user_id;not null;index:idx_chat_messages_session,priority:1;index:idx_chat_messages_user_time,priority:1"`
	SessionID    string    `gorm:"column:session_id;not null;index:idx_chat_messages_session,priority:2"`
	SenderType   string    `gorm:"column:sender_type;not null"`
	Message      string    `gorm:"column:message;type:text;not null"`
	MoodDetected string    `gorm:"column:mood_detected;not null;default:''"`
	Timestamp    time.Time `gorm:"column:timestamp;not null;index:idx_chat_messages_session,priority:3;index:idx_chat_messages_user_time,priority:2"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// UserActivityStats: 사용자별 활동 누적 행
type UserActivityStats struct {
	UserID                 string                                                  `gorm:"column:user_id;primaryKey"`
	TotalMessages          int                                                     `gorm:"column:total_messages;not null;default:0"`
	TotalGamesPlayed       int                                                     `gorm:"column:total_games_played;not null;default:0"`
	CurrentStreakDays      int                                                     `gorm:"column:current_streak_days;not null;default:0"`
	CurrentStreakStartDate *string                                                 `gorm:"column:current_streak_start_date"`
	LongestStreakDays      int                                                     `gorm:"column:longest_streak_days;not null;default:0"`
	LastActivityDate       *string                                                 `gorm:"column:last_activity_date"`
	LastActivityAt         *time.Time                                              `gorm:"column:last_activity_at"`
	WellnessScore          int                                                     `gorm:"column:wellness_score;not null;default:0"`
	WellnessScoreHistory   datatypes.JSONType[[]model.WellnessPoint]               `gorm:"column:wellness_score_history"`
	AchievementUnlocks     datatypes.JSONType[map[string]model.AchievementUnlock] `gorm:"column:achievement_unlocks"`
	TotalAchievements      int                                                     `gorm:"column:total_achievements;not null;default:0"`
	CreatedAt              time.Time                                               `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt              time.Time                                               `gorm:"column:updated_at;not null;autoUpdateTime"`
	Version                int64                                                   `gorm:"column:version;not null;default:0"`
}

func (UserActivityStats) TableName() string { return "user_activity_stats" }

// UserActivityDay: 사용자가 활동한 달력 날짜 (고유)
type UserActivityDay struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       string    `gorm:"column:user_id;not null;uniqueIndex:idx_user_activity_days_user_date,priority:1"`
	ActivityDate string    `gorm:"column:activity_date;not null;uniqueIndex:idx_user_activity_days_user_date,priority:2"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (UserActivityDay) TableName() string { return "user_activity_days" }

// Achievement: 업적 카탈로그 (읽기 전용 참조 데이터)
type Achievement struct {
	ID               uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	AchievementType  string `gorm:"column:achievement_type;not null;uniqueIndex:idx_achievements_type_requirement,priority:1"`
	AchievementName  string `gorm:"column:achievement_name;not null"`
	Description      string `gorm:"column:description;not null;default:''"`
	RequirementValue int    `gorm:"column:requirement_value;not null;uniqueIndex:idx_achievements_type_requirement,priority:2"`
	IconName         string `gorm:"column:icon_name;not null;default:''"`
}

func (Achievement) TableName() string { return "achievements" }

// ConversationMemory: 요약된 세션 기억
// 고유 인덱스: idx_conversation_memories_crossing (user_id, session_id, message_count)
type ConversationMemory struct {
	ID                  string                      `gorm:"column:id;primaryKey"`
	UserID              string                      `gorm:"column:user_id;not null;uniqueIndex:idx_conversation_memories_crossing,priority:1;index:idx_conversation_memories_user_start,priority:1"`
	SessionID           string                      `gorm:"column:session_id;not null;uniqueIndex:idx_conversation_memories_crossing,priority:2"`
	MessageCount        int                         `gorm:"column:message_count;not null;uniqueIndex:idx_conversation_memories_crossing,priority:3"`
	ConversationSummary string                      `gorm:"column:conversation_summary;type:text;not null"`
	Topics              datatypes.JSONSlice[string] `gorm:"column:topics"`
	Emotions            datatypes.JSONSlice[string] `gorm:"column:emotions"`
	KeyPoints           datatypes.JSONSlice[string] `gorm:"column:key_points"`
	MessageIDs          datatypes.JSONSlice[uint64] `gorm:"column:message_ids"`
	StartTime           time.Time                   `gorm:"column:start_time;not null;index:idx_conversation_memories_user_start,priority:2"`
	EndTime             time.Time                   `gorm:"column:end_time;not null"`
	CreatedAt           time.Time                   `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt           time.Time                   `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (ConversationMemory) TableName() string { return "conversation_memories" }

// MemoryIndexEntry: 토픽/개체 조회용 보조 인덱스 행
// 복합 인덱스: idx_memory_index_lookup (user_id, index_type, topic)
type MemoryIndexEntry struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     string    `gorm:"column:user_id;not null;index:idx_memory_index_lookup,priority:1"`
	SessionID  string    `gorm:"column:session_id;not null"`
	MemoryID   string    `gorm:"column:memory_id;not null;index"`
	IndexType  string    `gorm:"column:index_type;not null;index:idx_memory_index_lookup,priority:2"`
	Topic      *string   `gorm:"column:topic;index:idx_memory_index_lookup,priority:3"`
	EntityName *string   `gorm:"column:entity_name"`
	EntityType *string   `gorm:"column:entity_type"`
	Timestamp  time.Time `gorm:"column:timestamp;not null"`
}

func (MemoryIndexEntry) TableName() string { return "memory_index" }

// SessionSummaryMark: 세션별 요약 워터마크
type SessionSummaryMark struct {
	UserID              string    `gorm:"column:user_id;primaryKey"`
	SessionID           string    `gorm:"column:session_id;primaryKey"`
	LastSummarizedCount int       `gorm:"column:last_summarized_count;not null;default:0"`
	UpdatedAt           time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SessionSummaryMark) TableName() string { return "session_summary_marks" }

// UserMemory: 사용자 장기 사실
// 고유 인덱스: idx_user_memories_user_key (user_id, memory_key)
type UserMemory struct {
	ID             string            `gorm:"column:id;primaryKey"`
	UserID         string            `gorm:"column:user_id;not null;uniqueIndex:idx_user_memories_user_key,priority:1"`
	MemoryKey      string            `gorm:"column:memory_key;not null;uniqueIndex:idx_user_memories_user_key,priority:2"`
	Value          string            `gorm:"column:value;type:text;not null"`
	Importance     string            `gorm:"column:importance;not null;default:'low';index"`
	Category       string            `gorm:"column:category;not null;default:'other'"`
	AccessCount    int               `gorm:"column:access_count;not null;default:0"`
	LastAccessed   *time.Time        `gorm:"column:last_accessed"`
	Metadata       datatypes.JSONMap `gorm:"column:metadata"`
	ManualOverride bool              `gorm:"column:manual_override;not null;default:false"`
	CreatedAt      time.Time         `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (UserMemory) TableName() string { return "user_memories" }
