package config

import "time"

// 요약 트리거 정책.
const (
	// SummaryTriggerInterval: 세션의 사용자 메시지 수가 이 값의 배수가 되면 요약 대상이 된다.
	SummaryTriggerInterval = 10
	// SummaryKeyPointCount: 요약에 담는 마지막 사용자 메시지 수
	SummaryKeyPointCount = 3
	// SummaryMaxTopics: 요약 한 건에 담는 최대 토픽 수
	SummaryMaxTopics = 8
	// SummarySnippetLength: 요약 문장에 인용하는 메시지 최대 길이(rune)
	SummarySnippetLength = 100
)

// 조회 기본값과 상한.
const (
	DefaultRecentDays        = 7
	DefaultRecentLimit       = 10
	DefaultTopicSearchLimit  = 5
	DefaultIndexSearchLimit  = 10
	DefaultMostDiscussed     = 10
	DefaultTimelineDays      = 30
	DefaultTimelineLimit     = 50
	DefaultHistoryLimit      = 50
	DefaultChatSearchLimit   = 20
	DefaultFactsLimit        = 50
	DefaultOverviewLimit     = 20
	MaxSearchLimit           = 100
	MaxTopicFrequencyRows    = 500
	DefaultCleanupAge        = 90 * 24 * time.Hour
	MemoryCleanupInterval    = 24 * time.Hour
	ContextMemoryCount       = 3
	ContextKeyPointCount     = 3
	ContextSnippetLength     = 100
	ReferenceLookbackDays    = 30
	WellnessHistoryMaxPoints = 365
)

// 활동 점수 계산.
const (
	WellnessWindowDays      = 7
	WellnessComponentMax    = 25
	ActiveDayPoints         = 5
	StreakDayPoints         = 2
	MessagesPerPoint        = 10
	GamePoints              = 2
	AchievementPoints       = 5
	StreakUpdateMaxAttempts = 5
)

// RedisKeyPrefix 는 Valkey 키 상수 목록이다.
const (
	RedisKeyPrefix        = "bondhu"
	RedisKeyChatPrefix    = RedisKeyPrefix + ":chat"
	RedisKeyHistoryPrefix = RedisKeyChatPrefix + ":history"
	RedisKeySearchPrefix  = RedisKeyChatPrefix + ":search"
	RedisKeyRatePrefix    = RedisKeyPrefix + ":ratelimit"
)

// DefaultSummaryStreamKey 는 요약 작업 스트림 기본 키다.
const (
	DefaultSummaryStreamKey     = RedisKeyPrefix + ":summary:jobs"
	DefaultSummaryConsumerGroup = "bondhu-summary-group"
)

// SummaryDispatch 값.
const (
	SummaryDispatchLocal  = "local"
	SummaryDispatchStream = "stream"
)
