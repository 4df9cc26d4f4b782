package messages

// StatsWellnessNoChange: 대시보드 통계 문구 키
const (
	StatsWellnessNoChange = "stats.wellness_no_change"
	StatsWellnessUp       = "stats.wellness_up"
	StatsWellnessDown     = "stats.wellness_down"
	StatsMessagesToday    = "stats.messages_today"

	StatsStreakStart      = "stats.streak_start"
	StatsStreakKeepGoing  = "stats.streak_keep_going"
	StatsStreakBuilding   = "stats.streak_building"
	StatsStreakMomentum   = "stats.streak_momentum"
	StatsStreakAmazing    = "stats.streak_amazing"
	StatsStreakIncredible = "stats.streak_incredible"
	StatsStreakOnFire     = "stats.streak_on_fire"
)

// SummaryGeneralTopic: 내장 요약기 문구 키
const (
	SummaryGeneralTopic   = "summary.general_topic"
	SummaryNoConversation = "summary.no_conversation"
	SummaryStartedWith    = "summary.started_with"
	SummaryEndedWith      = "summary.ended_with"
)

// ContextHeader: LLM 컨텍스트 블록 문구 키
const (
	ContextHeader          = "context.header"
	ContextFactsHeader     = "context.facts_header"
	ContextMemoriesHeader  = "context.memories_header"
	ContextReferenceHeader = "context.reference_header"
	ContextMemoryLine      = "context.memory_line"
	ContextKeyPointLine    = "context.key_point_line"
	ContextFactLine        = "context.fact_line"
	ContextWhenToday       = "context.when_today"
	ContextWhenYesterday   = "context.when_yesterday"
	ContextWhenDaysAgo     = "context.when_days_ago"
)

// ReplyFallback: 내장 응답기 문구 키
const (
	ReplyFallback   = "reply.fallback"
	ReplyRemembered = "reply.remembered"
)
