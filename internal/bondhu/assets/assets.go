// Package assets 는 Bondhu 서비스에 임베드되는 YAML/Lua 리소스를 제공한다.
package assets

import _ "embed" // 에셋 임베드용

// MessagesYAML 는 대시보드/요약/응답 문구 YAML이다. 루트 키는 "bondhu".
//
//go:embed messages/bondhu-messages.yml
var MessagesYAML string

// TopicLexiconYAML 는 토픽/감정/회상 표현 키워드 사전이다.
//
//go:embed lexicon/topics.yml
var TopicLexiconYAML string

// AchievementCatalogYAML 는 연속 활동 업적 카탈로그 시드다.
//
//go:embed catalog/achievements.yml
var AchievementCatalogYAML string

// ClassificationRulesYAML 는 사용자 기억 키 분류 규칙표다.
//
//go:embed rules/classification.yml
var ClassificationRulesYAML string

// RateLimitIncrLua 는 고정 윈도우 카운터 Lua 스크립트다.
//
//go:embed lua/rate_limit_incr.lua
var RateLimitIncrLua string

// ExtractionRulesYAML 는 대화에서 사용자 사실을 뽑는 패턴표다.
//
//go:embed rules/extraction.yml
var ExtractionRulesYAML string
