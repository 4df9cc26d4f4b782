package lua

// 스크립트 이름 상수.
const (
	// ScriptRateLimitIncr: 고정 윈도우 카운터 증가 + 최초 증가 시 만료 설정
	ScriptRateLimitIncr = "rate_limit_incr"
)
