package config

// MQ 공통 상수.
const (
	// MQBatchSize: 메시지 큐 배치 크기
	MQBatchSize = 5
	// MQReadTimeoutMS: 메시지 큐 읽기 타임아웃(ms)
	MQReadTimeoutMS = 5000
	// MQConsumerConcurrency: 메시지 큐 소비 동시성
	MQConsumerConcurrency = 4
	// MQStreamMaxLen: 스트림 최대 길이
	MQStreamMaxLen = 10000
)

// HTTP 공통 상수.
const (
	// MaxRequestBodyBytes: JSON 요청 바디 최대 크기
	MaxRequestBodyBytes = 1 << 20
)
