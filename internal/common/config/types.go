package config

import "time"

// ServerConfig: HTTP 서버 주소/포트 설정입니다.
type ServerConfig struct {
	Host string // 서버 바인딩 호스트
	Port int    // 서버 리스닝 포트
}

// LlmConfig: 외부 LLM 서버(응답 생성/요약) HTTP 통신 설정입니다.
type LlmConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	ConnectTimeout    time.Duration
	RequestsPerSecond float64 // 외부 호출 속도 제한 (0이면 무제한)
}

// Enabled: 외부 LLM 서버가 설정되었는지 여부
func (c LlmConfig) Enabled() bool { return c.BaseURL != "" }

// RedisConfig: Redis/Valkey 캐시 연결 설정입니다.
type RedisConfig struct {
	Host     string // 서버 호스트
	Port     int    // 서버 포트
	Password string // 인증 패스워드
	DB       int    // 사용할 DB 번호

	DialTimeout  time.Duration // 연결 타임아웃
	ReadTimeout  time.Duration // 읽기 타임아웃
	WriteTimeout time.Duration // 쓰기 타임아웃

	PoolSize     int // 커넥션 풀 크기
	MinIdleConns int // 최소 유휴 커넥션 수
}

// ValkeyMQConfig: Valkey Streams 기반 작업 큐 설정입니다.
type ValkeyMQConfig struct {
	Host     string
	Port     int
	Password string

	Timeout       time.Duration // 명령 타임아웃
	ConsumerGroup string        // Consumer Group 이름
	ConsumerName  string        // Consumer 식별자
	StreamKey     string        // 작업 스트림 키

	BatchSize    int64         // 한 번에 읽을 메시지 수
	BlockTimeout time.Duration // XREADGROUP 블록 타임아웃
	Concurrency  int           // 동시 처리 워커 수
	StreamMaxLen int64         // 스트림 최대 길이 (MAXLEN ~)
}

// LogConfig: 파일 로그 로테이션 설정입니다.
type LogConfig struct {
	Level string // debug|info|warn|error
	Dir   string // 로그 파일 디렉터리

	MaxSizeMB  int  // 단일 파일 최대 크기 (MB)
	MaxBackups int  // 보관할 백업 파일 수
	MaxAgeDays int  // 백업 파일 보관 일수
	Compress   bool // 백업 파일 압축 여부
}

// ServerTuningConfig: HTTP 서버 튜닝 설정(Timeouts, Limits)입니다.
type ServerTuningConfig struct {
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// TelemetryConfig: OpenTelemetry 분산 추적 설정입니다.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string // host:port (gRPC)
	OTLPInsecure   bool
	SampleRate     float64 // 0.0 ~ 1.0
}
