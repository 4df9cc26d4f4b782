package config

import (
	"fmt"
	"strings"
	"time"

	commonconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/config"
)

// ServerConfig: HTTP 서버 설정 alias
type ServerConfig = commonconfig.ServerConfig

// ServerTuningConfig: 서버 튜닝 설정 alias
type ServerTuningConfig = commonconfig.ServerTuningConfig

// LlmConfig: 외부 응답/요약 서버 설정 alias
type LlmConfig = commonconfig.LlmConfig

// RedisConfig: 캐시/레이트리밋용 Valkey 설정 alias
type RedisConfig = commonconfig.RedisConfig

// ValkeyMQConfig: 요약 작업 스트림 설정 alias
type ValkeyMQConfig = commonconfig.ValkeyMQConfig

// LogConfig: 로깅 설정 alias
type LogConfig = commonconfig.LogConfig

// PostgresConfig: PostgreSQL 데이터베이스 설정
type PostgresConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	ConnectAttempts int
}

// SummaryConfig: 대화 요약 워커 설정
type SummaryConfig struct {
	Dispatch    string // local | stream
	WorkerCount int
	QueueSize   int
	Interval    int // 트리거 간격 (사용자 메시지 수)
	Timeout     time.Duration
	MaxAttempts int
}

// RateLimitConfig: 사용자별 요청 제한 설정
type RateLimitConfig struct {
	Limit  int64
	Window time.Duration
}

// CacheConfig: 채팅 기록/검색 캐시 TTL
type CacheConfig struct {
	HistoryTTL time.Duration
	SearchTTL  time.Duration
}

// MetricsConfig: Prometheus 노출 설정
type MetricsConfig struct {
	Enabled bool
	APIKey  string
}

// Config: 전체 애플리케이션 설정 구조체
type Config struct {
	Server       ServerConfig
	ServerTuning ServerTuningConfig
	Llm          LlmConfig
	Redis        RedisConfig
	Valkey       ValkeyMQConfig
	Postgres     PostgresConfig
	Log          LogConfig
	Summary      SummaryConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Metrics      MetricsConfig
	Telemetry    commonconfig.TelemetryConfig
}

// LoadFromEnv: 환경 변수로부터 전체 애플리케이션 설정을 로드합니다.
func LoadFromEnv() (*Config, error) {
	server, err := commonconfig.ReadServerConfigFromEnv(40260)
	if err != nil {
		return nil, fmt.Errorf("read server config failed: %w", err)
	}
	serverTuning, err := commonconfig.ReadServerTuningConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read server tuning config failed: %w", err)
	}
	llmCfg, err := commonconfig.ReadLlmConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read llm config failed: %w", err)
	}
	redisCfg, err := readRedisConfig()
	if err != nil {
		return nil, err
	}
	valkey, err := readValkeyMQConfig()
	if err != nil {
		return nil, err
	}
	postgres, err := readPostgresConfig()
	if err != nil {
		return nil, err
	}
	logCfg, err := commonconfig.ReadLogConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read log config failed: %w", err)
	}
	summary, err := readSummaryConfig()
	if err != nil {
		return nil, err
	}
	rateLimit, err := readRateLimitConfig()
	if err != nil {
		return nil, err
	}
	cache, err := readCacheConfig()
	if err != nil {
		return nil, err
	}
	metrics, err := readMetricsConfig()
	if err != nil {
		return nil, err
	}
	telemetry, err := commonconfig.ReadTelemetryConfigFromEnv("bondhu")
	if err != nil {
		return nil, fmt.Errorf("read telemetry config: %w", err)
	}

	return &Config{
		Server:       server,
		ServerTuning: serverTuning,
		Llm:          llmCfg,
		Redis:        redisCfg,
		Valkey:       valkey,
		Postgres:     postgres,
		Log:          logCfg,
		Summary:      summary,
		RateLimit:    rateLimit,
		Cache:        cache,
		Metrics:      metrics,
		Telemetry:    telemetry,
	}, nil
}

func readRedisConfig() (RedisConfig, error) {
	cfg, err := commonconfig.ReadRedisConfigFromEnv(
		[]string{"CACHE_HOST", "REDIS_HOST"},
		[]string{"CACHE_PORT", "REDIS_PORT"},
		[]string{"CACHE_PASSWORD", "REDIS_PASSWORD"},
		"localhost",
		6379,
	)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("read redis config failed: %w", err)
	}
	return cfg, nil
}

func readValkeyMQConfig() (ValkeyMQConfig, error) {
	cfg, err := commonconfig.ReadValkeyMQConfigFromEnv(commonconfig.ValkeyMQConfigEnvOptions{
		HostKeys:     []string{"MQ_HOST", "VALKEY_MQ_HOST"},
		PortKeys:     []string{"MQ_PORT", "VALKEY_MQ_PORT"},
		PasswordKeys: []string{"MQ_PASSWORD", "VALKEY_MQ_PASSWORD"},

		TimeoutMillisKeys: []string{"MQ_TIMEOUT", "VALKEY_MQ_TIMEOUT"},
		ConsumerGroupKeys: []string{"MQ_CONSUMER_GROUP", "VALKEY_MQ_CONSUMER_GROUP"},
		ConsumerNameKeys:  []string{"MQ_CONSUMER_NAME", "VALKEY_MQ_CONSUMER_NAME"},
		StreamKeyKeys:     []string{"MQ_SUMMARY_STREAM_KEY", "MQ_STREAM_KEY"},
		BatchSizeKeys:     []string{"MQ_BATCH_SIZE", "VALKEY_MQ_BATCH_SIZE"},
		ConcurrencyKeys:   []string{"MQ_CONCURRENCY", "VALKEY_MQ_CONCURRENCY"},
		StreamMaxLenKeys:  []string{"MQ_STREAM_MAX_LEN", "VALKEY_MQ_STREAM_MAX_LEN"},

		DefaultHost:          "localhost",
		DefaultPort:          1833,
		DefaultTimeoutMillis: commonconfig.MQReadTimeoutMS,

		DefaultConsumerGroup: DefaultSummaryConsumerGroup,
		DefaultConsumerName:  "consumer-1",
		DefaultStreamKey:     DefaultSummaryStreamKey,
		DefaultBatchSize:     commonconfig.MQBatchSize,
		DefaultConcurrency:   commonconfig.MQConsumerConcurrency,
		DefaultStreamMaxLen:  commonconfig.MQStreamMaxLen,
	})
	if err != nil {
		return ValkeyMQConfig{}, fmt.Errorf("read valkey mq config failed: %w", err)
	}
	return cfg, nil
}

func readPostgresConfig() (PostgresConfig, error) {
	port, err := commonconfig.IntFromEnv("DB_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("read DB_PORT failed: %w", err)
	}
	attempts, err := commonconfig.IntFromEnv("DB_CONNECT_ATTEMPTS", 5)
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("read DB_CONNECT_ATTEMPTS failed: %w", err)
	}

	return PostgresConfig{
		Host:            commonconfig.StringFromEnv("DB_HOST", "localhost"),
		Port:            port,
		Name:            commonconfig.StringFromEnv("DB_NAME", "bondhu"),
		User:            commonconfig.StringFromEnv("DB_USER", "bondhu_app"),
		Password:        commonconfig.StringFromEnv("DB_PASSWORD", ""),
		SSLMode:         commonconfig.StringFromEnv("DB_SSLMODE", "disable"),
		ConnectAttempts: attempts,
	}, nil
}

func readSummaryConfig() (SummaryConfig, error) {
	workerCount, err := commonconfig.IntFromEnv("SUMMARY_WORKER_COUNT", 2)
	if err != nil {
		return SummaryConfig{}, fmt.Errorf("read SUMMARY_WORKER_COUNT failed: %w", err)
	}
	queueSize, err := commonconfig.IntFromEnv("SUMMARY_QUEUE_SIZE", 100)
	if err != nil {
		return SummaryConfig{}, fmt.Errorf("read SUMMARY_QUEUE_SIZE failed: %w", err)
	}
	interval, err := commonconfig.IntFromEnv("SUMMARY_TRIGGER_INTERVAL", SummaryTriggerInterval)
	if err != nil {
		return SummaryConfig{}, fmt.Errorf("read SUMMARY_TRIGGER_INTERVAL failed: %w", err)
	}
	timeout, err := commonconfig.DurationSecondsFromEnv("SUMMARY_TIMEOUT_SECONDS", 60)
	if err != nil {
		return SummaryConfig{}, fmt.Errorf("read SUMMARY_TIMEOUT_SECONDS failed: %w", err)
	}
	maxAttempts, err := commonconfig.IntFromEnv("SUMMARY_MAX_ATTEMPTS", 3)
	if err != nil {
		return SummaryConfig{}, fmt.Errorf("read SUMMARY_MAX_ATTEMPTS failed: %w", err)
	}

	dispatch := strings.ToLower(commonconfig.StringFromEnv("SUMMARY_DISPATCH", SummaryDispatchLocal))
	switch dispatch {
	case SummaryDispatchLocal, SummaryDispatchStream:
	default:
		return SummaryConfig{}, fmt.Errorf("invalid SUMMARY_DISPATCH: %q", dispatch)
	}
	if workerCount <= 0 || queueSize <= 0 || interval <= 0 || maxAttempts <= 0 {
		return SummaryConfig{}, fmt.Errorf(
			"invalid summary config: workers=%d queue=%d interval=%d attempts=%d",
			workerCount, queueSize, interval, maxAttempts,
		)
	}

	return SummaryConfig{
		Dispatch:    dispatch,
		WorkerCount: workerCount,
		QueueSize:   queueSize,
		Interval:    interval,
		Timeout:     timeout,
		MaxAttempts: maxAttempts,
	}, nil
}

func readRateLimitConfig() (RateLimitConfig, error) {
	limit, err := commonconfig.Int64FromEnv("RATE_LIMIT_PER_WINDOW", 100)
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("read RATE_LIMIT_PER_WINDOW failed: %w", err)
	}
	window, err := commonconfig.DurationSecondsFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("read RATE_LIMIT_WINDOW_SECONDS failed: %w", err)
	}
	if window < time.Second {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW_SECONDS: %s", window)
	}
	return RateLimitConfig{Limit: limit, Window: window}, nil
}

func readCacheConfig() (CacheConfig, error) {
	historyTTL, err := commonconfig.DurationSecondsFromEnv("CACHE_HISTORY_TTL_SECONDS", 300)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("read CACHE_HISTORY_TTL_SECONDS failed: %w", err)
	}
	searchTTL, err := commonconfig.DurationSecondsFromEnv("CACHE_SEARCH_TTL_SECONDS", 120)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("read CACHE_SEARCH_TTL_SECONDS failed: %w", err)
	}
	return CacheConfig{HistoryTTL: historyTTL, SearchTTL: searchTTL}, nil
}

func readMetricsConfig() (MetricsConfig, error) {
	enabled, err := commonconfig.BoolFromEnv("METRICS_ENABLED", true)
	if err != nil {
		return MetricsConfig{}, fmt.Errorf("read METRICS_ENABLED failed: %w", err)
	}
	return MetricsConfig{
		Enabled: enabled,
		APIKey:  commonconfig.StringFromEnvFirstNonEmpty([]string{"METRICS_API_KEY", "HTTP_API_KEY"}, ""),
	}, nil
}
