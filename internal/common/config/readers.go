package config

import (
	"fmt"
	"strings"
	"time"
)

// ReadLlmConfigFromEnv: 외부 LLM 서버(응답 생성/요약) HTTP 통신 설정을 환경 변수에서 읽어옵니다.
// BaseURL이 비어있으면 내장 응답기/요약기를 사용합니다.
func ReadLlmConfigFromEnv() (LlmConfig, error) {
	timeout, err := DurationSecondsFromEnv("LLM_TIMEOUT_SECONDS", 30)
	if err != nil {
		return LlmConfig{}, fmt.Errorf("read LLM_TIMEOUT_SECONDS failed: %w", err)
	}

	connectTimeout, err := DurationSecondsFromEnv("LLM_CONNECT_TIMEOUT_SECONDS", 10)
	if err != nil {
		return LlmConfig{}, fmt.Errorf("read LLM_CONNECT_TIMEOUT_SECONDS failed: %w", err)
	}

	requestsPerSecond, err := Float64FromEnv("LLM_REQUESTS_PER_SECOND", 5)
	if err != nil {
		return LlmConfig{}, fmt.Errorf("read LLM_REQUESTS_PER_SECOND failed: %w", err)
	}

	return LlmConfig{
		BaseURL:           strings.TrimSuffix(StringFromEnv("LLM_BASE_URL", ""), "/"),
		APIKey:            StringFromEnvFirstNonEmpty([]string{"LLM_API_KEY", "HTTP_API_KEY"}, ""),
		Timeout:           timeout,
		ConnectTimeout:    connectTimeout,
		RequestsPerSecond: requestsPerSecond,
	}, nil
}

// ReadServerConfigFromEnv: HTTP 서버 호스트와 포트 설정을 환경 변수에서 읽어옵니다.
func ReadServerConfigFromEnv(defaultPort int) (ServerConfig, error) {
	serverPort, err := IntFromEnv("SERVER_PORT", defaultPort)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("read SERVER_PORT failed: %w", err)
	}

	return ServerConfig{
		Host: StringFromEnv("SERVER_HOST", "0.0.0.0"),
		Port: serverPort,
	}, nil
}

// ReadServerTuningConfigFromEnv: HTTP 서버 튜닝 설정(Timeouts, Limits)을 환경 변수에서 읽어옵니다.
func ReadServerTuningConfigFromEnv() (ServerTuningConfig, error) {
	readHeaderTimeout, err := DurationSecondsFromEnv("SERVER_READ_HEADER_TIMEOUT_SECONDS", 5)
	if err != nil {
		return ServerTuningConfig{}, fmt.Errorf(
			"read SERVER_READ_HEADER_TIMEOUT_SECONDS failed: %w",
			err,
		)
	}

	// 명시적으로 0을 주면 비활성화
	idleTimeout, err := DurationSecondsFromEnv("SERVER_IDLE_TIMEOUT_SECONDS", 90)
	if err != nil {
		return ServerTuningConfig{}, fmt.Errorf("read SERVER_IDLE_TIMEOUT_SECONDS failed: %w", err)
	}

	maxHeaderBytes, err := IntFromEnv("SERVER_MAX_HEADER_BYTES", 1<<20) // 1MiB
	if err != nil {
		return ServerTuningConfig{}, fmt.Errorf("read SERVER_MAX_HEADER_BYTES failed: %w", err)
	}
	if maxHeaderBytes < 0 {
		return ServerTuningConfig{}, fmt.Errorf("invalid SERVER_MAX_HEADER_BYTES: %d", maxHeaderBytes)
	}

	return ServerTuningConfig{
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}, nil
}

// ReadRedisConfigFromEnv: Redis(Valkey) 연결 설정을 환경 변수에서 읽어옵니다.
// 여러 환경 변수 키 중 첫 번째로 값이 존재하는 것을 사용합니다.
func ReadRedisConfigFromEnv(
	hostKeys []string,
	portKeys []string,
	passwordKeys []string,
	defaultHost string,
	defaultPort int,
) (RedisConfig, error) {
	port, err := IntFromEnvFirstNonEmpty(portKeys, defaultPort)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("read redis port failed: %w", err)
	}

	return RedisConfig{
		Host:     StringFromEnvFirstNonEmpty(hostKeys, defaultHost),
		Port:     port,
		Password: StringFromEnvFirstNonEmpty(passwordKeys, ""),
		DB:       0,

		DialTimeout:  10 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		PoolSize:     64,
		MinIdleConns: 10,
	}, nil
}

// ReadLogConfigFromEnv: 로그 파일 출력 설정(디렉터리, 크기, 백업 수)을 환경 변수에서 읽어옵니다.
func ReadLogConfigFromEnv() (LogConfig, error) {
	level := strings.ToLower(StringFromEnv("LOG_LEVEL", "info"))
	dir := StringFromEnv("LOG_DIR", "")
	if strings.TrimSpace(dir) == "" {
		return LogConfig{Level: level}, nil
	}

	maxSizeMB, err := IntFromEnv("LOG_FILE_MAX_SIZE_MB", 1)
	if err != nil {
		return LogConfig{}, fmt.Errorf("read LOG_FILE_MAX_SIZE_MB failed: %w", err)
	}
	maxBackups, err := IntFromEnv("LOG_FILE_MAX_BACKUPS", 30)
	if err != nil {
		return LogConfig{}, fmt.Errorf("read LOG_FILE_MAX_BACKUPS failed: %w", err)
	}
	maxAgeDays, err := IntFromEnv("LOG_FILE_MAX_AGE_DAYS", 7)
	if err != nil {
		return LogConfig{}, fmt.Errorf("read LOG_FILE_MAX_AGE_DAYS failed: %w", err)
	}
	if maxSizeMB <= 0 || maxBackups <= 0 || maxAgeDays <= 0 {
		return LogConfig{}, fmt.Errorf(
			"invalid log file config: size_mb=%d backups=%d age_days=%d",
			maxSizeMB, maxBackups, maxAgeDays,
		)
	}

	compress, err := BoolFromEnv("LOG_FILE_COMPRESS", true)
	if err != nil {
		return LogConfig{}, fmt.Errorf("read LOG_FILE_COMPRESS failed: %w", err)
	}

	return LogConfig{
		Level:      level,
		Dir:        dir,
		MaxSizeMB:  maxSizeMB,
		MaxBackups: maxBackups,
		MaxAgeDays: maxAgeDays,
		Compress:   compress,
	}, nil
}

// ReadTelemetryConfigFromEnv: OpenTelemetry 추적 설정을 환경 변수에서 읽어옵니다.
func ReadTelemetryConfigFromEnv(defaultServiceName string) (TelemetryConfig, error) {
	enabled, err := BoolFromEnv("OTEL_ENABLED", false)
	if err != nil {
		return TelemetryConfig{}, fmt.Errorf("read OTEL_ENABLED failed: %w", err)
	}
	insecure, err := BoolFromEnv("OTEL_EXPORTER_OTLP_INSECURE", true)
	if err != nil {
		return TelemetryConfig{}, fmt.Errorf("read OTEL_EXPORTER_OTLP_INSECURE failed: %w", err)
	}
	sampleRate, err := Float64FromEnv("OTEL_SAMPLE_RATE", 1.0)
	if err != nil {
		return TelemetryConfig{}, fmt.Errorf("read OTEL_SAMPLE_RATE failed: %w", err)
	}
	if sampleRate < 0 || sampleRate > 1 {
		return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", sampleRate)
	}

	return TelemetryConfig{
		Enabled:        enabled,
		ServiceName:    StringFromEnv("OTEL_SERVICE_NAME", defaultServiceName),
		ServiceVersion: StringFromEnv("OTEL_SERVICE_VERSION", "dev"),
		Environment:    StringFromEnv("OTEL_ENVIRONMENT", "production"),
		OTLPEndpoint:   StringFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   insecure,
		SampleRate:     sampleRate,
	}, nil
}

// ValkeyMQConfigEnvOptions: ValkeyMQ 설정 읽기에 사용할 환경 변수 키 및 기본값 옵션입니다.
type ValkeyMQConfigEnvOptions struct {
	HostKeys     []string
	PortKeys     []string
	PasswordKeys []string

	TimeoutMillisKeys []string
	ConsumerGroupKeys []string
	ConsumerNameKeys  []string
	StreamKeyKeys     []string
	BatchSizeKeys     []string
	ConcurrencyKeys   []string
	StreamMaxLenKeys  []string

	DefaultHost          string
	DefaultPort          int
	DefaultTimeoutMillis int64

	DefaultConsumerGroup string
	DefaultConsumerName  string
	DefaultStreamKey     string
	DefaultBatchSize     int64
	DefaultConcurrency   int
	DefaultStreamMaxLen  int64
}

// ReadValkeyMQConfigFromEnv: Valkey Streams 기반 작업 큐 설정을 환경 변수에서 읽어옵니다.
// 0 이하의 튜닝 값은 기본값으로 대체합니다.
func ReadValkeyMQConfigFromEnv(opts ValkeyMQConfigEnvOptions) (ValkeyMQConfig, error) {
	port, err := IntFromEnvFirstNonEmpty(opts.PortKeys, opts.DefaultPort)
	if err != nil {
		return ValkeyMQConfig{}, fmt.Errorf("read valkey mq port failed: %w", err)
	}
	timeoutMillis, err := Int64FromEnvFirstNonEmpty(opts.TimeoutMillisKeys, opts.DefaultTimeoutMillis)
	if err != nil {
		return ValkeyMQConfig{}, fmt.Errorf("read valkey mq timeout failed: %w", err)
	}
	batchSize, err := Int64FromEnvFirstNonEmpty(opts.BatchSizeKeys, opts.DefaultBatchSize)
	if err != nil {
		return ValkeyMQConfig{}, fmt.Errorf("read valkey mq batch size failed: %w", err)
	}
	concurrency, err := IntFromEnvFirstNonEmpty(opts.ConcurrencyKeys, opts.DefaultConcurrency)
	if err != nil {
		return ValkeyMQConfig{}, fmt.Errorf("read valkey mq concurrency failed: %w", err)
	}
	streamMaxLen, err := Int64FromEnvFirstNonEmpty(opts.StreamMaxLenKeys, opts.DefaultStreamMaxLen)
	if err != nil {
		return ValkeyMQConfig{}, fmt.Errorf("read valkey mq stream max len failed: %w", err)
	}

	if timeoutMillis <= 0 {
		timeoutMillis = opts.DefaultTimeoutMillis
	}
	if batchSize <= 0 {
		batchSize = opts.DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = opts.DefaultConcurrency
	}
	if streamMaxLen <= 0 {
		streamMaxLen = opts.DefaultStreamMaxLen
	}

	timeout := time.Duration(timeoutMillis) * time.Millisecond

	return ValkeyMQConfig{
		Host:     StringFromEnvFirstNonEmpty(opts.HostKeys, opts.DefaultHost),
		Port:     port,
		Password: StringFromEnvFirstNonEmpty(opts.PasswordKeys, ""),

		Timeout:       timeout,
		ConsumerGroup: StringFromEnvFirstNonEmpty(opts.ConsumerGroupKeys, opts.DefaultConsumerGroup),
		ConsumerName:  StringFromEnvFirstNonEmpty(opts.ConsumerNameKeys, opts.DefaultConsumerName),
		StreamKey:     StringFromEnvFirstNonEmpty(opts.StreamKeyKeys, opts.DefaultStreamKey),
		BatchSize:     batchSize,
		BlockTimeout:  timeout,
		Concurrency:   concurrency,
		StreamMaxLen:  streamMaxLen,
	}, nil
}
