package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	commonconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/config"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/telemetry"
)

// ConfigLoader: 설정을 로드하는 함수 타입
type ConfigLoader[C any] func() (*C, error)

// AppInitializer: 애플리케이션 초기화 함수 타입 (ServerApp과 정리 함수 반환)
type AppInitializer[C any] func(context.Context, *C, *slog.Logger) (*ServerApp, func(), error)

// Entrypoint: 서비스 시작에 필요한 설정 로더와 초기화 함수 묶음
type Entrypoint[C any] struct {
	LogFileName     string
	LoadConfig      ConfigLoader[C]
	LogConfig       func(*C) commonconfig.LogConfig
	TelemetryConfig func(*C) commonconfig.TelemetryConfig
	Initialize      AppInitializer[C]
}

const telemetryShutdownTimeout = 5 * time.Second

// RunEntrypoint: 서비스 애플리케이션의 공통 시작점.
// .env 로드, 설정 로드, 로거/추적 설정, 앱 초기화 및 실행을 담당합니다.
// 반환되는 로거는 호출자가 종료 로그를 남길 때 사용합니다.
func RunEntrypoint[C any](ctx context.Context, logger *slog.Logger, ep Entrypoint[C]) (*slog.Logger, error) {
	if err := commonconfig.LoadDotenvIfPresent(); err != nil {
		return logger, fmt.Errorf("load dotenv failed: %w", err)
	}

	cfg, err := ep.LoadConfig()
	if err != nil {
		return logger, fmt.Errorf("load config failed: %w", err)
	}

	var telemetryCfg commonconfig.TelemetryConfig
	if ep.TelemetryConfig != nil {
		telemetryCfg = ep.TelemetryConfig(cfg)
	}
	var logCfg commonconfig.LogConfig
	if ep.LogConfig != nil {
		logCfg = ep.LogConfig(cfg)
	}

	logger = NewLoggerWithConfig(logCfg, telemetryCfg.Enabled)
	slog.SetDefault(logger)
	if strings.TrimSpace(logCfg.Dir) != "" {
		fileLogger, logErr := EnableFileLogging(logCfg, ep.LogFileName, telemetryCfg.Enabled)
		if logErr != nil {
			return logger, fmt.Errorf("enable file logging failed: %w", logErr)
		}
		if fileLogger != nil {
			logger = fileLogger
		}
	}

	provider, err := telemetry.NewProvider(ctx, telemetryCfg)
	if err != nil {
		return logger, fmt.Errorf("init telemetry failed: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if shutdownErr := provider.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("telemetry_shutdown_failed", "err", shutdownErr)
		}
	}()
	if provider.IsEnabled() {
		logger.Info("telemetry_enabled",
			"endpoint", telemetryCfg.OTLPEndpoint,
			"sample_rate", telemetryCfg.SampleRate,
		)
	}

	serverApp, cleanup, err := ep.Initialize(ctx, cfg, logger)
	if err != nil {
		return logger, fmt.Errorf("initialize app failed: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := serverApp.Run(ctx); err != nil {
		return logger, fmt.Errorf("run app failed: %w", err)
	}
	return logger, nil
}
