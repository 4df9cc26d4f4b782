package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	commonconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/config"
)

// ParseLevel: 문자열 로그 레벨을 slog.Level로 변환합니다. 알 수 없는 값은 Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newTintHandler(w io.Writer, level slog.Level, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		AddSource:  true,
		NoColor:    noColor,
	})
}

// NewLogger: 기본 slog 로거를 생성합니다. (stdout, tint 핸들러 사용)
func NewLogger() *slog.Logger {
	return slog.New(newTintHandler(os.Stdout, slog.LevelInfo, false))
}

// NewLoggerWithConfig: 설정된 레벨로 stdout 로거를 생성합니다.
// enableOTel이 true면 로그에 trace_id/span_id가 자동으로 추가됩니다.
func NewLoggerWithConfig(cfg commonconfig.LogConfig, enableOTel bool) *slog.Logger {
	handler := newTintHandler(os.Stdout, ParseLevel(cfg.Level), false)
	if enableOTel {
		handler = NewTraceHandler(handler)
	}
	return slog.New(handler)
}

// EnableFileLogging: 파일 로깅을 활성화하고, 파일과 stdout에 동시에 출력하는 로거를 반환합니다.
// LOG_DIR이 비어있으면 nil을 반환합니다.
func EnableFileLogging(cfg commonconfig.LogConfig, fileName string, enableOTel bool) (*slog.Logger, error) {
	logDir := strings.TrimSpace(cfg.Dir)
	if logDir == "" {
		return nil, nil
	}
	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf("invalid log config: size=%d backups=%d age_days=%d", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}

	serviceFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	// 통합 로그 파일 (combined.log), 여러 서비스가 공유하므로 더 큰 용량
	combinedFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "combined.log"),
		MaxSize:    cfg.MaxSizeMB * 3,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	handler := newTintHandler(io.MultiWriter(os.Stdout, serviceFile, combinedFile), ParseLevel(cfg.Level), true)
	if enableOTel {
		handler = NewTraceHandler(handler)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	logger.Info("file_logging_enabled",
		slog.String("path", serviceFile.Filename),
		slog.String("combined", combinedFile.Filename),
		slog.Bool("otel_correlation", enableOTel),
	)
	return logger, nil
}
