package dbutil

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
)

// RetryConfig: DB 연결 재시도 설정
type RetryConfig struct {
	MaxAttempts int           // 최대 시도 횟수 (기본: 5)
	BaseDelay   time.Duration // 초기 대기 시간 (기본: 2초)
	MaxDelay    time.Duration // 최대 대기 시간 (기본: 30초)
}

// DefaultRetryConfig: 기본 재시도 설정
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	return c
}

// NewBackOff: 설정을 바탕으로 컨텍스트에 묶인 지수 백오프 정책을 생성합니다.
func NewBackOff(ctx context.Context, cfg RetryConfig) backoff.BackOff {
	cfg = cfg.withDefaults()

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.BaseDelay
	expBackoff.MaxInterval = cfg.MaxDelay
	expBackoff.Multiplier = 2.0
	expBackoff.RandomizationFactor = 0.1
	expBackoff.MaxElapsedTime = 0 // 시도 횟수로만 제한

	return backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(cfg.MaxAttempts-1)), ctx)
}

// OpenFunc: DB 연결을 시도하는 함수 타입
type OpenFunc func(ctx context.Context) (*gorm.DB, *sql.DB, error)

// OpenWithRetry: exponential backoff로 DB 연결을 재시도합니다.
// 스키마 마이그레이션이 완료되기 전 앱이 시작되는 Race Condition 방어용.
func OpenWithRetry(
	ctx context.Context,
	openFn OpenFunc,
	cfg RetryConfig,
	logger *slog.Logger,
) (*gorm.DB, *sql.DB, error) {
	cfg = cfg.withDefaults()

	var (
		db       *gorm.DB
		sqlDB    *sql.DB
		attempts int
	)
	operation := func() error {
		attempts++
		var err error
		db, sqlDB, err = openFn(ctx)
		return err
	}
	notify := func(err error, delay time.Duration) {
		if logger == nil {
			return
		}
		logger.Warn("db_connect_retry",
			slog.Int("attempt", attempts),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
	}

	if err := backoff.RetryNotify(operation, NewBackOff(ctx, cfg), notify); err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("db connect cancelled: %w", ctx.Err())
		}
		return nil, nil, fmt.Errorf("db connect failed after %d attempts: %w", attempts, err)
	}

	if attempts > 1 && logger != nil {
		logger.Info("db_connect_success_after_retry", slog.Int("attempts", attempts))
	}
	return db, sqlDB, nil
}
