package dbutil

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestOpenWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds_after_failures", func(t *testing.T) {
		calls := 0
		openFn := func(ctx context.Context) (*gorm.DB, *sql.DB, error) {
			calls++
			if calls < 3 {
				return nil, nil, errors.New("not ready")
			}
			db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
			if err != nil {
				return nil, nil, err
			}
			sqlDB, err := db.DB()
			return db, sqlDB, err
		}

		db, sqlDB, err := OpenWithRetry(context.Background(), openFn, cfg, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Cleanup(func() { _ = sqlDB.Close() })
		if db == nil || calls != 3 {
			t.Fatalf("expected 3 calls and a db, got calls=%d", calls)
		}
	})

	t.Run("gives_up", func(t *testing.T) {
		calls := 0
		openFn := func(ctx context.Context) (*gorm.DB, *sql.DB, error) {
			calls++
			return nil, nil, errors.New("down")
		}

		if _, _, err := OpenWithRetry(context.Background(), openFn, cfg, nil); err == nil {
			t.Fatal("expected error")
		}
		if calls != cfg.MaxAttempts {
			t.Errorf("expected %d calls, got %d", cfg.MaxAttempts, calls)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		openFn := func(ctx context.Context) (*gorm.DB, *sql.DB, error) {
			return nil, nil, errors.New("down")
		}
		if _, _, err := OpenWithRetry(ctx, openFn, cfg, nil); err == nil {
			t.Fatal("expected error")
		}
	})
}
