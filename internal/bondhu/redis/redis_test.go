package redis

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	cerrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/testhelper"
)

func TestKeys(t *testing.T) {
	if got := historyKey("u1", "", 50, 0); got != "bondhu:chat:history:u1:*all:50:0" {
		t.Errorf("unexpected history key: %s", got)
	}
	if got := historyKey("u1", "s1", 10, 20); got != "bondhu:chat:history:u1:s1:10:20" {
		t.Errorf("unexpected history key: %s", got)
	}
	if searchKey("u1", " Anime ", 10) != searchKey("u1", "anime", 10) {
		t.Error("search key must ignore case and surrounding spaces")
	}
	if got := userCachePatterns("a*b")[0]; got != `bondhu:chat:history:a\*b:*` {
		t.Errorf("unexpected scan pattern: %s", got)
	}
	if got := rateLimitKey("u1"); got != "bondhu:ratelimit:u1" {
		t.Errorf("unexpected rate limit key: %s", got)
	}
}

func TestChatCache_RoundTripAndInvalidate(t *testing.T) {
	mr := testhelper.NewMiniredis(t)
	client := testhelper.NewValkeyClientFor(t, mr)
	cache := NewChatCache(client, time.Minute, time.Minute, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if _, ok, err := cache.GetHistory(ctx, "u1", "s1", 10, 0); err != nil || ok {
		t.Fatalf("expected miss: ok=%v err=%v", ok, err)
	}

	msgs := []model.ChatMessage{{ID: 2, UserID: "u1", SessionID: "s1", SenderType: model.SenderAI, Message: "hi", Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}}
	if err := cache.SetHistory(ctx, "u1", "s1", 10, 0, msgs); err != nil {
		t.Fatalf("set history failed: %v", err)
	}
	if err := cache.SetSearch(ctx, "u1", "hi", 10, nil); err != nil {
		t.Fatalf("set search failed: %v", err)
	}
	if err := cache.SetHistory(ctx, "u10", "", 10, 0, msgs); err != nil {
		t.Fatalf("set other user failed: %v", err)
	}

	got, ok, err := cache.GetHistory(ctx, "u1", "s1", 10, 0)
	if err != nil || !ok || len(got) != 1 || got[0].Message != "hi" || !got[0].Timestamp.Equal(msgs[0].Timestamp) {
		t.Fatalf("unexpected cached history: %+v ok=%v err=%v", got, ok, err)
	}
	empty, ok, err := cache.GetSearch(ctx, "u1", "HI", 10)
	if err != nil || !ok || len(empty) != 0 {
		t.Fatalf("expected cached empty search: %+v ok=%v err=%v", empty, ok, err)
	}
	if ttl := mr.TTL(historyKey("u1", "s1", 10, 0)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl: %s", ttl)
	}

	if err := cache.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, ok, _ := cache.GetHistory(ctx, "u1", "s1", 10, 0); ok {
		t.Fatal("history must be invalidated")
	}
	if _, ok, _ := cache.GetSearch(ctx, "u1", "hi", 10); ok {
		t.Fatal("search must be invalidated")
	}
	if _, ok, _ := cache.GetHistory(ctx, "u10", "", 10, 0); !ok {
		t.Fatal("other user's cache must survive")
	}
}

func TestChatCache_CorruptValueIsMiss(t *testing.T) {
	mr := testhelper.NewMiniredis(t)
	client := testhelper.NewValkeyClientFor(t, mr)
	cache := NewChatCache(client, time.Minute, time.Minute, slog.New(slog.DiscardHandler))

	if err := mr.Set(historyKey("u1", "s1", 10, 0), "{broken"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, ok, err := cache.GetHistory(context.Background(), "u1", "s1", 10, 0); ok || err != nil {
		t.Fatalf("expected miss without error: ok=%v err=%v", ok, err)
	}
}

func TestChatCache_DisabledTTL(t *testing.T) {
	client := testhelper.NewMiniredisClient(t)
	cache := NewChatCache(client, 0, 0, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	if err := cache.SetHistory(ctx, "u1", "s1", 10, 0, []model.ChatMessage{{Message: "x"}}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok, _ := cache.GetHistory(ctx, "u1", "s1", 10, 0); ok {
		t.Fatal("disabled cache must always miss")
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := testhelper.NewMiniredis(t)
	client := testhelper.NewValkeyClientFor(t, mr)
	limiter := NewRateLimiter(client, NewScriptRegistry(), 2, time.Minute)
	ctx := context.Background()

	for i := range 2 {
		if err := limiter.Allow(ctx, "u1"); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}

	err := limiter.Allow(ctx, "u1")
	var limited cerrors.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if limited.Limit != 2 || limited.RetryAfter <= 0 || limited.RetryAfter > time.Minute {
		t.Fatalf("unexpected limit error: %+v", limited)
	}
	if err := limiter.Allow(ctx, "u2"); err != nil {
		t.Fatalf("other user must not be limited: %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := limiter.Allow(ctx, "u1"); err != nil {
		t.Fatalf("window must reset: %v", err)
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	limiter := NewRateLimiter(nil, nil, 0, time.Minute)
	for range 5 {
		if err := limiter.Allow(context.Background(), "u1"); err != nil {
			t.Fatalf("unlimited limiter must not fail: %v", err)
		}
	}
}
