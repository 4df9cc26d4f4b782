package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/assets"
	cerrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/lua"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/valkeyx"
)

// NewScriptRegistry Bondhu 가 사용하는 Lua 스크립트 레지스트리
func NewScriptRegistry() *lua.Registry {
	return lua.NewRegistry([]lua.Script{
		{Name: lua.ScriptRateLimitIncr, Source: assets.RateLimitIncrLua},
	})
}

// RateLimiter 사용자별 고정 윈도우 요청 제한. 카운터 증가와 만료 설정은 Lua 로 원자 처리한다.
type RateLimiter struct {
	client   valkey.Client
	registry *lua.Registry
	limit    int64
	window   time.Duration
}

// NewRateLimiter 생성자. limit 이 0 이하이면 제한하지 않는다.
func NewRateLimiter(client valkey.Client, registry *lua.Registry, limit int64, window time.Duration) *RateLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{client: client, registry: registry, limit: limit, window: window}
}

// Allow 요청 한 건을 센다. 한도를 넘으면 RateLimitedError.
func (r *RateLimiter) Allow(ctx context.Context, userID string) error {
	if r.limit <= 0 {
		return nil
	}

	resp, err := r.registry.Exec(ctx, r.client, lua.ScriptRateLimitIncr,
		[]string{rateLimitKey(userID)},
		[]string{strconv.FormatInt(int64(r.window.Seconds()), 10)},
	)
	if err != nil {
		return valkeyx.WrapRedisError("rate_limit_incr", err)
	}
	count, ttl, err := valkeyx.ParseLuaInt64Pair(resp)
	if err != nil {
		return valkeyx.WrapRedisError("rate_limit_incr", err)
	}

	if count > r.limit {
		return cerrors.RateLimitedError{
			UserID:     userID,
			Limit:      r.limit,
			RetryAfter: time.Duration(max(ttl, 1)) * time.Second,
		}
	}
	return nil
}
