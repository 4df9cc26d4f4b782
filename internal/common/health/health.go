// Package health: 서비스 상태 정보
package health

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"
)

var (
	startTime time.Time
	version   = "dev"
	initOnce  sync.Once
)

// Init: 서비스 시작 시 호출 (버전 정보 설정)
func Init(v string) {
	initOnce.Do(func() {
		startTime = time.Now()
		if v != "" {
			version = v
		}
	})
}

// CheckFunc: 의존 컴포넌트(DB, Valkey 등) 상태 점검 함수
type CheckFunc func(ctx context.Context) error

// Response: /health 엔드포인트 표준 응답
type Response struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	Components map[string]string `json:"components,omitempty"`
}

// Get: 현재 상태 반환
func Get() Response {
	return Response{
		Status:     "ok",
		Version:    version,
		Uptime:     formatDuration(time.Since(startTime)),
		Goroutines: runtime.NumGoroutine(),
	}
}

// Check: 등록된 컴포넌트를 점검해 상태를 반환합니다. 하나라도 실패하면 status는 degraded.
func Check(ctx context.Context, checks map[string]CheckFunc) Response {
	resp := Get()
	if len(checks) == 0 {
		return resp
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp.Components = make(map[string]string, len(checks))
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			resp.Components[name] = "down: " + err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Components[name] = "up"
	}
	return resp
}

// formatDuration: Duration을 사람이 읽기 쉬운 형식으로 변환
func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
