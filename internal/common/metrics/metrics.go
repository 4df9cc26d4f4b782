// Package metrics: Prometheus 메트릭 레지스트리와 /metrics 노출 유틸리티
package metrics

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/httputil"
)

// Recorder: 서비스 카운터/히스토그램 묶음. nil 이면 모든 기록이 무시된다.
type Recorder struct {
	registry *prometheus.Registry

	messagesAppended     *prometheus.CounterVec
	pipelineFailures     *prometheus.CounterVec
	pipelineDuration     prometheus.Histogram
	achievementsUnlocked *prometheus.CounterVec
	summaries            *prometheus.CounterVec
	rateLimited          prometheus.Counter
}

// New: namespace 아래에 메트릭을 등록한 Recorder를 생성한다.
func New(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		messagesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Persisted chat turns by sender.",
		}, []string{"sender"}),
		pipelineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_failures_total",
			Help:      "Activity pipeline failures by stage.",
		}, []string{"stage"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Activity pipeline latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		achievementsUnlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked by type.",
		}, []string{"type"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summarization outcomes.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-user rate limiter.",
		}),
	}

	reg.MustRegister(
		r.messagesAppended,
		r.pipelineFailures,
		r.pipelineDuration,
		r.achievementsUnlocked,
		r.summaries,
		r.rateLimited,
	)
	return r
}

// Registry: 테스트/수집용 레지스트리
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// MessageAppended: 저장된 대화 턴 1건 기록
func (r *Recorder) MessageAppended(sender string) {
	if r == nil {
		return
	}
	r.messagesAppended.WithLabelValues(sender).Inc()
}

// PipelineFailed: 실패한 파이프라인 단계 기록
func (r *Recorder) PipelineFailed(stage string) {
	if r == nil {
		return
	}
	r.pipelineFailures.WithLabelValues(stage).Inc()
}

// ObservePipeline: 파이프라인 소요 시간 기록
func (r *Recorder) ObservePipeline(d time.Duration) {
	if r == nil {
		return
	}
	r.pipelineDuration.Observe(d.Seconds())
}

// AchievementsUnlocked: 새로 달성한 업적 수 기록
func (r *Recorder) AchievementsUnlocked(achievementType string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.achievementsUnlocked.WithLabelValues(achievementType).Add(float64(count))
}

// Summary: 요약 처리 결과 기록 (recorded|skipped|failed)
func (r *Recorder) Summary(outcome string) {
	if r == nil {
		return
	}
	r.summaries.WithLabelValues(outcome).Inc()
}

// RateLimited: 속도 제한 거부 1건 기록
func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

// Handler: 레지스트리를 노출하는 promhttp 핸들러
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// APIKeyAuth: /metrics 보호용 API 키 미들웨어입니다.
// - expected가 비어있으면 보호하지 않습니다(내부망 전제).
// - X-API-Key 또는 Authorization: Bearer <token> 헤더를 지원합니다.
func APIKeyAuth(expected string, next http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := httputil.ExtractAPIKey(r)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			_ = httputil.WriteErrorJSON(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
