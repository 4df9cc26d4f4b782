package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/repository"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/metrics"
)

// SummaryDispatcher 요약 작업을 처리기로 넘긴다 (로컬 워커 또는 스트림).
type SummaryDispatcher interface {
	Dispatch(ctx context.Context, job model.SummaryJob) error
}

// SummaryOutcome 요약 작업 처리 결과
type SummaryOutcome struct {
	Memory   model.ConversationMemory
	Recorded bool
	Reason   string // 기록하지 않은 이유
}

// 요약 생략 사유
const (
	SummarySkipNothingNew = "nothing_new"
	SummarySkipClaimed    = "already_claimed"
)

// IsSummaryDue 세션 사용자 메시지 수가 트리거 간격의 양의 배수인지 여부
func IsSummaryDue(userMessageCount, interval int) bool {
	if interval <= 0 {
		interval = bconfig.SummaryTriggerInterval
	}
	return userMessageCount > 0 && userMessageCount%interval == 0
}

// SelectSummaryWindow 워터마크 이후 (previous, count] 번째 사용자 메시지와 그 응답을 고른다.
func SelectSummaryWindow(messages []model.ChatMessage, previous, count int) []model.ChatMessage {
	window := make([]model.ChatMessage, 0, len(messages))
	userIndex := 0
	for _, m := range messages {
		if m.SenderType == model.SenderUser {
			userIndex++
		}
		if userIndex > previous && userIndex <= count && userIndex > 0 {
			window = append(window, m)
		}
	}
	return window
}

// SummaryService 세션 요약 처리. 워터마크 선점으로 같은 구간을 한 번만 기록한다.
type SummaryService struct {
	repo       *repository.Repository
	memories   *MemoryService
	summarizer Summarizer
	cfg        bconfig.SummaryConfig
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewSummaryService 생성자.
func NewSummaryService(
	repo *repository.Repository,
	memories *MemoryService,
	summarizer Summarizer,
	cfg bconfig.SummaryConfig,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) *SummaryService {
	if cfg.Interval <= 0 {
		cfg.Interval = bconfig.SummaryTriggerInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &SummaryService{
		repo:       repo,
		memories:   memories,
		summarizer: summarizer,
		cfg:        cfg,
		metrics:    recorder,
		logger:     logger,
	}
}

// Interval 트리거 간격
func (s *SummaryService) Interval() int { return s.cfg.Interval }

// ProcessJob 요약 작업 처리.
// Force 작업(세션 종료)은 현재 사용자 메시지 수까지 남은 구간을 요약한다.
func (s *SummaryService) ProcessJob(ctx context.Context, job model.SummaryJob) (SummaryOutcome, error) {
	job.UserID = strings.TrimSpace(job.UserID)
	job.SessionID = strings.TrimSpace(job.SessionID)
	if job.UserID == "" {
		return SummaryOutcome{}, berrors.Invalid("user_id", "required")
	}
	if job.SessionID == "" {
		return SummaryOutcome{}, berrors.Invalid("session_id", "required")
	}

	count := job.MessageCount
	if job.Force {
		n, err := s.repo.CountSessionMessages(ctx, job.UserID, job.SessionID, model.SenderUser)
		if err != nil {
			return SummaryOutcome{}, fmt.Errorf("count session messages failed: %w", err)
		}
		count = int(n)
		if count == 0 {
			return s.skip(job, SummarySkipNothingNew), nil
		}
	} else if !IsSummaryDue(count, s.cfg.Interval) {
		return SummaryOutcome{}, berrors.Invalid("message_count", fmt.Sprintf("%d is not a multiple of %d", count, s.cfg.Interval))
	}

	previous, claimed, err := s.repo.ClaimSummary(ctx, job.UserID, job.SessionID, count)
	if err != nil {
		return SummaryOutcome{}, fmt.Errorf("claim summary failed: %w", err)
	}
	if !claimed {
		reason := SummarySkipClaimed
		if job.Force {
			reason = SummarySkipNothingNew
		}
		return s.skip(job, reason), nil
	}

	mem, err := s.summarizeAndRecord(ctx, job, previous, count)
	if err != nil {
		if errors.Is(err, berrors.ErrSummaryAlreadyClaimed) {
			return s.skip(job, SummarySkipClaimed), nil
		}
		if releaseErr := s.repo.ReleaseSummary(ctx, job.UserID, job.SessionID, count, previous); releaseErr != nil {
			s.logger.Error("summary_release_failed", "user_id", job.UserID, "session_id", job.SessionID, "err", releaseErr)
		}
		s.metrics.Summary("failed")
		return SummaryOutcome{}, err
	}
	return SummaryOutcome{Memory: mem, Recorded: true}, nil
}

func (s *SummaryService) summarizeAndRecord(ctx context.Context, job model.SummaryJob, previous, count int) (model.ConversationMemory, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	messages, err := s.repo.ListSessionMessages(ctx, job.UserID, job.SessionID)
	if err != nil {
		return model.ConversationMemory{}, fmt.Errorf("load session messages failed: %w", err)
	}
	window := SelectSummaryWindow(messages, previous, count)
	if len(window) == 0 {
		return model.ConversationMemory{}, berrors.Invalid("session_id", "no messages in summary window")
	}

	var draft SummaryDraft
	op := func() error {
		d, err := s.summarizer.Summarize(ctx, window)
		if err != nil {
			return err
		}
		draft = d
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("summary_generate_retry", "user_id", job.UserID, "session_id", job.SessionID, "wait", wait, "err", err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return model.ConversationMemory{}, fmt.Errorf("summarize session failed: %w", err)
	}

	ids := make([]uint64, len(window))
	for i, m := range window {
		ids[i] = m.ID
	}

	return s.memories.RecordConversationMemory(ctx, model.MemoryInput{
		UserID:       job.UserID,
		SessionID:    job.SessionID,
		Summary:      draft.Summary,
		Topics:       draft.Topics,
		Emotions:     draft.Emotions,
		KeyPoints:    draft.KeyPoints,
		Entities:     draft.Entities,
		MessageIDs:   ids,
		MessageCount: count,
		StartTime:    window[0].Timestamp,
		EndTime:      window[len(window)-1].Timestamp,
	})
}

func (s *SummaryService) skip(job model.SummaryJob, reason string) SummaryOutcome {
	s.metrics.Summary("skipped")
	s.logger.Debug("summary_skipped", "user_id", job.UserID, "session_id", job.SessionID, "reason", reason)
	return SummaryOutcome{Reason: reason}
}

// 로컬 워커 기본값
const (
	defaultSummaryQueueSize   = 100
	defaultSummaryWorkerCount = 2
	summaryJobTimeout         = 60 * time.Second
)

// SummaryWorker 요약 작업을 백그라운드 워커로 처리하는 로컬 디스패처.
type SummaryWorker struct {
	service *SummaryService
	logger  *slog.Logger

	queue    chan model.SummaryJob
	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.RWMutex // queue close 와 send 경합 방지
	closed   bool
}

// NewSummaryWorker 생성자. 워커 고루틴을 바로 시작한다.
func NewSummaryWorker(service *SummaryService, cfg bconfig.SummaryConfig, logger *slog.Logger) *SummaryWorker {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultSummaryQueueSize
	}
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = defaultSummaryWorkerCount
	}

	w := &SummaryWorker{
		service: service,
		logger:  logger,
		queue:   make(chan model.SummaryJob, queueSize),
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	logger.Info("summary_worker_started", "workers", workers, "queue_size", queueSize)
	return w
}

// Dispatch 작업을 큐에 넣는다. 큐가 가득 차면 호출자 고루틴에서 바로 처리한다.
func (w *SummaryWorker) Dispatch(ctx context.Context, job model.SummaryJob) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return fmt.Errorf("summary worker stopped")
	}
	select {
	case w.queue <- job:
		w.mu.RUnlock()
		return nil
	default:
	}
	w.mu.RUnlock()

	w.logger.Warn("summary_queue_full_sync_fallback", "user_id", job.UserID, "session_id", job.SessionID)
	_, err := w.service.ProcessJob(ctx, job)
	return err
}

// Shutdown 대기 중인 작업을 마저 처리하고 종료한다.
func (w *SummaryWorker) Shutdown() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
		w.wg.Wait()
		w.logger.Info("summary_worker_shutdown_complete")
	})
}

func (w *SummaryWorker) worker(id int) {
	defer w.wg.Done()

	for job := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), summaryJobTimeout)
		if _, err := w.service.ProcessJob(ctx, job); err != nil {
			w.logger.Warn("summary_job_failed", "user_id", job.UserID, "session_id", job.SessionID, "err", err)
		}
		cancel()
	}

	w.logger.Debug("summary_worker_stopped", "worker_id", id)
}
