package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/telemetry"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/valkeyx"
)

const consumerTracerName = "bondhu-go/valkey-consumer"

// StreamConsumerConfig: 스트림 소비자 설정
type StreamConsumerConfig struct {
	Stream string
	Group  string
	Name   string

	BatchSize   int64
	Block       time.Duration
	Concurrency int

	// AckOnError: 핸들러 실패 시에도 ACK 할지 여부. false면 PEL에 남아 재처리 대상이 된다.
	AckOnError bool

	AckMaxRetries  int
	AckRetryDelay  time.Duration
	GroupStartFrom string

	// 읽기 실패 시 지수 백오프 설정
	BackoffInitial time.Duration // 기본: 1초
	BackoffMax     time.Duration // 기본: 30초
}

// XMessage: 스트림에서 읽어온 메시지
type XMessage struct {
	ID     string
	Values map[string]string
}

// Handler: 스트림 메시지 처리 함수
type Handler func(ctx context.Context, msg XMessage) error

// StreamConsumer: Consumer Group으로 스트림 메시지를 읽어 동시 처리하는 소비자
type StreamConsumer struct {
	client valkey.Client
	logger *slog.Logger
	cfg    StreamConsumerConfig
}

// NewStreamConsumer: 새로운 StreamConsumer 인스턴스를 생성합니다.
func NewStreamConsumer(client valkey.Client, logger *slog.Logger, cfg StreamConsumerConfig) *StreamConsumer {
	return &StreamConsumer{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Run: ctx가 취소될 때까지 메시지 소비 루프를 실행합니다. 진행 중인 핸들러가 끝날 때까지 기다린 뒤 반환합니다.
func (c *StreamConsumer) Run(ctx context.Context, handler Handler) error {
	cfg, err := c.normalizedConfig()
	if err != nil {
		return err
	}
	if err := c.ensureGroup(ctx, cfg); err != nil {
		return err
	}

	sem := semaphore.NewWeighted(int64(cfg.Concurrency))
	var wg sync.WaitGroup
	defer wg.Wait()

	retry := newReadBackOff(cfg)

	for ctx.Err() == nil {
		messages, err := c.readBatch(ctx, cfg)
		if err != nil {
			if valkeyx.IsNil(err) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
				retry.Reset()
				continue
			}
			if ctx.Err() != nil {
				return nil
			}

			if isNoGroupOrNoStreamErr(err) {
				c.logger.Info("consumer_group_missing_recreating", "stream", cfg.Stream, "group", cfg.Group)
				recreateErr := c.ensureGroup(ctx, cfg)
				if recreateErr == nil {
					retry.Reset()
					continue
				}
				c.logger.Warn("consumer_group_recreate_failed", "err", recreateErr, "stream", cfg.Stream)
			}

			delay := retry.NextBackOff()
			c.logger.Warn("xreadgroup_failed", "err", err, "stream", cfg.Stream, "group", cfg.Group, "backoff", delay)
			if !sleepWithContext(ctx, delay) {
				return nil
			}
			continue
		}
		retry.Reset()

		for _, msg := range messages {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			wg.Add(1)
			go func(m XMessage) {
				defer wg.Done()
				defer sem.Release(1)
				c.handleMessage(ctx, cfg, m, handler)
			}(msg)
		}
	}
	return nil
}

func newReadBackOff(cfg StreamConsumerConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BackoffInitial
	b.MaxInterval = cfg.BackoffMax
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0 // 소비 루프는 포기하지 않음
	b.Reset()
	return b
}

func (c *StreamConsumer) readBatch(ctx context.Context, cfg StreamConsumerConfig) ([]XMessage, error) {
	cmd := c.client.B().Xreadgroup().
		Group(cfg.Group, cfg.Name).
		Count(cfg.BatchSize).
		Block(cfg.Block.Milliseconds()).
		Streams().Key(cfg.Stream).Id(">").
		Build()

	result, err := c.client.Do(ctx, cmd).AsXRead()
	if err != nil {
		return nil, fmt.Errorf("xreadgroup failed: %w", err)
	}

	entries := result[cfg.Stream]
	messages := make([]XMessage, 0, len(entries))
	for _, entry := range entries {
		messages = append(messages, XMessage{ID: entry.ID, Values: entry.FieldValues})
	}
	return messages, nil
}

func (c *StreamConsumer) handleMessage(ctx context.Context, cfg StreamConsumerConfig, msg XMessage, handler Handler) {
	// 발행 측에서 주입한 trace context를 이어받는다
	parentCtx := telemetry.ExtractContext(ctx, telemetry.MapCarrier(msg.Values))

	spanCtx, span := otel.Tracer(consumerTracerName).Start(parentCtx, "Valkey.ProcessMessage",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "valkey"),
			attribute.String("messaging.destination", cfg.Stream),
			attribute.String("messaging.message_id", msg.ID),
			attribute.String("messaging.consumer_group", cfg.Group),
		),
	)
	defer span.End()

	if handleErr := handler(spanCtx, msg); handleErr != nil {
		span.RecordError(handleErr)
		span.SetStatus(codes.Error, handleErr.Error())
		c.logger.ErrorContext(spanCtx, "message_handler_failed", "err", handleErr, "stream", cfg.Stream, "id", msg.ID)
		if !cfg.AckOnError {
			return
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if errAck := c.ackWithRetry(spanCtx, cfg, msg.ID); errAck != nil {
		c.logger.WarnContext(spanCtx, "xack_failed", "err", errAck, "stream", cfg.Stream, "id", msg.ID)
	}
}

func (c *StreamConsumer) normalizedConfig() (StreamConsumerConfig, error) {
	cfg := c.cfg
	cfg.Stream = strings.TrimSpace(cfg.Stream)
	cfg.Group = strings.TrimSpace(cfg.Group)
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Stream == "" || cfg.Group == "" || cfg.Name == "" {
		return StreamConsumerConfig{}, errors.New("stream/group/name must be set")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.AckMaxRetries <= 0 {
		cfg.AckMaxRetries = 1
	}
	if cfg.AckRetryDelay <= 0 {
		cfg.AckRetryDelay = 100 * time.Millisecond
	}
	if strings.TrimSpace(cfg.GroupStartFrom) == "" {
		cfg.GroupStartFrom = "$"
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	return cfg, nil
}

func (c *StreamConsumer) ensureGroup(ctx context.Context, cfg StreamConsumerConfig) error {
	cmd := c.client.B().XgroupCreate().Key(cfg.Stream).Group(cfg.Group).Id(cfg.GroupStartFrom).Mkstream().Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil && !valkeyx.IsBusyGroup(err) {
		return fmt.Errorf("xgroup create failed stream=%s group=%s: %w", cfg.Stream, cfg.Group, err)
	}
	return nil
}

func (c *StreamConsumer) ackWithRetry(ctx context.Context, cfg StreamConsumerConfig, id string) error {
	var lastErr error
	for attempt := 0; attempt < cfg.AckMaxRetries; attempt++ {
		cmd := c.client.B().Xack().Key(cfg.Stream).Group(cfg.Group).Id(id).Build()
		err := c.client.Do(ctx, cmd).Error()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < cfg.AckMaxRetries-1 && !sleepWithContext(ctx, cfg.AckRetryDelay) {
			return nil
		}
	}
	return lastErr
}

func isNoGroupOrNoStreamErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NOGROUP") ||
		strings.Contains(strings.ToLower(msg), "no such key") ||
		strings.Contains(msg, "requires the key to exist")
}

// sleepWithContext: 대기 완료 시 true, context 취소 시 false
func sleepWithContext(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
