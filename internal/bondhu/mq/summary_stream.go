// Package mq 는 요약 작업을 Valkey Streams 로 발행/소비하는 어댑터를 제공한다.
package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/service"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/mq"
)

// SummaryPublisher 요약 작업을 스트림에 발행하는 디스패처
type SummaryPublisher struct {
	publisher *mq.StreamPublisher
	logger    *slog.Logger
}

// NewSummaryPublisher 생성자.
func NewSummaryPublisher(publisher *mq.StreamPublisher, logger *slog.Logger) *SummaryPublisher {
	return &SummaryPublisher{publisher: publisher, logger: logger}
}

// Dispatch 작업을 발행한다. 처리는 소비자 쪽에서 한다.
func (p *SummaryPublisher) Dispatch(ctx context.Context, job model.SummaryJob) error {
	id, err := p.publisher.PublishJSON(ctx, job)
	if err != nil {
		return fmt.Errorf("publish summary job failed: %w", err)
	}
	p.logger.Debug("summary_job_published", "id", id, "user_id", job.UserID, "session_id", job.SessionID, "count", job.MessageCount)
	return nil
}

// SummaryConsumer 스트림의 요약 작업을 SummaryService 로 처리한다.
type SummaryConsumer struct {
	consumer *mq.StreamConsumer
	service  *service.SummaryService
	logger   *slog.Logger
}

// NewSummaryConsumer 생성자.
func NewSummaryConsumer(consumer *mq.StreamConsumer, summaries *service.SummaryService, logger *slog.Logger) *SummaryConsumer {
	return &SummaryConsumer{consumer: consumer, service: summaries, logger: logger}
}

// Run ctx 가 취소될 때까지 작업을 소비한다.
func (c *SummaryConsumer) Run(ctx context.Context) error {
	c.logger.Info("summary_consumer_started")
	if err := c.consumer.Run(ctx, c.Handle); err != nil {
		return fmt.Errorf("summary consumer stopped: %w", err)
	}
	c.logger.Info("summary_consumer_stopped")
	return nil
}

// Handle 메시지 하나를 처리한다.
// 디코딩/검증 실패는 다시 처리해도 성공할 수 없으므로 기록만 하고 ACK 한다.
// 그 외 실패는 에러를 반환해 PEL 에 남긴다.
func (c *SummaryConsumer) Handle(ctx context.Context, msg mq.XMessage) error {
	var job model.SummaryJob
	if err := mq.DecodePayload(msg, &job); err != nil {
		c.logger.WarnContext(ctx, "summary_job_decode_failed", "id", msg.ID, "err", err)
		return nil
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("bondhu.user_id", job.UserID),
		attribute.String("bondhu.session_id", job.SessionID),
		attribute.Int("bondhu.message_count", job.MessageCount),
	)

	outcome, err := c.service.ProcessJob(ctx, job)
	if err != nil {
		var invalid berrors.InvalidArgumentError
		if errors.As(err, &invalid) {
			c.logger.WarnContext(ctx, "summary_job_rejected", "id", msg.ID, "user_id", job.UserID, "err", err)
			return nil
		}
		return fmt.Errorf("process summary job failed: %w", err)
	}

	span.SetAttributes(attribute.Bool("bondhu.summary_recorded", outcome.Recorded))
	if !outcome.Recorded {
		c.logger.DebugContext(ctx, "summary_job_skipped", "id", msg.ID, "reason", outcome.Reason)
	}
	return nil
}
