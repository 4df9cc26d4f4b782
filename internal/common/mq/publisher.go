package mq

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/telemetry"
)

// PayloadField: JSON 페이로드를 담는 스트림 필드 이름
const PayloadField = "payload"

// StreamPublisherConfig: 발행 대상 스트림 키와 최대 길이
type StreamPublisherConfig struct {
	Stream string
	MaxLen int64
}

// StreamPublisher: 스트림으로 메시지를 발행(XADD)한다.
type StreamPublisher struct {
	client valkey.Client
	logger *slog.Logger
	cfg    StreamPublisherConfig
}

// NewStreamPublisher: 새로운 StreamPublisher 인스턴스를 생성한다.
func NewStreamPublisher(client valkey.Client, logger *slog.Logger, cfg StreamPublisherConfig) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// PublishJSON: payload를 JSON으로 인코딩해 발행한다. 현재 trace context도 메시지 필드로 함께 전파된다.
func (p *StreamPublisher) PublishJSON(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal stream payload failed: %w", err)
	}

	carrier := telemetry.MapCarrier{PayloadField: string(body)}
	telemetry.InjectContext(ctx, carrier)
	return p.Publish(ctx, carrier)
}

// Publish: 필드-값 맵을 XADD로 발행한다. MaxLen이 설정되면 MAXLEN ~ 로 스트림을 자른다.
func (p *StreamPublisher) Publish(ctx context.Context, values map[string]string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("no values to publish")
	}

	args := make([]string, 0, 4+len(values)*2)
	if p.cfg.MaxLen > 0 {
		args = append(args, "MAXLEN", "~", strconv.FormatInt(p.cfg.MaxLen, 10))
	}
	args = append(args, "*")
	for k, v := range values {
		args = append(args, k, v)
	}

	cmd := p.client.B().Arbitrary("XADD").Keys(p.cfg.Stream).Args(args...).Build()
	id, err := p.client.Do(ctx, cmd).ToString()
	if err != nil {
		return "", fmt.Errorf("xadd failed stream=%s: %w", p.cfg.Stream, err)
	}

	p.logger.Debug("message_published", "stream", p.cfg.Stream, "id", id)
	return id, nil
}

// DecodePayload: 스트림 메시지의 JSON 페이로드를 out으로 디코딩한다.
func DecodePayload(msg XMessage, out any) error {
	raw, ok := msg.Values[PayloadField]
	if !ok {
		return fmt.Errorf("stream message %s has no %s field", msg.ID, PayloadField)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode stream payload failed id=%s: %w", msg.ID, err)
	}
	return nil
}
