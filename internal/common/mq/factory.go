package mq

import (
	"log/slog"

	"github.com/valkey-io/valkey-go"

	commonconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/common/config"
)

// NewStreamConsumerFromConfig MQ 설정으로 작업 스트림 소비자를 만든다.
// 핸들러 실패는 ACK 하지 않아 PEL 에 남긴다.
func NewStreamConsumerFromConfig(client valkey.Client, logger *slog.Logger, cfg commonconfig.ValkeyMQConfig) *StreamConsumer {
	return NewStreamConsumer(client, logger, StreamConsumerConfig{
		Stream:      cfg.StreamKey,
		Group:       cfg.ConsumerGroup,
		Name:        cfg.ConsumerName,
		BatchSize:   cfg.BatchSize,
		Block:       cfg.BlockTimeout,
		Concurrency: cfg.Concurrency,
		AckOnError:  false,
	})
}

// NewStreamPublisherFromConfig MQ 설정으로 작업 스트림 발행자를 만든다.
func NewStreamPublisherFromConfig(client valkey.Client, logger *slog.Logger, cfg commonconfig.ValkeyMQConfig) *StreamPublisher {
	return NewStreamPublisher(client, logger, StreamPublisherConfig{
		Stream: cfg.StreamKey,
		MaxLen: cfg.StreamMaxLen,
	})
}
