package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	bmessages "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/messages"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/llmrest"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/messageprovider"
)

// ReplyRequest 응답 생성 입력
type ReplyRequest struct {
	UserID    string
	SessionID string
	Message   string
	Context   MemoryContext
	History   []model.ChatMessage // 시간순
}

// Responder 사용자 메시지에 대한 응답을 만든다.
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// FallbackResponder 외부 응답기가 없을 때 쓰는 문구 기반 응답기
type FallbackResponder struct {
	msgProvider *messageprovider.Provider
}

// NewFallbackResponder 생성자.
func NewFallbackResponder(msgProvider *messageprovider.Provider) *FallbackResponder {
	return &FallbackResponder{msgProvider: msgProvider}
}

// Reply 과거 대화를 언급하면 기억한 토픽으로, 아니면 일반 문구로 응답한다. 같은 입력에는 같은 문구를 고른다.
func (f *FallbackResponder) Reply(_ context.Context, req ReplyRequest) (string, error) {
	if req.Context.Referenced {
		if topic := firstTopic(req.Context.Memories); topic != "" {
			if reply := pick(f.msgProvider.Strings(bmessages.ReplyRemembered, messageprovider.P("topic", topic)), req.Message); reply != "" {
				return reply, nil
			}
		}
	}
	reply := pick(f.msgProvider.Strings(bmessages.ReplyFallback), req.Message)
	if reply == "" {
		return "", fmt.Errorf("no fallback replies configured")
	}
	return reply, nil
}

func firstTopic(memories []model.ConversationMemory) string {
	for _, m := range memories {
		for _, t := range m.Topics {
			if t = strings.TrimSpace(t); t != "" {
				return t
			}
		}
	}
	return ""
}

func pick(options []string, seed string) string {
	if len(options) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return options[int(h.Sum32()%uint32(len(options)))]
}

// RemoteResponder 외부 LLM 서버 응답기. 실패하면 fallback 으로 응답한다.
type RemoteResponder struct {
	client   *llmrest.Client
	fallback Responder
	logger   *slog.Logger
}

// NewRemoteResponder 생성자.
func NewRemoteResponder(client *llmrest.Client, fallback Responder, logger *slog.Logger) *RemoteResponder {
	return &RemoteResponder{client: client, fallback: fallback, logger: logger}
}

// Reply 기억 컨텍스트를 시스템 프롬프트로, 최근 대화를 이력으로 전달한다.
func (r *RemoteResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	resp, err := r.client.Chat(ctx, llmrest.ChatRequest{
		Prompt:       req.Message,
		SystemPrompt: req.Context.Text,
		History:      toHistory(req.History),
	})
	if err == nil && strings.TrimSpace(resp.Response) != "" {
		return strings.TrimSpace(resp.Response), nil
	}
	if err == nil {
		err = fmt.Errorf("empty reply")
	}
	if r.fallback == nil {
		return "", fmt.Errorf("remote reply failed: %w", err)
	}
	r.logger.Warn("remote_reply_fallback", "user_id", req.UserID, "err", err)
	return r.fallback.Reply(ctx, req)
}
