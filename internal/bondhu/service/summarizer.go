package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	bmessages "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/messages"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/llmrest"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/messageprovider"
)

// SummaryDraft 요약기 출력. 검증/정규화는 기억 기록 단계에서 한다.
type SummaryDraft struct {
	Summary   string            `json:"summary"`
	Topics    []string          `json:"topics"`
	Emotions  []string          `json:"emotions"`
	KeyPoints []string          `json:"key_points"`
	Entities  []model.EntityRef `json:"entities"`
}

// Summarizer 세션 메시지 구간을 요약한다.
type Summarizer interface {
	Summarize(ctx context.Context, messages []model.ChatMessage) (SummaryDraft, error)
}

// KeywordSummarizer 키워드 사전 기반 내장 요약기
type KeywordSummarizer struct {
	lexicon     *Lexicon
	msgProvider *messageprovider.Provider
}

// NewKeywordSummarizer 생성자.
func NewKeywordSummarizer(lexicon *Lexicon, msgProvider *messageprovider.Provider) *KeywordSummarizer {
	return &KeywordSummarizer{lexicon: lexicon, msgProvider: msgProvider}
}

// Summarize 토픽은 구체적 관심사 우선 최대 8개, 감정은 감지된 기분, 핵심은 마지막 사용자 메시지 3개.
func (k *KeywordSummarizer) Summarize(_ context.Context, messages []model.ChatMessage) (SummaryDraft, error) {
	var userTexts []string
	var emotions []string
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		texts = append(texts, m.Message)
		if m.SenderType != model.SenderUser {
			continue
		}
		userTexts = append(userTexts, strings.TrimSpace(m.Message))
		if m.MoodDetected != "" {
			emotions = append(emotions, string(m.MoodDetected))
		}
	}

	topics, entities := k.lexicon.ExtractTopics(texts, bconfig.SummaryMaxTopics)
	if len(topics) == 0 {
		topics = []string{k.msgProvider.Get(bmessages.SummaryGeneralTopic)}
	}

	draft := SummaryDraft{
		Topics:    topics,
		Emotions:  NormalizeTopics(emotions),
		Entities:  entities,
		KeyPoints: []string{},
	}

	if len(userTexts) == 0 {
		draft.Summary = k.msgProvider.Get(bmessages.SummaryNoConversation)
		return draft, nil
	}

	draft.Summary = k.msgProvider.Get(bmessages.SummaryStartedWith,
		messageprovider.P("count", len(userTexts)),
		messageprovider.P("first", truncateRunes(userTexts[0], bconfig.SummarySnippetLength)),
	) + k.msgProvider.Get(bmessages.SummaryEndedWith,
		messageprovider.P("last", truncateRunes(userTexts[len(userTexts)-1], bconfig.SummarySnippetLength)),
	)
	for _, text := range lastN(userTexts, bconfig.SummaryKeyPointCount) {
		draft.KeyPoints = append(draft.KeyPoints, truncateRunes(text, bconfig.SummarySnippetLength))
	}
	return draft, nil
}

// summaryTask 외부 요약기에 전달하는 작업 식별자
const summaryTask = "summarize_conversation"

var summaryDraftSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":    map[string]any{"type": "string"},
		"topics":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"emotions":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"key_points": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"entities": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"type": map[string]any{"type": "string"},
				},
				"required": []string{"name", "type"},
			},
		},
	},
	"required": []string{"summary", "topics", "emotions", "key_points"},
}

// RemoteSummarizer 외부 LLM 서버 요약기. 실패하면 fallback 으로 요약한다.
type RemoteSummarizer struct {
	client   *llmrest.Client
	fallback Summarizer
	logger   *slog.Logger
}

// NewRemoteSummarizer 생성자.
func NewRemoteSummarizer(client *llmrest.Client, fallback Summarizer, logger *slog.Logger) *RemoteSummarizer {
	return &RemoteSummarizer{client: client, fallback: fallback, logger: logger}
}

// Summarize 대화 이력을 구조화 응답으로 요약한다.
func (r *RemoteSummarizer) Summarize(ctx context.Context, messages []model.ChatMessage) (SummaryDraft, error) {
	var draft SummaryDraft
	err := r.client.Structured(ctx, llmrest.StructuredRequest{
		Prompt:     summaryTask,
		JSONSchema: summaryDraftSchema,
		History:    toHistory(messages),
	}, &draft)
	if err == nil && strings.TrimSpace(draft.Summary) != "" {
		return draft, nil
	}
	if err == nil {
		err = fmt.Errorf("empty summary")
	}
	if r.fallback == nil {
		return SummaryDraft{}, fmt.Errorf("remote summarize failed: %w", err)
	}
	r.logger.Warn("remote_summarize_fallback", "messages", len(messages), "err", err)
	return r.fallback.Summarize(ctx, messages)
}

func toHistory(messages []model.ChatMessage) []llmrest.HistoryEntry {
	history := make([]llmrest.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.SenderType == model.SenderAI {
			role = "assistant"
		}
		history = append(history, llmrest.HistoryEntry{Role: role, Content: m.Message})
	}
	return history
}
