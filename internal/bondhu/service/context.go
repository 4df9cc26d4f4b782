package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	bmessages "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/messages"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/messageprovider"
)

const contextFactLimit = 10

// MemoryContext 응답 생성에 넘기는 기억 컨텍스트
type MemoryContext struct {
	Text       string
	Memories   []model.ConversationMemory
	Facts      []model.UserMemory
	Referenced bool // 과거 대화를 가리키는 표현이 있었는지
}

// HasPersonality 컨텍스트에 담긴 기억/사실이 있는지 여부
func (c MemoryContext) HasPersonality() bool {
	return len(c.Memories) > 0 || len(c.Facts) > 0
}

// ContextBuilder 최근 기억과 중요한 사실로 LLM 컨텍스트 문자열을 만든다.
type ContextBuilder struct {
	memories    *MemoryService
	facts       *UserMemoryService
	lexicon     *Lexicon
	msgProvider *messageprovider.Provider
	logger      *slog.Logger
	now         func() time.Time
}

// NewContextBuilder 생성자.
func NewContextBuilder(
	memories *MemoryService,
	facts *UserMemoryService,
	lexicon *Lexicon,
	msgProvider *messageprovider.Provider,
	logger *slog.Logger,
) *ContextBuilder {
	return &ContextBuilder{
		memories:    memories,
		facts:       facts,
		lexicon:     lexicon,
		msgProvider: msgProvider,
		logger:      logger,
		now:         time.Now,
	}
}

// BuildContext 현재 메시지 기준 기억 컨텍스트 생성.
// 과거 대화를 가리키는 표현이 있으면 조회 기간을 넓히고 메시지 토픽과 일치하는 기억을 앞에 둔다.
func (b *ContextBuilder) BuildContext(ctx context.Context, userID string, currentMessage string) (MemoryContext, error) {
	out := MemoryContext{Referenced: b.lexicon.HasReference(currentMessage)}

	facts, err := b.facts.GetImportantMemories(ctx, userID, contextFactLimit)
	if err != nil {
		return out, fmt.Errorf("load important facts failed: %w", err)
	}
	out.Facts = facts

	days := bconfig.DefaultRecentDays
	if out.Referenced {
		days = bconfig.ReferenceLookbackDays
	}
	recent, err := b.memories.GetRecentSummaries(ctx, userID, days, bconfig.ContextMemoryCount)
	if err != nil {
		return out, fmt.Errorf("load recent memories failed: %w", err)
	}

	var memories []model.ConversationMemory
	if out.Referenced {
		topics, _ := b.lexicon.ExtractTopics([]string{currentMessage}, 1)
		if len(topics) > 0 {
			matched, err := b.memories.SearchByTopic(ctx, userID, topics[0], bconfig.ContextMemoryCount)
			if err != nil {
				b.logger.Warn("context_topic_lookup_failed", "user_id", userID, "topic", topics[0], "err", err)
			}
			memories = append(memories, matched...)
		}
	}
	for _, m := range recent {
		if !slices.ContainsFunc(memories, func(x model.ConversationMemory) bool { return x.ID == m.ID }) {
			memories = append(memories, m)
		}
	}
	if len(memories) > bconfig.ContextMemoryCount {
		memories = memories[:bconfig.ContextMemoryCount]
	}
	out.Memories = memories

	out.Text = b.format(out)
	return out, nil
}

func (b *ContextBuilder) format(c MemoryContext) string {
	if !c.HasPersonality() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(b.msgProvider.Get(bmessages.ContextHeader))
	sb.WriteString("\n")

	if len(c.Facts) > 0 {
		sb.WriteString("\n")
		sb.WriteString(b.msgProvider.Get(bmessages.ContextFactsHeader))
		sb.WriteString("\n")
		for _, f := range c.Facts {
			sb.WriteString(b.msgProvider.Get(bmessages.ContextFactLine,
				messageprovider.P("key", f.Key),
				messageprovider.P("value", f.Value),
			))
			sb.WriteString("\n")
		}
	}

	if len(c.Memories) > 0 {
		header := bmessages.ContextMemoriesHeader
		if c.Referenced {
			header = bmessages.ContextReferenceHeader
		}
		sb.WriteString("\n")
		sb.WriteString(b.msgProvider.Get(header))
		sb.WriteString("\n")
		for i, m := range c.Memories {
			sb.WriteString(b.msgProvider.Get(bmessages.ContextMemoryLine,
				messageprovider.P("index", i+1),
				messageprovider.P("when", b.describeWhen(m.StartTime)),
				messageprovider.P("summary", truncateRunes(m.Summary, bconfig.ContextSnippetLength)),
			))
			sb.WriteString("\n")
			for _, point := range lastN(m.KeyPoints, bconfig.ContextKeyPointCount) {
				sb.WriteString(b.msgProvider.Get(bmessages.ContextKeyPointLine,
					messageprovider.P("point", truncateRunes(point, bconfig.ContextSnippetLength)),
				))
				sb.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *ContextBuilder) describeWhen(t time.Time) string {
	days := model.DaysBetween(t, b.now())
	switch {
	case days <= 0:
		return b.msgProvider.Get(bmessages.ContextWhenToday)
	case days == 1:
		return b.msgProvider.Get(bmessages.ContextWhenYesterday)
	default:
		return b.msgProvider.Get(bmessages.ContextWhenDaysAgo, messageprovider.P("days", days))
	}
}

// truncateRunes 최대 n 룬까지 자른다.
func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
