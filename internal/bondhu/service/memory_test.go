package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

func memoryInput(user, session string, count int, start time.Time, topics ...string) model.MemoryInput {
	ids := make([]uint64, count)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	return model.MemoryInput{
		UserID:       user,
		SessionID:    session,
		Summary:      "talked about " + strings.Join(topics, ", "),
		Topics:       topics,
		Emotions:     []string{"Positive"},
		KeyPoints:    []string{"first point", "second point"},
		MessageIDs:   ids,
		MessageCount: count,
		StartTime:    start,
		EndTime:      start.Add(10 * time.Minute),
	}
}

func TestValidateMemoryInput(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	base := memoryInput("u1", "s1", 2, start, " Anime ", "anime", "WORK")
	base.MessageCount = 0
	base.Entities = []model.EntityRef{{Name: "AoT", Type: "entertainment"}, {Name: "aot", Type: "entertainment"}, {Name: " "}}

	got, err := ValidateMemoryInput(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(got.Topics, ",") != "anime,work" {
		t.Fatalf("unexpected topics: %v", got.Topics)
	}
	if len(got.Entities) != 1 || got.Entities[0].Name != "aot" {
		t.Fatalf("unexpected entities: %+v", got.Entities)
	}
	if got.MessageCount != 2 {
		t.Fatalf("message count should default to ids: %d", got.MessageCount)
	}

	tests := []struct {
		name   string
		mutate func(*model.MemoryInput)
	}{
		{name: "missing user", mutate: func(in *model.MemoryInput) { in.UserID = " " }},
		{name: "missing session", mutate: func(in *model.MemoryInput) { in.SessionID = "" }},
		{name: "no message ids", mutate: func(in *model.MemoryInput) { in.MessageIDs = nil }},
		{name: "zero end", mutate: func(in *model.MemoryInput) { in.EndTime = time.Time{} }},
		{name: "start after end", mutate: func(in *model.MemoryInput) { in.StartTime = in.EndTime.Add(time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := memoryInput("u1", "s1", 2, start, "anime")
			tt.mutate(&in)
			if _, err := ValidateMemoryInput(in); !berrors.IsInvalidArgument(err) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestMemoryService_RecordAndRetrieve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := env.memories.RecordConversationMemory(ctx, memoryInput("u1", "s1", 10, now.Add(-48*time.Hour), "anime", "work"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := env.memories.RecordConversationMemory(ctx, memoryInput("u1", "s2", 10, now.Add(-time.Hour), "anime")); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := env.memories.RecordConversationMemory(ctx, memoryInput("u1", "s3", 10, now.Add(-40*24*time.Hour), "travel")); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := env.memories.RecordConversationMemory(ctx, memoryInput("u2", "x1", 10, now, "anime")); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	_, err = env.memories.RecordConversationMemory(ctx, memoryInput("u1", "s1", 10, now, "anime"))
	if !errors.Is(err, berrors.ErrSummaryAlreadyClaimed) {
		t.Fatalf("expected duplicate to be rejected, got %v", err)
	}

	recent, err := env.memories.GetRecentSummaries(ctx, "u1", 7, 10)
	if err != nil || len(recent) != 2 || recent[0].SessionID != "s2" {
		t.Fatalf("unexpected recent: %+v err=%v", recent, err)
	}

	timeline, err := env.memories.GetConversationTimeline(ctx, "u1", 30, 10)
	if err != nil || len(timeline) != 2 || timeline[0].ID != first.ID {
		t.Fatalf("timeline must be chronological: %+v err=%v", timeline, err)
	}

	byTopic, err := env.memories.SearchByTopic(ctx, "u1", " ANIME ", 10)
	if err != nil || len(byTopic) != 2 {
		t.Fatalf("unexpected topic search: %+v err=%v", byTopic, err)
	}
	for _, m := range byTopic {
		if m.UserID != "u1" {
			t.Fatalf("topic search leaked another user: %+v", m)
		}
	}

	freq, err := env.memories.GetTopicFrequency(ctx, "u1")
	if err != nil || len(freq) != 3 || freq[0].Topic != "anime" || freq[0].Count != 2 {
		t.Fatalf("unexpected frequency: %+v err=%v", freq, err)
	}
	top, err := env.memories.GetMostDiscussedTopics(ctx, "u1", 1)
	if err != nil || len(top) != 1 || top[0].Topic != "anime" {
		t.Fatalf("unexpected most discussed: %+v err=%v", top, err)
	}

	emotional, err := env.memories.SearchByEmotion(ctx, "u1", "positive", 10)
	if err != nil || len(emotional) != 3 {
		t.Fatalf("unexpected emotion search: %d err=%v", len(emotional), err)
	}

	session, err := env.memories.GetBySession(ctx, "u1", "s3", 10)
	if err != nil || len(session) != 1 {
		t.Fatalf("unexpected session memories: %+v err=%v", session, err)
	}

	text, err := env.memories.SearchByText(ctx, "u1", "travel", 10)
	if err != nil || len(text) != 1 || text[0].SessionID != "s3" {
		t.Fatalf("unexpected text search: %+v err=%v", text, err)
	}

	if _, err := env.memories.SearchByTopic(ctx, "u1", "  ", 10); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid topic, got %v", err)
	}
	if _, err := env.memories.GetRecentSummaries(ctx, "u1", 0, 10); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid days, got %v", err)
	}
}

func TestMemoryService_CleanupAndReindex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, start := range []time.Time{now.Add(-100 * 24 * time.Hour), now.Add(-time.Hour)} {
		in := memoryInput("u1", "s"+string(rune('a'+i)), 4, start, "music")
		if _, err := env.memories.RecordConversationMemory(ctx, in); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	if _, err := env.memories.CleanupOldMemories(ctx, "u1", 0); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid age, got %v", err)
	}
	deleted, err := env.memories.CleanupOldMemories(ctx, "", 90*24*time.Hour)
	if err != nil || deleted != 1 {
		t.Fatalf("cleanup: deleted=%d err=%v", deleted, err)
	}

	rebuilt, err := env.memories.ReindexUserMemories(ctx, "u1")
	if err != nil || rebuilt != 1 {
		t.Fatalf("reindex: rebuilt=%d err=%v", rebuilt, err)
	}
	freq, _ := env.memories.GetTopicFrequency(ctx, "u1")
	if len(freq) != 1 || freq[0].Count != 1 {
		t.Fatalf("unexpected frequency after cleanup: %+v", freq)
	}
}

func TestContextBuilder_BuildContext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	empty, err := env.contexts.BuildContext(ctx, "u1", "hello")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if empty.HasPersonality() || empty.Text != "" {
		t.Fatalf("expected empty context: %+v", empty)
	}

	if _, err := env.facts.Upsert(ctx, "u1", UserMemoryInput{Key: "occupation", Value: "nurse"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	// 20일 전 anime 대화는 기본 7일 창 밖에 있다.
	if _, err := env.memories.RecordConversationMemory(ctx, memoryInput("u1", "old", 6, now.Add(-20*24*time.Hour), "anime")); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	for i := range 3 {
		in := memoryInput("u1", "new"+string(rune('a'+i)), 6, now.Add(-time.Duration(i+1)*time.Hour), "work")
		if _, err := env.memories.RecordConversationMemory(ctx, in); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	plain, err := env.contexts.BuildContext(ctx, "u1", "how are you")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if plain.Referenced || len(plain.Memories) != 3 || len(plain.Facts) != 1 {
		t.Fatalf("unexpected plain context: referenced=%v memories=%d facts=%d", plain.Referenced, len(plain.Memories), len(plain.Facts))
	}
	for _, want := range []string{"CONTEXT & MEMORY", "- occupation: nurse", "Recent conversations:", "talked about work"} {
		if !strings.Contains(plain.Text, want) {
			t.Errorf("context text missing %q:\n%s", want, plain.Text)
		}
	}

	ref, err := env.contexts.BuildContext(ctx, "u1", "remember when we talked about that anime?")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !ref.Referenced || len(ref.Memories) != 3 || ref.Memories[0].SessionID != "old" {
		t.Fatalf("referenced topic memory must come first: %+v", ref.Memories)
	}
	if !strings.Contains(ref.Text, "referring to a past conversation") || !strings.Contains(ref.Text, "20 days ago") {
		t.Errorf("unexpected reference text:\n%s", ref.Text)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("  안녕하세요  ", 2); got != "안녕" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := truncateRunes("short", 10); got != "short" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := lastN([]int{1, 2, 3, 4}, 3); len(got) != 3 || got[0] != 2 {
		t.Fatalf("unexpected lastN: %v", got)
	}
}
