package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	bconfig "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/config"
	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

type failingSummarizer struct {
	calls atomic.Int32
}

func (f *failingSummarizer) Summarize(context.Context, []model.ChatMessage) (SummaryDraft, error) {
	f.calls.Add(1)
	return SummaryDraft{}, errors.New("llm unavailable")
}

// seedExchanges 사용자/AI 턴 n 쌍을 저장한다.
func seedExchanges(t *testing.T, env *testEnv, user, session string, from, n int, text string) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	for i := from; i < from+n; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		for _, turn := range []model.ChatMessage{
			{UserID: user, SessionID: session, SenderType: model.SenderUser, Message: text, MoodDetected: model.MoodPositive, Timestamp: ts},
			{UserID: user, SessionID: session, SenderType: model.SenderAI, Message: "ok", Timestamp: ts.Add(time.Millisecond)},
		} {
			if _, err := env.repo.AppendMessage(context.Background(), turn); err != nil {
				t.Fatalf("append failed: %v", err)
			}
		}
	}
}

func TestIsSummaryDue(t *testing.T) {
	tests := []struct {
		count, interval int
		want            bool
	}{
		{0, 10, false},
		{9, 10, false},
		{10, 10, true},
		{20, 10, true},
		{25, 10, false},
		{10, 0, true},
		{6, 3, true},
	}
	for _, tt := range tests {
		if got := IsSummaryDue(tt.count, tt.interval); got != tt.want {
			t.Errorf("IsSummaryDue(%d, %d) = %v, want %v", tt.count, tt.interval, got, tt.want)
		}
	}
}

func TestSelectSummaryWindow(t *testing.T) {
	var msgs []model.ChatMessage
	for i := 1; i <= 4; i++ {
		msgs = append(msgs,
			model.ChatMessage{ID: uint64(i * 10), SenderType: model.SenderUser},
			model.ChatMessage{ID: uint64(i*10 + 1), SenderType: model.SenderAI},
		)
	}
	// 사용자 메시지 이전의 AI 인사말은 어느 구간에도 속하지 않는다.
	msgs = append([]model.ChatMessage{{ID: 1, SenderType: model.SenderAI}}, msgs...)

	window := SelectSummaryWindow(msgs, 2, 4)
	if len(window) != 4 || window[0].ID != 30 || window[3].ID != 41 {
		t.Fatalf("unexpected window: %+v", window)
	}
	if got := SelectSummaryWindow(msgs, 0, 1); len(got) != 2 || got[0].ID != 10 {
		t.Fatalf("unexpected first window: %+v", got)
	}
	if got := SelectSummaryWindow(msgs, 4, 4); len(got) != 0 {
		t.Fatalf("expected empty window: %+v", got)
	}
}

func TestSummaryService_ProcessJobExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedExchanges(t, env, "u1", "s1", 0, 10, "i love this anime so much")

	job := model.SummaryJob{UserID: "u1", SessionID: "s1", MessageCount: 10}
	out, err := env.summaries.ProcessJob(ctx, job)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !out.Recorded || out.Memory.MessageCount != 10 || len(out.Memory.MessageIDs) != 20 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Memory.Topics[0] != "anime" || !strings.Contains(out.Memory.Summary, "10 message exchanges") {
		t.Fatalf("unexpected summary: %+v", out.Memory)
	}
	if len(out.Memory.KeyPoints) != bconfig.SummaryKeyPointCount {
		t.Fatalf("unexpected key points: %v", out.Memory.KeyPoints)
	}

	again, err := env.summaries.ProcessJob(ctx, job)
	if err != nil || again.Recorded || again.Reason != SummarySkipClaimed {
		t.Fatalf("second run must be skipped: %+v err=%v", again, err)
	}

	if _, err := env.summaries.ProcessJob(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", MessageCount: 7}); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected not-due job to be rejected, got %v", err)
	}

	memories, _ := env.memories.GetBySession(ctx, "u1", "s1", 10)
	if len(memories) != 1 {
		t.Fatalf("expected exactly one memory, got %d", len(memories))
	}
}

func TestSummaryService_ForceSummarizesRemainder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedExchanges(t, env, "u1", "s1", 0, 10, "work was busy")
	seedExchanges(t, env, "u1", "s1", 10, 3, "going on a trip")

	if _, err := env.summaries.ProcessJob(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", MessageCount: 10}); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	out, err := env.summaries.ProcessJob(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", Force: true})
	if err != nil || !out.Recorded {
		t.Fatalf("forced summary failed: %+v err=%v", out, err)
	}
	if out.Memory.MessageCount != 13 || len(out.Memory.MessageIDs) != 6 || out.Memory.Topics[0] != "travel" {
		t.Fatalf("forced summary must cover only the remainder: %+v", out.Memory)
	}

	again, err := env.summaries.ProcessJob(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", Force: true})
	if err != nil || again.Recorded || again.Reason != SummarySkipNothingNew {
		t.Fatalf("expected nothing new: %+v err=%v", again, err)
	}

	empty, err := env.summaries.ProcessJob(ctx, model.SummaryJob{UserID: "u1", SessionID: "none", Force: true})
	if err != nil || empty.Reason != SummarySkipNothingNew {
		t.Fatalf("expected empty session skip: %+v err=%v", empty, err)
	}
}

func TestSummaryService_FailureReleasesClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedExchanges(t, env, "u1", "s1", 0, 10, "hello")

	failing := &failingSummarizer{}
	svc := NewSummaryService(env.repo, env.memories, failing, bconfig.SummaryConfig{MaxAttempts: 2}, env.metrics, env.logger)

	if _, err := svc.ProcessJob(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", MessageCount: 10}); err == nil {
		t.Fatal("expected summarize failure")
	}
	if got := failing.calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	mark, err := env.repo.SummaryMark(ctx, "u1", "s1")
	if err != nil || mark != 0 {
		t.Fatalf("claim must be released: mark=%d err=%v", mark, err)
	}

	// 해제된 구간은 다른 요약기로 다시 처리할 수 있다.
	out, err := env.summaries.ProcessJob(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", MessageCount: 10})
	if err != nil || !out.Recorded {
		t.Fatalf("retry after release failed: %+v err=%v", out, err)
	}
}

func TestSummaryWorker_DispatchAndShutdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedExchanges(t, env, "u1", "s1", 0, 10, "music tonight")

	worker := NewSummaryWorker(env.summaries, bconfig.SummaryConfig{WorkerCount: 1, QueueSize: 4}, env.logger)
	if err := worker.Dispatch(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", MessageCount: 10}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	worker.Shutdown()
	worker.Shutdown()

	memories, _ := env.memories.GetBySession(ctx, "u1", "s1", 10)
	if len(memories) != 1 {
		t.Fatalf("queued job must finish before shutdown returns: %d", len(memories))
	}
	if err := worker.Dispatch(ctx, model.SummaryJob{UserID: "u1", SessionID: "s1", MessageCount: 20}); err == nil {
		t.Fatal("expected dispatch after shutdown to fail")
	}
}

func TestKeywordSummarizer_NoUserMessages(t *testing.T) {
	env := newTestEnv(t)
	s := NewKeywordSummarizer(env.lexicon, env.msg)

	draft, err := s.Summarize(context.Background(), []model.ChatMessage{{SenderType: model.SenderAI, Message: "hi"}})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if draft.Summary != "No conversation" || draft.Topics[0] != "general conversation" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}
