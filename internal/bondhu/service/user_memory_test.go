package service

import (
	"context"
	"testing"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

func TestUserMemoryService_UpsertAndOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.facts.Upsert(ctx, "u1", UserMemoryInput{Key: "favorite_anime", Value: "AoT", Metadata: map[string]any{"source": "chat"}})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if m.Importance != model.ImportanceHigh || m.Category != "favorite" {
		t.Fatalf("unexpected classification: %+v", m)
	}

	if _, err := env.facts.SetOverride(ctx, "u1", "favorite_anime", "LOW", "trivia"); err != nil {
		t.Fatalf("override failed: %v", err)
	}
	m, err = env.facts.Upsert(ctx, "u1", UserMemoryInput{Key: "favorite_anime", Value: "Re:Zero"})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if m.Value != "Re:Zero" || m.Importance != model.ImportanceLow || m.Category != "trivia" {
		t.Fatalf("manual override lost: %+v", m)
	}

	if _, err := env.facts.SetOverride(ctx, "u1", "favorite_anime", "urgent", "x"); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid importance, got %v", err)
	}
	if _, err := env.facts.Upsert(ctx, "u1", UserMemoryInput{Key: " "}); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid key, got %v", err)
	}
}

func TestUserMemoryService_BatchQueriesAndTouch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	saved, err := env.facts.AddMemoriesBatch(ctx, "u1", []UserMemoryInput{
		{Key: "occupation", Value: "nurse"},
		{Key: "hobby_chess", Value: "weekends"},
		{Key: "shoe_size", Value: "270"},
	})
	if err != nil || len(saved) != 3 {
		t.Fatalf("batch failed: saved=%d err=%v", len(saved), err)
	}

	medium, err := env.facts.GetMemories(ctx, "u1", "medium", 10)
	if err != nil || len(medium) != 1 || medium[0].Key != "hobby_chess" {
		t.Fatalf("unexpected medium memories: %+v err=%v", medium, err)
	}
	if _, err := env.facts.GetMemories(ctx, "u1", "loud", 10); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid importance, got %v", err)
	}
	if _, err := env.facts.GetMemories(ctx, "u1", "", 0); !berrors.IsInvalidArgument(err) {
		t.Fatalf("expected invalid limit, got %v", err)
	}

	found, err := env.facts.SearchMemories(ctx, "u1", "SIZE", 10)
	if err != nil || len(found) != 1 {
		t.Fatalf("unexpected search: %+v err=%v", found, err)
	}

	important, err := env.facts.GetImportantMemories(ctx, "u1", 10)
	if err != nil || len(important) != 1 || important[0].AccessCount != 1 {
		t.Fatalf("unexpected important memories: %+v err=%v", important, err)
	}
	stored, _ := env.repo.GetUserMemory(ctx, "u1", "occupation")
	if stored.AccessCount != 1 || stored.LastAccessed == nil {
		t.Fatalf("access not recorded: %+v", stored)
	}

	stats, err := env.facts.Stats(ctx, "u1")
	if err != nil || stats.Total != 3 || stats.High != 1 || stats.Medium != 1 || stats.Low != 1 {
		t.Fatalf("unexpected stats: %+v err=%v", stats, err)
	}
}

func TestUserMemoryService_ReclassifyIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 이전 규칙으로 저장된 행을 흉내낸다.
	for _, m := range []model.UserMemory{
		{UserID: "u1", Key: "hobby_chess", Value: "x", Importance: model.ImportanceLow, Category: "other"},
		{UserID: "u1", Key: "occupation", Value: "nurse", Importance: model.ImportanceHigh, Category: "personal"},
		{UserID: "u2", Key: "life_goal", Value: "travel", Importance: model.ImportanceLow, Category: "other"},
	} {
		if _, err := env.repo.UpsertUserMemory(ctx, m); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	if _, err := env.facts.SetOverride(ctx, "u2", "life_goal", "low", "someday"); err != nil {
		t.Fatalf("override failed: %v", err)
	}

	changed, err := env.facts.Reclassify(ctx, "")
	if err != nil || changed != 1 {
		t.Fatalf("first pass: changed=%d err=%v", changed, err)
	}
	changed, err = env.facts.Reclassify(ctx, "")
	if err != nil || changed != 0 {
		t.Fatalf("second pass must change nothing: changed=%d err=%v", changed, err)
	}

	chess, _ := env.repo.GetUserMemory(ctx, "u1", "hobby_chess")
	if chess.Importance != model.ImportanceMedium || chess.Category != "hobby" {
		t.Fatalf("reclassify not applied: %+v", chess)
	}
	goal, _ := env.repo.GetUserMemory(ctx, "u2", "life_goal")
	if goal.Category != "someday" {
		t.Fatalf("manual override must be skipped: %+v", goal)
	}
}
