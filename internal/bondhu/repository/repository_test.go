package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	berrors "github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/errors"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/testhelper"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo := New(testhelper.NewSQLiteDB(t))
	if err := repo.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return repo
}

func appendTurn(t *testing.T, repo *Repository, user, session string, sender model.SenderType, text string, ts time.Time) model.ChatMessage {
	t.Helper()
	msg, err := repo.AppendMessage(context.Background(), model.ChatMessage{
		UserID: user, SessionID: session, SenderType: sender, Message: text, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	return msg
}

func TestRepository_NilDB(t *testing.T) {
	var repo *Repository
	if err := repo.AutoMigrate(context.Background()); err == nil {
		t.Error("expected error for nil repository")
	}
	if _, err := New(nil).ListHistory(context.Background(), "u", "", 10, 0); err == nil {
		t.Error("expected error for nil db")
	}
}

func TestMessages_OrderingAndPaging(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	first := appendTurn(t, repo, "u1", "s1", model.SenderUser, "Hello there", base)
	appendTurn(t, repo, "u1", "s1", model.SenderAI, "Hi! How are you?", base.Add(time.Second))
	appendTurn(t, repo, "u1", "s1", model.SenderUser, "I feel GREAT today", base.Add(2*time.Second))
	appendTurn(t, repo, "u1", "s2", model.SenderUser, "other session", base.Add(3*time.Second))
	appendTurn(t, repo, "u2", "s1", model.SenderUser, "great but not mine", base.Add(4*time.Second))

	if first.ID == 0 {
		t.Fatal("expected generated id")
	}

	session, err := repo.ListSessionMessages(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("list session failed: %v", err)
	}
	if len(session) != 3 || session[0].Message != "Hello there" || session[2].SenderType != model.SenderUser {
		t.Fatalf("unexpected session order: %+v", session)
	}

	history, err := repo.ListHistory(ctx, "u1", "", 2, 0)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(history) != 2 || history[0].Message != "other session" {
		t.Fatalf("unexpected newest-first page: %+v", history)
	}
	page2, err := repo.ListHistory(ctx, "u1", "s1", 2, 2)
	if err != nil {
		t.Fatalf("list history page 2 failed: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != first.ID {
		t.Fatalf("unexpected second page: %+v", page2)
	}

	found, err := repo.SearchMessages(ctx, "u1", "great", 100)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(found) != 1 || found[0].UserID != "u1" {
		t.Fatalf("unexpected search result: %+v", found)
	}
	if none, _ := repo.SearchMessages(ctx, "u1", "100%", 10); len(none) != 0 {
		t.Errorf("wildcard must be escaped, got %d", len(none))
	}

	total, _ := repo.CountSessionMessages(ctx, "u1", "s1", "")
	users, _ := repo.CountSessionMessages(ctx, "u1", "s1", model.SenderUser)
	if total != 3 || users != 2 {
		t.Errorf("unexpected counts total=%d users=%d", total, users)
	}
	recent, _ := repo.CountUserMessagesSince(ctx, "u1", base.Add(time.Second))
	if recent != 2 {
		t.Errorf("unexpected recent user count: %d", recent)
	}
}

func TestIncrementActivity_Upsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.IncrementActivity(ctx, "u1", model.ActivityChat, now); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	stats, found, err := repo.GetActivityStats(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("expected stats row: found=%v err=%v", found, err)
	}
	if stats.TotalMessages != 1 || stats.CurrentStreakDays != 1 || stats.LastActivityDate != "" {
		t.Fatalf("unexpected new row: %+v", stats)
	}

	for _, at := range []model.ActivityType{model.ActivityChat, model.ActivityGame, model.ActivityLogin} {
		if err := repo.IncrementActivity(ctx, "u1", at, now.Add(time.Hour)); err != nil {
			t.Fatalf("increment %s failed: %v", at, err)
		}
	}
	stats, _, _ = repo.GetActivityStats(ctx, "u1")
	if stats.TotalMessages != 2 || stats.TotalGamesPlayed != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}
	if stats.Version != 0 {
		t.Errorf("increments must not bump version, got %d", stats.Version)
	}

	if err := repo.IncrementActivity(ctx, "u1", model.ActivityChat, now.Add(48*time.Hour)); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	days, _ := repo.CountActiveDaysSince(ctx, "u1", "2026-04-25")
	if days != 2 {
		t.Errorf("expected 2 distinct active days, got %d", days)
	}

	if err := repo.IncrementActivity(ctx, "u1", model.ActivityType("dance"), now); err == nil {
		t.Error("expected error for unknown activity type")
	}
}

func TestMutateStats_RetriesOnVersionConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.IncrementActivity(ctx, "u1", model.ActivityChat, now); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	calls := 0
	stats, found, err := repo.MutateStats(ctx, "u1", 3, func(s *model.ActivityStats) (bool, error) {
		calls++
		if calls == 1 {
			// 경합하는 쓰기
			if _, _, err := repo.MutateStats(ctx, "u1", 1, func(other *model.ActivityStats) (bool, error) {
				other.TotalAchievements = 2
				return true, nil
			}); err != nil {
				return false, err
			}
		}
		s.CurrentStreakDays = 7
		s.LongestStreakDays = 7
		s.LastActivityDate = "2026-05-01"
		return true, nil
	})
	if err != nil || !found {
		t.Fatalf("mutate failed: found=%v err=%v", found, err)
	}
	if calls != 2 {
		t.Errorf("expected retry, calls=%d", calls)
	}
	if stats.TotalAchievements != 2 || stats.CurrentStreakDays != 7 {
		t.Errorf("lost update: %+v", stats)
	}

	persisted, _, _ := repo.GetActivityStats(ctx, "u1")
	if persisted.LastActivityDate != "2026-05-01" || persisted.Version != stats.Version {
		t.Errorf("unexpected persisted stats: %+v", persisted)
	}

	_, found, err = repo.MutateStats(ctx, "missing", 3, func(*model.ActivityStats) (bool, error) { return true, nil })
	if err != nil || found {
		t.Errorf("expected not found without error, found=%v err=%v", found, err)
	}
}

func TestMutateStats_GivesUp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	if err := repo.IncrementActivity(ctx, "u1", model.ActivityChat, now); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	_, _, err := repo.MutateStats(ctx, "u1", 2, func(s *model.ActivityStats) (bool, error) {
		if _, _, err := repo.MutateStats(ctx, "u1", 1, func(other *model.ActivityStats) (bool, error) {
			other.WellnessScore++
			return true, nil
		}); err != nil {
			return false, err
		}
		return true, nil
	})
	if !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
}

func TestIncrementActivity_DoesNotInvalidateMutators(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.IncrementActivity(ctx, "u1", model.ActivityChat, now); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	calls := 0
	_, _, err := repo.MutateStats(ctx, "u1", 1, func(s *model.ActivityStats) (bool, error) {
		calls++
		if err := repo.IncrementActivity(ctx, "u1", model.ActivityChat, now); err != nil {
			return false, err
		}
		s.CurrentStreakDays = 3
		return true, nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("increment must not conflict with mutator: calls=%d err=%v", calls, err)
	}

	persisted, _, _ := repo.GetActivityStats(ctx, "u1")
	if persisted.TotalMessages != 2 || persisted.CurrentStreakDays != 3 {
		t.Fatalf("lost update: %+v", persisted)
	}
}

func TestSeedAchievements_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	catalog := []model.Achievement{
		{Type: model.AchievementTypeStreak, Name: "Ten", Requirement: 10},
		{Type: model.AchievementTypeStreak, Name: "Five", Requirement: 5},
	}
	for i := 0; i < 2; i++ {
		if err := repo.SeedAchievements(ctx, catalog); err != nil {
			t.Fatalf("seed %d failed: %v", i, err)
		}
	}
	list, err := repo.ListAchievements(ctx, model.AchievementTypeStreak)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[0].Requirement != 5 {
		t.Fatalf("unexpected catalog: %+v", list)
	}
}

func TestConversationMemory_InsertAndQuery(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	in := model.MemoryInput{
		UserID:       "u1",
		SessionID:    "s1",
		Summary:      "Talked about anime and work stress",
		Topics:       []string{"anime", "work"},
		Emotions:     []string{"positive"},
		KeyPoints:    []string{"likes attack on titan"},
		Entities:     []model.EntityRef{{Name: "Attack on Titan", Type: "entertainment"}},
		MessageIDs:   []uint64{1, 2, 3},
		MessageCount: 10,
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
	}
	mem, err := repo.InsertConversationMemory(ctx, in)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if mem.ID == "" || len(mem.MessageIDs) != 3 {
		t.Fatalf("unexpected memory: %+v", mem)
	}

	if _, err := repo.InsertConversationMemory(ctx, in); !errors.Is(err, berrors.ErrSummaryAlreadyClaimed) {
		t.Fatalf("expected duplicate crossing rejection, got %v", err)
	}

	second := in
	second.SessionID = "s2"
	second.Topics = []string{"anime"}
	second.Entities = nil
	second.Emotions = []string{"negative"}
	second.StartTime = start.Add(24 * time.Hour)
	second.EndTime = second.StartTime.Add(time.Hour)
	if _, err := repo.InsertConversationMemory(ctx, second); err != nil {
		t.Fatalf("insert second failed: %v", err)
	}

	freq, err := repo.TopicFrequency(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("frequency failed: %v", err)
	}
	if len(freq) != 2 || freq[0].Topic != "anime" || freq[0].Count != 2 || freq[1].Topic != "work" {
		t.Fatalf("unexpected frequency: %+v", freq)
	}

	sessions, _ := repo.SessionsByTopic(ctx, "u1", "anime", 5)
	if len(sessions) != 2 || sessions[0] != "s2" {
		t.Errorf("unexpected sessions by topic: %v", sessions)
	}
	if other, _ := repo.SessionsByTopic(ctx, "u2", "anime", 5); len(other) != 0 {
		t.Errorf("cross-user leak: %v", other)
	}

	hits, _ := repo.FindSessionsByEntity(ctx, "u1", "titan", 10)
	if len(hits) != 1 || hits[0].EntityType != "entertainment" {
		t.Errorf("unexpected entity hits: %+v", hits)
	}
	topicHits, _ := repo.FindSessionsByTopic(ctx, "u1", "ANI", 10)
	if len(topicHits) != 2 {
		t.Errorf("unexpected topic hits: %+v", topicHits)
	}

	recent, _ := repo.RecentMemories(ctx, "u1", start.Add(12*time.Hour), 10)
	if len(recent) != 1 || recent[0].SessionID != "s2" {
		t.Errorf("unexpected recent: %+v", recent)
	}
	byEmotion, _ := repo.MemoriesByEmotion(ctx, "u1", "positive", 10)
	if len(byEmotion) != 1 || byEmotion[0].SessionID != "s1" {
		t.Errorf("unexpected emotion search: %+v", byEmotion)
	}
	byText, _ := repo.SearchMemoriesByText(ctx, "u1", "WORK stress", 10)
	if len(byText) != 2 {
		t.Errorf("unexpected text search: %d", len(byText))
	}

	deleted, err := repo.DeleteMemoriesOlderThan(ctx, "u1", start.Add(12*time.Hour))
	if err != nil || deleted != 1 {
		t.Fatalf("cleanup failed: deleted=%d err=%v", deleted, err)
	}
	freq, _ = repo.TopicFrequency(ctx, "u1", 10)
	if len(freq) != 1 || freq[0].Count != 1 {
		t.Errorf("index rows not cleaned: %+v", freq)
	}

	all, _ := repo.ListAllMemories(ctx, "u1", 100)
	rebuilt, err := repo.ReplaceTopicIndex(ctx, "u1", all)
	if err != nil || rebuilt != 1 {
		t.Errorf("reindex failed: rebuilt=%d err=%v", rebuilt, err)
	}
	entityHits, _ := repo.FindSessionsByEntity(ctx, "u1", "titan", 10)
	if len(entityHits) != 0 {
		t.Errorf("entity rows of deleted memory should be gone: %+v", entityHits)
	}
}

func TestMemoriesByEmotion_EscapesWildcards(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, emotion := range []string{"very_happy", "veryxhappy"} {
		ts := start.Add(time.Duration(i) * time.Hour)
		_, err := repo.InsertConversationMemory(ctx, model.MemoryInput{
			UserID:       "u1",
			SessionID:    fmt.Sprintf("s%d", i+1),
			Summary:      "mood check",
			Topics:       []string{"general"},
			Emotions:     []string{emotion},
			MessageIDs:   []uint64{uint64(i + 1)},
			MessageCount: 1,
			StartTime:    ts,
			EndTime:      ts.Add(time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %s failed: %v", emotion, err)
		}
	}

	tests := []struct {
		emotion string
		want    []string
	}{
		{emotion: "very_happy", want: []string{"s1"}},
		{emotion: "VERYXHAPPY", want: []string{"s2"}},
		{emotion: "%", want: nil},
		{emotion: "_", want: nil},
		{emotion: "happy", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.emotion, func(t *testing.T) {
			got, err := repo.MemoriesByEmotion(ctx, "u1", tt.emotion, 10)
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("unexpected hits for %q: %+v", tt.emotion, got)
			}
			for i, m := range got {
				if m.SessionID != tt.want[i] {
					t.Fatalf("unexpected session for %q: %s", tt.emotion, m.SessionID)
				}
			}
		})
	}
}

func TestClaimSummary_Watermark(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	prev, ok, err := repo.ClaimSummary(ctx, "u1", "s1", 10)
	if err != nil || !ok || prev != 0 {
		t.Fatalf("first claim: prev=%d ok=%v err=%v", prev, ok, err)
	}
	if _, ok, _ := repo.ClaimSummary(ctx, "u1", "s1", 10); ok {
		t.Fatal("duplicate claim must fail")
	}
	if _, ok, _ := repo.ClaimSummary(ctx, "u1", "s1", 5); ok {
		t.Fatal("stale claim must fail")
	}
	prev, ok, _ = repo.ClaimSummary(ctx, "u1", "s1", 20)
	if !ok || prev != 10 {
		t.Fatalf("advance claim: prev=%d ok=%v", prev, ok)
	}

	if err := repo.ReleaseSummary(ctx, "u1", "s1", 20, 10); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mark, _ := repo.SummaryMark(ctx, "u1", "s1"); mark != 10 {
		t.Errorf("expected mark 10 after release, got %d", mark)
	}
	if mark, _ := repo.SummaryMark(ctx, "u1", "none"); mark != 0 {
		t.Errorf("expected 0 for unknown session, got %d", mark)
	}
}

func TestUserMemory_UpsertAndOverride(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m, err := repo.UpsertUserMemory(ctx, model.UserMemory{
		UserID: "u1", Key: "favorite_anime", Value: "AoT",
		Importance: model.ImportanceHigh, Category: "favorite",
		Metadata: map[string]any{"source": "chat"},
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if m.Value != "AoT" || m.Metadata["source"] != "chat" {
		t.Fatalf("unexpected memory: %+v", m)
	}

	if _, err := repo.SetManualClassification(ctx, "u1", "favorite_anime", model.ImportanceLow, "custom"); err != nil {
		t.Fatalf("manual override failed: %v", err)
	}
	m, err = repo.UpsertUserMemory(ctx, model.UserMemory{
		UserID: "u1", Key: "favorite_anime", Value: "Re:Zero",
		Importance: model.ImportanceHigh, Category: "favorite",
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if m.Value != "Re:Zero" || m.Importance != model.ImportanceLow || m.Category != "custom" || !m.ManualOverride {
		t.Fatalf("override not preserved: %+v", m)
	}

	if _, err := repo.SetManualClassification(ctx, "u1", "missing", model.ImportanceLow, "x"); !berrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	if _, err := repo.UpsertUserMemory(ctx, model.UserMemory{UserID: "u1", Key: "hobby_chess", Value: "yes", Importance: model.ImportanceLow, Category: "other"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	var visited []string
	if err := repo.ForEachClassifiable(ctx, "u1", 1, func(batch []model.UserMemory) error {
		for _, item := range batch {
			visited = append(visited, item.Key)
		}
		return nil
	}); err != nil {
		t.Fatalf("iterate failed: %v", err)
	}
	if len(visited) != 1 || visited[0] != "hobby_chess" {
		t.Errorf("manual override rows must be skipped: %v", visited)
	}

	hobby, _ := repo.GetUserMemory(ctx, "u1", "hobby_chess")
	changed, err := repo.UpdateClassification(ctx, hobby.ID, model.ImportanceMedium, "hobby")
	if err != nil || !changed {
		t.Fatalf("update classification: changed=%v err=%v", changed, err)
	}

	if err := repo.TouchUserMemories(ctx, "u1", []string{hobby.ID}, time.Now()); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	hobby, _ = repo.GetUserMemory(ctx, "u1", "hobby_chess")
	if hobby.AccessCount != 1 || hobby.LastAccessed == nil {
		t.Errorf("touch not applied: %+v", hobby)
	}

	searched, _ := repo.SearchUserMemories(ctx, "u1", "CHESS", 10)
	if len(searched) != 1 {
		t.Errorf("unexpected search result: %+v", searched)
	}

	stats, err := repo.UserMemoryStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Medium != 1 || stats.Low != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestConversationOverview(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	appendTurn(t, repo, "u1", "s1", model.SenderUser, "a", base)
	appendTurn(t, repo, "u1", "s1", model.SenderAI, "b", base.Add(time.Minute))
	appendTurn(t, repo, "u1", "s2", model.SenderUser, "c", base.Add(time.Hour))
	if _, _, err := repo.ClaimSummary(ctx, "u1", "s1", 10); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	overview, err := repo.ConversationOverview(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	if len(overview) != 2 || overview[0].SessionID != "s2" {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	s1 := overview[1]
	if s1.MessageCount != 2 || s1.UserMessageCount != 1 || !s1.Summarized {
		t.Errorf("unexpected s1 overview: %+v", s1)
	}
	if !s1.FirstMessageAt.Equal(base) || !s1.LastMessageAt.Equal(base.Add(time.Minute)) {
		t.Errorf("unexpected s1 times: %v %v", s1.FirstMessageAt, s1.LastMessageAt)
	}
}
