package service

import (
	"context"
	"testing"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/assets"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

func TestDashboardService_DefaultsWithoutStats(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.dashboard.GetDashboardStats(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.DashboardStats{
		WellnessChangeText: "No change",
		MessagesTodayText:  "+0 today",
		StreakStatus:       "Start your journey!",
		TotalAvailable:     6,
	}
	if got != want {
		t.Fatalf("unexpected defaults:\n got %+v\nwant %+v", got, want)
	}
}

func TestDashboardService_AfterStreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		if _, err := env.pipeline.HandleMessageAppended(ctx, model.MessageAppended{UserID: "u1", SessionID: "s1", Timestamp: day(d)}); err != nil {
			t.Fatalf("day %d failed: %v", d, err)
		}
	}

	got, err := env.dashboard.GetDashboardStats(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CurrentStreak != 5 || got.LongestStreak != 5 || !got.IsPersonalBest {
		t.Fatalf("unexpected streak fields: %+v", got)
	}
	if got.StreakStatus != "Building consistency!" || got.TotalMessages != 5 {
		t.Fatalf("unexpected status: %+v", got)
	}
	if got.TotalAchievements != 1 || got.TotalAvailable != 6 {
		t.Fatalf("unexpected achievement counts: %+v", got)
	}

	list, err := env.dashboard.ListAchievements(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if list.TotalUnlocked != 1 || list.TotalAvailable != 6 || len(list.Achievements) != 6 {
		t.Fatalf("unexpected list: %+v", list)
	}
	for _, a := range list.Achievements {
		if a.Unlocked != (a.Requirement == 5) {
			t.Fatalf("unexpected unlock state for %s: %+v", a.Name, a)
		}
		if a.Unlocked && a.UnlockedAt == nil {
			t.Fatalf("unlocked achievement without time: %+v", a)
		}
	}
}

func TestDashboardService_StreakStatusTiers(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		streak int
		want   string
	}{
		{0, "Start your journey!"},
		{1, "Keep going!"},
		{4, "Keep going!"},
		{5, "Building consistency!"},
		{10, "Great momentum!"},
		{25, "Amazing streak!"},
		{50, "Incredible dedication!"},
		{100, "ON FIRE! Unstoppable!"},
		{365, "ON FIRE! Unstoppable!"},
	}
	for _, tt := range tests {
		if got := env.dashboard.StreakStatus(tt.streak); got != tt.want {
			t.Errorf("StreakStatus(%d) = %q, want %q", tt.streak, got, tt.want)
		}
	}
}

func TestWellnessChange(t *testing.T) {
	if got := WellnessChange(nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	history := []model.WellnessPoint{{Date: "2026-03-01", Score: 40}, {Date: "2026-03-02", Score: 55}, {Date: "2026-03-03", Score: 48}}
	if got := WellnessChange(history); got != -7 {
		t.Fatalf("expected -7, got %d", got)
	}
}

func TestParseAchievementCatalog(t *testing.T) {
	catalog, err := ParseAchievementCatalog(assets.AchievementCatalogYAML)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(catalog) != 6 || catalog[0].Requirement != 5 || catalog[5].Key() != "streak:365" {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}

	for name, content := range map[string]string{
		"missing name":     "achievements:\n  - type: streak\n    requirement: 5\n",
		"zero requirement": "achievements:\n  - type: streak\n    name: x\n    requirement: 0\n",
		"duplicate":        "achievements:\n  - {type: streak, name: a, requirement: 5}\n  - {type: streak, name: b, requirement: 5}\n",
	} {
		if _, err := ParseAchievementCatalog(content); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
