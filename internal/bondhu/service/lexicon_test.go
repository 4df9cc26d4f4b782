package service

import (
	"reflect"
	"testing"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/assets"
	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/model"
)

func loadLexicon(t *testing.T) *Lexicon {
	t.Helper()
	l, err := NewLexiconFromYAML(assets.TopicLexiconYAML)
	if err != nil {
		t.Fatalf("load lexicon failed: %v", err)
	}
	return l
}

func TestLexicon_ExtractTopics(t *testing.T) {
	l := loadLexicon(t)

	topics, entities := l.ExtractTopics([]string{
		"I watched Attack on Titan after work",
		"My boss keeps giving me stress",
	}, 8)
	want := []string{"attack on titan", "work", "anxiety"}
	if !reflect.DeepEqual(topics, want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	if len(entities) != 1 || entities[0] != (model.EntityRef{Name: "attack on titan", Type: "entertainment"}) {
		t.Fatalf("unexpected entities: %+v", entities)
	}

	capped, _ := l.ExtractTopics([]string{"anime music movie python travel food book sports coding work"}, 3)
	if len(capped) != 3 || capped[0] != "anime" {
		t.Fatalf("expected 3 specific topics first, got %v", capped)
	}

	if none, _ := l.ExtractTopics([]string{"chaotic weather"}, 8); len(none) != 0 {
		t.Fatalf("keywords must match at word start, got %v", none)
	}
	if none, _ := l.ExtractTopics(nil, 8); none != nil {
		t.Fatalf("expected nil for empty input, got %v", none)
	}
}

func TestLexicon_DetectMood(t *testing.T) {
	l := loadLexicon(t)
	tests := map[string]model.Mood{
		"I feel GREAT and happy today":   model.MoodPositive,
		"so sad and frustrated":          model.MoodNegative,
		"happy but also worried and sad": model.MoodNegative,
		"good but terrible":              model.MoodNeutral,
		"the sky is blue":                model.MoodNeutral,
		"":                               model.MoodNeutral,
	}
	for text, want := range tests {
		if got := l.DetectMood(text); got != want {
			t.Errorf("DetectMood(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestLexicon_HasReference(t *testing.T) {
	l := loadLexicon(t)
	if !l.HasReference("Remember when we discussed my exam?") {
		t.Error("expected reference")
	}
	if !l.HasReference("like  I   said, it was fine") {
		t.Error("whitespace must be normalized")
	}
	if l.HasReference("hello there") {
		t.Error("unexpected reference")
	}
}

func TestNormalizeTopics(t *testing.T) {
	got := NormalizeTopics([]string{" Anime ", "ＡＮＩＭＥ", "", "Work  Life", "work life"})
	want := []string{"anime", "work life"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTopics = %v, want %v", got, want)
	}
}
