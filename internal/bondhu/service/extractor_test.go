package service

import (
	"testing"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/bondhu/assets"
)

func TestExtractor_EmbeddedRules(t *testing.T) {
	e, err := NewExtractorFromYAML(assets.ExtractionRulesYAML)
	if err != nil {
		t.Fatalf("load rules failed: %v", err)
	}

	tests := []struct {
		name    string
		message string
		want    map[string]string
	}{
		{"favorite", "my favorite anime is Re:Zero", map[string]string{"favorite_anime": "Re:Zero"}},
		{"character_before_favorite", "My favorite character is Natsuki.", map[string]string{"favorite_character": "Natsuki"}},
		{"age_and_occupation", "I'm 25 years old, I work as a data scientist.", map[string]string{
			"age":        "25",
			"occupation": "data scientist",
		}},
		{"personal_info", "i am a software engineer", map[string]string{"personal_info": "software engineer"}},
		{"relationship", "my sister is Mina and I have a friend named Joe", map[string]string{
			"relationship_sister": "Mina and I have a friend named Joe",
			"relationship_friend": "Joe",
		}},
		{"goal", "My goal is to learn machine learning!", map[string]string{"life_goal": "learn machine learning"}},
		{"hobby_bucket", "I play video games on weekends", map[string]string{"hobby_gaming": "video games on weekends"}},
		{"hobby_default", "i collect stamps", map[string]string{"hobby_general": "stamps"}},
		{"dislike", "I can't stand loud noises.", map[string]string{"dislikes": "loud noises"}},
		{"nothing", "the weather is nice today", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.message)
			if len(got) != len(tt.want) {
				t.Fatalf("Extract(%q) = %+v, want %v", tt.message, got, tt.want)
			}
			for _, item := range got {
				if v, ok := tt.want[item.Key]; !ok || v != item.Value {
					t.Errorf("unexpected item %s=%q, want %v", item.Key, item.Value, tt.want)
				}
				if item.Metadata["source"] != "chat" {
					t.Errorf("expected chat source metadata, got %v", item.Metadata)
				}
			}
		})
	}
}

func TestExtractor_FirstKeyWins(t *testing.T) {
	e, err := NewExtractorFromYAML(assets.ExtractionRulesYAML)
	if err != nil {
		t.Fatalf("load rules failed: %v", err)
	}
	got := e.Extract("my favorite food is pizza. my favorite food is sushi")
	if len(got) != 1 || got[0].Value != "pizza" {
		t.Fatalf("expected first value to win, got %+v", got)
	}
}

func TestNewExtractorFromYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"empty_pattern": "rules:\n  - key: a\n    value: 1\n",
		"bad_regex":     "rules:\n  - pattern: '(['\n    key: a\n    value: 1\n",
		"group_range":   "rules:\n  - pattern: 'i like (\\w+)'\n    key: a\n    value: 2\n",
		"malformed":     "rules: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewExtractorFromYAML(content); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
