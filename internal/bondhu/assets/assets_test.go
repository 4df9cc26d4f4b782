package assets

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/park285/llm-kakao-bots/bondhu-go/internal/common/messageprovider"
)

func TestMessagesYAML_Parses(t *testing.T) {
	provider, err := messageprovider.NewFromYAMLAtPath(MessagesYAML, "bondhu")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	for _, key := range []string{"stats.wellness_no_change", "stats.streak_start", "summary.general_topic"} {
		if !provider.Has(key) {
			t.Errorf("expected %s to exist", key)
		}
	}
	if got := provider.Get("stats.messages_today", messageprovider.P("count", 0)); got != "+0 today" {
		t.Errorf("unexpected messages_today text: %q", got)
	}
	if len(provider.Strings("reply.fallback")) == 0 {
		t.Error("expected fallback replies")
	}
}

func TestYAMLAssets_WellFormed(t *testing.T) {
	for name, content := range map[string]string{
		"lexicon":    TopicLexiconYAML,
		"catalog":    AchievementCatalogYAML,
		"rules":      ClassificationRulesYAML,
		"extraction": ExtractionRulesYAML,
		"messages":   MessagesYAML,
	} {
		var doc map[string]any
		if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
			t.Errorf("%s: unmarshal failed: %v", name, err)
		}
		if len(doc) == 0 {
			t.Errorf("%s: empty document", name)
		}
	}
}

func TestRateLimitLua_ReturnsPair(t *testing.T) {
	if !strings.Contains(RateLimitIncrLua, "return {count, ttl}") {
		t.Fatal("rate limit script must return {count, ttl}")
	}
}
