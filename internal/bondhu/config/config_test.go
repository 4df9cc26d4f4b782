package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.Server.Port != 40260 {
		t.Errorf("unexpected port: %d", cfg.Server.Port)
	}
	if cfg.Summary.Interval != SummaryTriggerInterval || cfg.Summary.Dispatch != SummaryDispatchLocal {
		t.Errorf("unexpected summary config: %+v", cfg.Summary)
	}
	if cfg.RateLimit.Limit != 100 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if cfg.Valkey.StreamKey != DefaultSummaryStreamKey {
		t.Errorf("unexpected stream key: %s", cfg.Valkey.StreamKey)
	}
	if cfg.Llm.Enabled() {
		t.Error("llm should be disabled without LLM_BASE_URL")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("SUMMARY_DISPATCH", "STREAM")
	t.Setenv("SUMMARY_TRIGGER_INTERVAL", "20")
	t.Setenv("RATE_LIMIT_PER_WINDOW", "5")
	t.Setenv("LLM_BASE_URL", "http://llm:8080/")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.Summary.Dispatch != SummaryDispatchStream || cfg.Summary.Interval != 20 {
		t.Errorf("unexpected summary config: %+v", cfg.Summary)
	}
	if cfg.RateLimit.Limit != 5 {
		t.Errorf("unexpected limit: %d", cfg.RateLimit.Limit)
	}
	if cfg.Llm.BaseURL != "http://llm:8080" {
		t.Errorf("unexpected base url: %s", cfg.Llm.BaseURL)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "dispatch", key: "SUMMARY_DISPATCH", value: "kafka"},
		{name: "interval", key: "SUMMARY_TRIGGER_INTERVAL", value: "0"},
		{name: "window", key: "RATE_LIMIT_WINDOW_SECONDS", value: "0"},
		{name: "port", key: "DB_PORT", value: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
