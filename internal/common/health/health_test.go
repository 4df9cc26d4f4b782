package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	Init("1.2.3")

	resp := Check(context.Background(), map[string]CheckFunc{
		"db":     func(context.Context) error { return nil },
		"valkey": func(context.Context) error { return errors.New("timeout") },
	})

	if resp.Status != "degraded" {
		t.Errorf("expected degraded, got %s", resp.Status)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", resp.Version)
	}
	if resp.Components["db"] != "up" || resp.Components["valkey"] != "down: timeout" {
		t.Errorf("unexpected components: %v", resp.Components)
	}

	if ok := Check(context.Background(), nil); ok.Status != "ok" || ok.Components != nil {
		t.Errorf("expected plain ok response, got %+v", ok)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(90*time.Minute + 1500*time.Millisecond); got != "1h30m2s" {
		t.Errorf("unexpected duration: %s", got)
	}
}
