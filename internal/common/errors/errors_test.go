package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsExpectedUserBehavior(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "malformed", err: MalformedInputError{Message: "bad"}, want: true},
		{name: "wrapped_rate_limited", err: fmt.Errorf("send: %w", RateLimitedError{UserID: "u1", Limit: 100, RetryAfter: time.Second}), want: true},
		{name: "access_denied", err: AccessDeniedError{}, want: true},
		{name: "database", err: DatabaseError{Operation: "insert", Err: errors.New("boom")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpectedUserBehavior(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDatabaseErrorUnwrap(t *testing.T) {
	base := errors.New("conn refused")
	err := fmt.Errorf("outer: %w", DatabaseError{Operation: "select", Err: base})
	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to reach base error")
	}
	if got := (DatabaseError{Operation: "select"}).Error(); got != "db error operation=select" {
		t.Errorf("unexpected message: %q", got)
	}
}
