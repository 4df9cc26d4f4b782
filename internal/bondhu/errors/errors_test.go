package errors

import (
	"fmt"
	"testing"
)

func TestInvalidArgumentError(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Invalid("limit", "must be positive"))
	if !IsInvalidArgument(err) {
		t.Fatal("expected invalid argument in chain")
	}
	if got := Invalid("", "bad").Error(); got != "invalid argument: bad" {
		t.Errorf("unexpected message: %s", got)
	}
	if IsNotFound(err) {
		t.Error("did not expect not found")
	}
}

func TestNotFoundError(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFoundError{Resource: "memory", ID: "m1"})
	if !IsNotFound(err) {
		t.Fatal("expected not found in chain")
	}
	if got := (NotFoundError{Resource: "memory", ID: "m1"}).Error(); got != "memory not found id=m1" {
		t.Errorf("unexpected message: %s", got)
	}
}
