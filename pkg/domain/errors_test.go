package domain

import (
	"context"
	"errors"
	"testing"
)

func TestStoreUnavailable(t *testing.T) {
	cause := context.DeadlineExceeded
	err := StoreUnavailable(cause)

	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("errors.Is(%v, ErrStoreUnavailable) = false, want true", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(%v, cause) = false, want true", err)
	}
	if got := CodeOf(err); got != CodeUnavailable {
		t.Errorf("CodeOf() = %q, want %q", got, CodeUnavailable)
	}
	if got, want := err.Error(), "store unavailable: context deadline exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorIs_MatchesSentinelOnly(t *testing.T) {
	wrapped := WrapError(errors.New("pq: fk"), CodeUnauthenticated, ErrUnauthenticated.Message)

	if !errors.Is(wrapped, ErrUnauthenticated) {
		t.Error("wrapped error should match its sentinel")
	}
	if errors.Is(wrapped, ErrInvalidToken) {
		t.Error("same code with a different message must not match")
	}
	if errors.Is(ErrUnauthenticated, wrapped) {
		t.Error("a sentinel must not match a wrapped target")
	}
}
