package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	t.Parallel()
	err := New(InvalidMarket, "bad market id")
	if !Is(err, InvalidMarket) {
		t.Error("Is should match the error's own Kind")
	}
	if Is(err, Unauthorized) {
		t.Error("Is should not match a different Kind")
	}
}

func TestIsMatchesThroughFmtWrap(t *testing.T) {
	t.Parallel()
	inner := New(Contention, "watch conflict")
	outer := fmt.Errorf("commit: %w", inner)
	if !Is(outer, Contention) {
		t.Error("Is should see through fmt.Errorf wrapping via errors.As")
	}
}

func TestKindOfUnknownErrorIsEmpty(t *testing.T) {
	t.Parallel()
	if got := KindOf(errors.New("plain error")); got != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("redis timeout")
	err := Wrap(TransactionFailed, "commit failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Wrap should preserve the cause for errors.Is")
	}
	if !Is(err, TransactionFailed) {
		t.Error("Wrap should carry the given Kind")
	}
}

func TestErrorMessageIncludesKindAndMsg(t *testing.T) {
	t.Parallel()
	err := New(MissingField, "market is required")
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	want := "MissingField: market is required"
	if msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}
}
