package types

import (
	"errors"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrToolNotFound, "tool lookup failed").
		WithCause(root).
		WithRetryable(true).
		WithTool("format")

	if GetErrorCode(err) != ErrToolNotFound {
		t.Fatalf("expected code %s, got %s", ErrToolNotFound, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := Errorf(ErrInvalidParameters, "step %d: unknown on_error policy %q", 2, "retry")
	if GetErrorCode(err) != ErrInvalidParameters {
		t.Fatalf("expected code %s, got %s", ErrInvalidParameters, GetErrorCode(err))
	}
	want := `[INVALID_PARAMETERS] step 2: unknown on_error policy "retry"`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestGetErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code for plain error, got %s", code)
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain errors are never retryable")
	}
}
