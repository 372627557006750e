package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   FailureKind
	}{
		{400, FailureBadRequest},
		{404, FailureNotFound},
		{429, FailureRateLimited},
		{500, FailureServerError},
		{502, FailureServerError},
		{503, FailureServiceUnavailable},
		{418, FailureUnclassified},
		{0, FailureUnclassified},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			t.Parallel()
			if got := ClassifyStatus(tt.status); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFailureKindRetryable(t *testing.T) {
	t.Parallel()

	retryable := map[FailureKind]bool{
		FailureUnclassified:       false,
		FailureBadRequest:         false,
		FailureNotFound:           false,
		FailureRateLimited:        true,
		FailureServerError:        false,
		FailureServiceUnavailable: true,
	}
	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("%v: expected retryable=%v, got %v", kind, want, got)
		}
	}
}

func TestFailureError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	f := &Failure{Kind: FailureServerError, Op: "user leagues", Status: 500, Err: cause}

	msg := f.Error()
	for _, want := range []string{"user leagues", "server error", "500", "connection reset"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error message %q", want, msg)
		}
	}
	if !errors.Is(f, cause) {
		t.Error("expected failure to unwrap to its cause")
	}

	wrapped := fmt.Errorf("cycle: %w", f)
	if got := FailureKindOf(wrapped); got != FailureServerError {
		t.Errorf("expected server error kind through wrapping, got %v", got)
	}
	if got := FailureKindOf(cause); got != FailureUnclassified {
		t.Errorf("expected unclassified for plain errors, got %v", got)
	}
}
