package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestPublicMessage_UsesSafeMessage(t *testing.T) {
	sentinel := errors.New("SECRET_VALUE")
	err := New(KindAuth, "safe auth error", sentinel)
	if got := PublicMessage(err); got != "safe auth error" {
		t.Fatalf("PublicMessage() = %q, want %q", got, "safe auth error")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped cause to be retained for internal matching")
	}
}

func TestPublicMessage_NonAppError(t *testing.T) {
	err := errors.New("plain")
	if got := PublicMessage(err); got != "plain" {
		t.Fatalf("PublicMessage() = %q, want %q", got, "plain")
	}
}

func TestNew_DefaultMessage(t *testing.T) {
	err := RetriesExhausted(errors.New("503 overloaded"))
	if got := err.Error(); got != MsgRetriesExhausted {
		t.Fatalf("Error() = %q, want %q", got, MsgRetriesExhausted)
	}
	if got := Connectivity(nil).Error(); got != MsgConnectivity {
		t.Fatalf("Error() = %q, want %q", got, MsgConnectivity)
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", Fetch("image not found (HTTP 404)", nil))
	kind, ok := KindOf(err)
	if !ok || kind != KindFetch {
		t.Fatalf("KindOf() = (%q, %v), want (%q, true)", kind, ok, KindFetch)
	}
	if !Is(err, KindFetch) {
		t.Fatalf("expected Is(err, KindFetch) to be true")
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatalf("expected KindOf to fail for plain error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transient", err: Transient(errors.New("503")), want: true},
		{name: "rate limit", err: RateLimit(errors.New("429")), want: true},
		{name: "auth", err: Auth(errors.New("401")), want: false},
		{name: "bad request", err: BadRequest(errors.New("400")), want: false},
		{name: "validation", err: Validation("prompt is required"), want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "attempt timeout", err: Transient(fmt.Errorf("rpc: %w", context.DeadlineExceeded)), want: true},
		{name: "canceled kind", err: New(KindCanceled, "", context.Canceled), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(KindRetriesExhausted); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for retries_exhausted, got %d", got)
	}
	if got := HTTPStatus(KindValidation); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation, got %d", got)
	}
	if got := HTTPStatus(KindUnexpected); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unexpected, got %d", got)
	}
}
