package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindStorage, "activity.append", "failed to append entry",
				errors.New("database is locked")),
			contains: []string{"[storage:activity.append]", "failed to append entry", "database is locked"},
		},
		{
			name:     "error without cause",
			err:      New(KindValidation, "activity.validate", "agent is required"),
			contains: []string{"[validation:activity.validate]", "agent is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindConfig, "test", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrap_KeepsInnermostKind(t *testing.T) {
	inner := New(KindAuth, "session.check", "superseded")
	outer := Wrap(KindTransport, "http.heartbeat", "request failed", fmt.Errorf("ctx: %w", inner))

	if outer.Kind != KindAuth {
		t.Fatalf("expected innermost kind %q, got %q", KindAuth, outer.Kind)
	}
}

func TestWrap_NilError(t *testing.T) {
	if Wrap(KindStorage, "noop", "nothing", nil) != nil {
		t.Fatal("wrapping nil should yield nil")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindConfig, "test", "message"),
			kind:     KindConfig,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      fmt.Errorf("outer: %w", Wrap(KindDomain, "test", "message", errors.New("cause"))),
			kind:     KindDomain,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindDomain,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsKind(tt.err, tt.kind)
			if result != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindStorage, "op", "msg")); got != KindStorage {
		t.Fatalf("KindOf() = %q", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("KindOf() on plain error = %q", got)
	}
}

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
		client bool
	}{
		{KindValidation, http.StatusBadRequest, true},
		{KindAuth, http.StatusUnauthorized, true},
		{KindForbidden, http.StatusForbidden, true},
		{KindConflict, http.StatusConflict, true},
		{KindStorage, http.StatusInternalServerError, false},
		{KindUnknown, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.status {
				t.Errorf("HTTPStatus() = %d, expected %d", got, tt.status)
			}
			if got := tt.kind.ClientFault(); got != tt.client {
				t.Errorf("ClientFault() = %v, expected %v", got, tt.client)
			}
		})
	}
}

func TestAs(t *testing.T) {
	sentinel := errors.New("invalid email or password")
	err := fmt.Errorf("login: %w", Wrap(KindAuth, "account.login", "credentials rejected", sentinel))

	typed, ok := As(err)
	if !ok {
		t.Fatal("As() found no typed error")
	}
	if typed.Kind != KindAuth || typed.Message != "credentials rejected" {
		t.Fatalf("As() = %+v", typed)
	}
	if !errors.Is(err, sentinel) {
		t.Fatal("sentinel lost through Wrap")
	}
	if _, ok := As(sentinel); ok {
		t.Fatal("As() matched a plain error")
	}
}
