package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationPattern,
		Message: "unknown recurrence pattern \"hourly\"",
	}

	expected := "validation_unknown_recurrence_pattern: unknown recurrence pattern \"hourly\""
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeInternalDB, "failed to claim delivery", underlying)

	if !errors.Is(appErr, underlying) {
		t.Errorf("errors.Is should find the underlying error")
	}
	if appErr.Error() != "internal_database_error: failed to claim delivery: connection refused" {
		t.Errorf("unexpected Error(): %q", appErr.Error())
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationEnvelope, http.StatusBadRequest},
		{ErrCodeValidationTopicMismatch, http.StatusBadRequest},
		{ErrCodeNotFoundUser, http.StatusNotFound},
		{ErrCodeConflictConcurrent, http.StatusConflict},
		{ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{ErrCodeUpstreamTimeout, http.StatusGatewayTimeout},
		{ErrCodeUpstreamDeliveryProvider, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorWithDetailsDoesNotMutate(t *testing.T) {
	base := &AppError{Code: ErrCodeNotFoundTemplate, Message: "missing", Details: map[string]any{"a": 1}}
	derived := base.WithDetails(map[string]any{"b": 2})

	if len(base.Details) != 1 {
		t.Errorf("original details mutated: %v", base.Details)
	}
	if derived.Details["a"] != 1 || derived.Details["b"] != 2 {
		t.Errorf("merged details = %v", derived.Details)
	}
}

func TestHasCode(t *testing.T) {
	appErr := NewAppError(ErrCodeUpstreamEventBus, "send failed", nil)
	wrapped := fmt.Errorf("cycle: %w", appErr)

	if !HasCode(wrapped, ErrCodeUpstreamEventBus) {
		t.Error("HasCode should see through fmt.Errorf wrapping")
	}
	if HasCode(wrapped, ErrCodeInternalDB) {
		t.Error("HasCode matched the wrong code")
	}
	if HasCode(errors.New("plain"), ErrCodeInternalDB) {
		t.Error("HasCode matched a non-AppError")
	}
}
