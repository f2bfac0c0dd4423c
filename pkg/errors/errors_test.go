package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name       string
		err        *AppError
		code       string
		status     int
		sentinel   error
		wantDetail map[string]string
	}{
		{"not found", NotFound("session"), "NOT_FOUND", http.StatusNotFound, ErrNotFound, nil},
		{"bad request", BadRequest("bad"), "BAD_REQUEST", http.StatusBadRequest, ErrBadRequest, nil},
		{"network failure", NetworkFailure("inventory", cause), "NETWORK_FAILURE", http.StatusBadGateway, ErrNetworkFailure, map[string]string{"feed": "inventory"}},
		{"assistant unavailable", AssistantUnavailable(cause), "ASSISTANT_UNAVAILABLE", http.StatusServiceUnavailable, ErrAssistantUnavailable, nil},
		{"action in flight", ActionInFlight("dolo 650"), "ACTION_IN_FLIGHT", http.StatusConflict, ErrActionInFlight, map[string]string{"medicine": "dolo 650"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.wantDetail, tt.err.Details)
		})
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := Wrap(errors.New("timeout"), "X", "fetch failed", http.StatusBadGateway)
	assert.Equal(t, "fetch failed: timeout", err.Error())

	plain := New("X", "plain", http.StatusTeapot)
	assert.Equal(t, "plain", plain.Error())
}

func TestAs(t *testing.T) {
	var wrapped error = NetworkFailure("expiry", errors.New("eof"))

	var appErr *AppError
	assert.True(t, As(wrapped, &appErr))
	assert.Equal(t, "expiry feed unavailable", appErr.Message)
}
