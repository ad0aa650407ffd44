// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode ErrorCode
	}{
		{"unauthorized maps to session expired", http.StatusUnauthorized, ErrCodeSessionExpired},
		{"forbidden maps to not permitted", http.StatusForbidden, ErrCodeNotPermitted},
		{"not found", http.StatusNotFound, ErrCodeNotFound},
		{"server error is generic upstream", http.StatusInternalServerError, ErrCodeUpstreamError},
		{"bad gateway is generic upstream", http.StatusBadGateway, ErrCodeUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := FromStatusCode(tt.status, "body")
			assert.Equal(t, tt.wantCode, fe.Code)
		})
	}
}

func TestFromStatusCode_RetryableOnlyForServerErrors(t *testing.T) {
	assert.True(t, FromStatusCode(503, "").Retryable)
	assert.False(t, FromStatusCode(401, "").Retryable)
	assert.False(t, FromStatusCode(404, "").Retryable)
}

func TestPaymentDeclined_UserMessageVerbatim(t *testing.T) {
	fe := NewPaymentDeclinedError("Fondos insuficientes")
	assert.Equal(t, "Fondos insuficientes", fe.UserMessage())

	// empty server message gets the default copy
	fe = NewPaymentDeclinedError("")
	assert.NotEmpty(t, fe.UserMessage())
}

func TestUserMessage_NeverLeaksDetails(t *testing.T) {
	fe := NewNetworkError(fmt.Errorf("dial tcp 10.0.0.1:443: i/o timeout"))

	msg := fe.UserMessage()
	assert.NotContains(t, msg, "10.0.0.1")
	assert.NotEmpty(t, msg)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		fe   *FlowError
		want int
	}{
		{NewValidationError(map[string]string{"x": "bad"}), http.StatusUnprocessableEntity},
		{NewSessionExpiredError(""), http.StatusUnauthorized},
		{NewNotPermittedError(""), http.StatusForbidden},
		{NewNotFoundError(""), http.StatusNotFound},
		{NewPaymentDeclinedError("declined"), http.StatusPaymentRequired},
		{NewUpstreamError(500, ""), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.fe.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fe.HTTPStatus())
		})
	}
}

func TestAsFlowError(t *testing.T) {
	fe := NewNotFoundError("app-1")
	assert.Same(t, fe, AsFlowError(fe))

	wrapped := AsFlowError(fmt.Errorf("plain error"))
	assert.Equal(t, ErrCodeNetworkError, wrapped.Code)
	assert.True(t, wrapped.Retryable)
}

func TestIsPaymentError(t *testing.T) {
	assert.True(t, NewPaymentDeclinedError("x").IsPaymentError())
	assert.True(t, NewOxxoPaymentFailedError(fmt.Errorf("x")).IsPaymentError())
	assert.False(t, NewNotFoundError("x").IsPaymentError())
}
