package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusForbidden, ErrorTypeAuth},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusInternalServerError, ErrorTypeServerError},
		{http.StatusBadGateway, ErrorTypeServerError},
		{http.StatusBadRequest, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeForStatus(tt.code))
		})
	}
}

func TestWrapClassifiesDeadline(t *testing.T) {
	err := Wrap(ErrorTypeNetwork, "request failed", context.DeadlineExceeded)

	assert.Equal(t, ErrorTypeTimeout, err.Type)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestTypeOf(t *testing.T) {
	typed := New(ErrorTypePersistence, "disk full")
	wrapped := fmt.Errorf("writing users: %w", typed)

	assert.Equal(t, ErrorTypePersistence, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypePersistence))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.Equal(t, ErrorTypeTimeout, TypeOf(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
	assert.False(t, Is(nil, ErrorTypeUnknown))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "not_found error (code 404): no such actor", FromStatus(404, "no such actor").Error())
	assert.Equal(t, "config error: missing endpoint", New(ErrorTypeConfig, "missing endpoint").Error())
}
