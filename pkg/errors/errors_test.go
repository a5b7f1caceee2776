package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeValidation, "epochs must be a number")
	assert.Equal(t, "validation: epochs must be a number", err.Error())

	withCode := FromStatus(503, "search page")
	assert.Equal(t, "server_error: search page (status 503)", withCode.Error())

	wrapped := Wrap(ErrorTypeIO, fmt.Errorf("disk full"), "write staged image")
	assert.Equal(t, "io: write staged image: disk full", wrapped.Error())
}

func TestIsMatchesByType(t *testing.T) {
	sentinel := &Error{Type: ErrorTypeNotAnImage}
	err := fmt.Errorf("fetch: %w", Newf(ErrorTypeNotAnImage, "content type %q", "text/html"))

	assert.True(t, stderrors.Is(err, sentinel))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeNoExtension}))
	assert.True(t, IsType(err, ErrorTypeNotAnImage))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(ErrorTypeNetwork, cause, "GET")
	assert.True(t, stderrors.Is(err, cause))
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{429, ErrorTypeRateLimit},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{500, ErrorTypeServerError},
		{502, ErrorTypeServerError},
		{400, ErrorTypeNetwork},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := FromStatus(tt.code, "x")
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeTimeout))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeValidation))
	assert.False(t, IsRetryable(ErrorTypeNotAnImage))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(504))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(400))
}
