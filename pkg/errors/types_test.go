package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorHTTPCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantHTTP int
	}{
		{"validation", ValidationError("title", "must not be empty"), ErrCodeValidation, http.StatusBadRequest},
		{"missing field", MissingFieldError("kind"), ErrCodeMissingField, http.StatusBadRequest},
		{"upstream fetch", UpstreamFetchError("transcript", "rate limited", nil), ErrCodeUpstreamFetch, http.StatusBadGateway},
		{"generation", GenerationError("model failed", nil), ErrCodeGenerationFailed, http.StatusBadGateway},
		{"protocol decode", ProtocolDecodeError("missing type", nil), ErrCodeProtocolDecode, http.StatusBadRequest},
		{"not found", NotFound("session", "abc"), ErrCodeNotFound, http.StatusNotFound},
		{"timeout", TimeoutError("generate", "2m"), ErrCodeAPITimeout, http.StatusGatewayTimeout},
		{"rate limit", RateLimitError("generate", "5/s"), ErrCodeAPIRateLimit, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantHTTP, tt.err.GetHTTPCode())
			assert.True(t, Is(tt.err, tt.wantCode))
		})
	}
}

func TestWrappedAppErrorIsFound(t *testing.T) {
	cause := stderrors.New("connection reset")
	appErr := UpstreamFetchError("transcript", "transcript unavailable", cause)
	wrapped := fmt.Errorf("fetching abc123: %w", appErr)

	got, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "transcript unavailable", got.Message)
	assert.Equal(t, ErrCodeUpstreamFetch, GetCode(wrapped))
	assert.Equal(t, http.StatusBadGateway, GetHTTPCode(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}

func TestPlainErrorDefaults(t *testing.T) {
	err := stderrors.New("boom")
	assert.Equal(t, ErrCodeInternal, GetCode(err))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPCode(err))
	assert.False(t, Is(err, ErrCodeValidation))
}
