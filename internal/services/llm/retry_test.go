package llm

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
	assert.True(t, IsRateLimitError(errors.New("googleapi: Error 429: Resource has been exhausted")))
	assert.True(t, IsRateLimitError(errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("quota exceeded for model")))
}

func TestExtractRetryDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no hint here")))
	assert.Equal(t, 30*time.Second, ExtractRetryDelay(errors.New("Error 429. Please retry in 30s.")))
	assert.Equal(t, 12*time.Second, ExtractRetryDelay(errors.New("retryDelay: 12s")))

	d := ExtractRetryDelay(errors.New("Please retry in 7.5s"))
	assert.Equal(t, 7500*time.Millisecond, d)
}

func TestCalculateBackoff(t *testing.T) {
	config := &RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    10 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
	}

	assert.Equal(t, 10*time.Second, config.CalculateBackoff(0, 0))
	assert.Equal(t, 20*time.Second, config.CalculateBackoff(1, 0))
	assert.Equal(t, 40*time.Second, config.CalculateBackoff(2, 0))

	// Capped at MaxBackoff.
	assert.Equal(t, 60*time.Second, config.CalculateBackoff(5, 0))

	// API-provided delay replaces the base and gets a small buffer.
	assert.Equal(t, 25*time.Second, config.CalculateBackoff(0, 20*time.Second))
}

func TestTruncateOnRuneBoundary(t *testing.T) {
	assert.Equal(t, "curto", truncateOnRuneBoundary("curto", 240))
	assert.Equal(t, "abcd", truncateOnRuneBoundary("abcdef", 4))

	// "ção" is multibyte; the cut must back off instead of splitting "ç".
	s := "instalaç"
	cut := truncateOnRuneBoundary(s, len(s)-1)
	assert.Equal(t, "instala", cut)
	assert.True(t, utf8.ValidString(cut))
}

func TestExtractJSON(t *testing.T) {
	plain := `{"indice": 2}`
	assert.Equal(t, plain, extractJSON(plain))
	assert.Equal(t, plain, extractJSON("  \n"+plain+"\n "))

	fenced := "```json\n{\"indice\": 2}\n```"
	assert.Equal(t, plain, extractJSON(fenced))

	bareFence := "```\n{\"indice\": 2}\n```"
	assert.Equal(t, plain, extractJSON(bareFence))
}
