package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	tests := []struct {
		name     string
		text     string
		model    string
		minCount int
		maxCount int
	}{
		{
			name:     "simple text with gpt-4",
			text:     "Hello, world!",
			model:    "gpt-4",
			minCount: 3,
			maxCount: 5,
		},
		{
			name:     "longer text",
			text:     "The quick brown fox jumps over the lazy dog.",
			model:    "gpt-3.5-turbo",
			minCount: 8,
			maxCount: 12,
		},
		{
			name:     "unknown model uses gpt-4 encoding",
			text:     "Hello, world!",
			model:    "some-vendor/some-model",
			minCount: 3,
			maxCount: 5,
		},
		{
			name:     "empty text",
			text:     "",
			model:    "gpt-4",
			minCount: 0,
			maxCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := counter.CountTokens(tt.text, tt.model)
			assert.GreaterOrEqual(t, count, tt.minCount, "token count should be at least %d", tt.minCount)
			assert.LessOrEqual(t, count, tt.maxCount, "token count should be at most %d", tt.maxCount)
		})
	}
}

func TestNormalizeModelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"gpt-4", "gpt-4"},
		{"GPT-4-turbo", "gpt-4"},
		{"gpt-3.5-turbo", "gpt-3.5-turbo"},
		{"openai/gpt-3.5-turbo-0125", "gpt-3.5-turbo"},
		{"meta-llama/llama-3.1-8b-instruct:free", "gpt-4"},
		{"", "gpt-4"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeModelName(tt.input))
		})
	}
}

func TestEncodingCache(t *testing.T) {
	t.Parallel()

	counter := NewCounter()
	count1 := counter.CountTokens("Hello", "gpt-4")
	count2 := counter.CountTokens("Hello", "gpt-4")

	assert.Equal(t, count1, count2, "cached encoding should produce same result")
	counter.mu.RLock()
	assert.Len(t, counter.encodingCache, 1)
	counter.mu.RUnlock()
}

func TestTrimToBudget(t *testing.T) {
	t.Parallel()

	counter := NewCounter()
	msgs := []string{
		strings.Repeat("oldest message ", 20),
		"middle one",
		"latest",
	}

	assert.Nil(t, counter.TrimToBudget(nil, 100, "gpt-4"))
	assert.Equal(t, msgs, counter.TrimToBudget(msgs, 10_000, "gpt-4"))
	assert.Equal(t, msgs[1:], counter.TrimToBudget(msgs, 10, "gpt-4"))
	assert.Equal(t, msgs[2:], counter.TrimToBudget(msgs, 0, "gpt-4"), "the latest message is always kept")
}
