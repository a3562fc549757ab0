// Package tokencount measures conversation text in model tokens so the
// analysis window can be bounded by a token budget instead of a message count.
//
// It uses tiktoken-go with the offline BPE loader, so no encoding files are
// fetched at runtime.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// getEncodingForModel returns the tiktoken encoding for a model, caching it.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	normalizedModel := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalizedModel)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encodingCache[normalizedModel] = enc
	return enc, nil
}

// normalizeModelName maps model ids to names tiktoken knows.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the tokens in text for model. When no encoding can be
// loaded it estimates four characters per token.
func (c *Counter) CountTokens(text, model string) int {
	if text == "" {
		return 0
	}
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		slog.Warn("token encoding unavailable, estimating",
			slog.String("model", model),
			slog.Any("error", err))
		n := len(text) / 4
		if n == 0 {
			n = 1
		}
		return n
	}
	return len(enc.Encode(text, nil, nil))
}

// TrimToBudget returns the longest suffix of texts whose token total fits in
// budget. The last element is always kept, even when it alone exceeds the
// budget, so a turn is never analyzed without its own message.
func (c *Counter) TrimToBudget(texts []string, budget int, model string) []string {
	if len(texts) == 0 {
		return nil
	}
	used := 0
	start := len(texts) - 1
	used += c.CountTokens(texts[start], model)
	for i := start - 1; i >= 0; i-- {
		n := c.CountTokens(texts[i], model)
		if used+n > budget {
			break
		}
		used += n
		start = i
	}
	return texts[start:]
}
