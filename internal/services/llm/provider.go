package llm

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Provider names for the chat backends.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderLocal  = "local"
)

// fallbackModels is the candidate chain tried after the configured model,
// in preference order.
var fallbackModels = []string{
	"ollama/llama3.1:8b",
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-3.5-turbo",
}

// DetectProvider determines the backend from a model identifier.
// Model strings can be:
//   - "ollama/llama3.1:8b" -> local
//   - "gemini-2.0-flash" or "gemini/..." or "google/..." -> gemini
//   - "claude-sonnet-4-20250514" or "claude/..." or "anthropic/..." -> claude
//   - anything else -> openai
func DetectProvider(model string) string {
	lower := strings.ToLower(model)

	if strings.HasPrefix(lower, "ollama/") {
		return ProviderLocal
	}
	if strings.HasPrefix(lower, "claude/") || strings.HasPrefix(lower, "anthropic/") ||
		strings.HasPrefix(lower, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(lower, "gemini/") || strings.HasPrefix(lower, "google/") ||
		strings.HasPrefix(lower, "gemini-") {
		return ProviderGemini
	}
	return ProviderOpenAI
}

// NormalizeModel removes the provider prefix from a model name if present.
// The "ollama/" prefix stays on for routing; the local service strips it at
// the wire.
func NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// CandidateModels returns the resolution order: the preferred model first,
// then the fallback chain, deduplicated preserving order.
func CandidateModels(preferred string) []string {
	ordered := make([]string, 0, len(fallbackModels)+1)
	if preferred != "" {
		ordered = append(ordered, preferred)
	}
	ordered = append(ordered, fallbackModels...)

	seen := make(map[string]bool, len(ordered))
	unique := make([]string, 0, len(ordered))
	for _, model := range ordered {
		if seen[model] {
			continue
		}
		seen[model] = true
		unique = append(unique, model)
	}
	return unique
}

// newPacer builds the shared request limiter, or nil when pacing is
// disabled.
func newPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// waitPacer blocks until the limiter admits the next request.
func waitPacer(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
