// Package provider abstracts the external search/answer services that back
// the search extractors. A provider takes a natural-language prompt and
// returns text that may or may not contain structured data; callers must
// treat the response as untrusted input.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider is the contract every search backend satisfies:
// (prompt) -> text | fails with *Error.
type Provider interface {
	// Name returns the provider identifier, e.g. "perplexity".
	Name() string
	// Search issues the prompt and returns the raw response text.
	Search(ctx context.Context, prompt string) (string, error)
}

// Error is a provider failure. Fatal errors (auth, quota) abort the
// aggregation when every platform depends on the provider; transport
// hiccups are retryable per source.
type Error struct {
	Provider string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// Fatal reports whether the failure is terminal for the whole provider
// (bad credentials or exhausted quota) rather than a transient condition.
func (e *Error) Fatal() bool {
	return e.Status == http.StatusUnauthorized ||
		e.Status == http.StatusForbidden ||
		e.Status == http.StatusPaymentRequired ||
		e.Status == http.StatusTooManyRequests
}

// Config selects and configures a provider. Exactly one backend is active
// per process; which one depends on the keys present.
type Config struct {
	Kind             string // "perplexity" or "tavily"; auto-detected when empty
	PerplexityAPIKey string
	PerplexityModel  string
	TavilyAPIKey     string
	GeminiAPIKey     string
	GeminiModel      string
	Timeout          time.Duration
}

// New builds the configured provider. Returns nil (no error) when no backend
// is configured; aggregation then runs on direct extractors only.
func New(cfg Config) (Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}

	kind := cfg.Kind
	if kind == "" {
		switch {
		case cfg.PerplexityAPIKey != "":
			kind = "perplexity"
		case cfg.TavilyAPIKey != "" && cfg.GeminiAPIKey != "":
			kind = "tavily"
		default:
			return nil, nil
		}
	}

	switch kind {
	case "perplexity":
		if cfg.PerplexityAPIKey == "" {
			return nil, fmt.Errorf("perplexity provider requires an API key")
		}
		return newPerplexity(cfg.PerplexityAPIKey, cfg.PerplexityModel, client), nil
	case "tavily":
		if cfg.TavilyAPIKey == "" || cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("tavily provider requires both Tavily and Gemini API keys")
		}
		return newTavily(cfg.TavilyAPIKey, cfg.GeminiAPIKey, cfg.GeminiModel, client), nil
	}
	return nil, fmt.Errorf("unknown search provider %q", kind)
}
