// Package summarize shortens scraped product descriptions with an LLM.
package summarize

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
)

// Summarizer turns a long description into a short one. Implementations never
// fail: on any error they return the input unchanged.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// Noop returns descriptions untouched.
type Noop struct{}

func (Noop) Summarize(_ context.Context, text string) string { return text }

// New picks the summarizer described by cfg. Without an API key the
// summarizer is disabled and Noop is returned.
func New(ctx context.Context, cfg config.SummarizerConfig, logger *slog.Logger) (Summarizer, error) {
	if !cfg.SummarizerEnabled() {
		if logger != nil {
			logger.Info("description summarizer disabled")
		}
		return Noop{}, nil
	}
	return NewGemini(ctx, GeminiConfig{
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		BaseURL:         cfg.BaseURL,
		MaxInputChars:   cfg.MaxInputChars,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Timeout:         cfg.Timeout.Duration,
	}, logger)
}

// truncate cuts s to at most max runes; max <= 0 disables the limit.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
