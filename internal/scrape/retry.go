package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/fetcher"
	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// ErrRetriesExhausted wraps the last soft block once every retry was spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy re-issues a fetch while it is soft-blocked. Retries are
// immediate; every attempt goes through the fetcher and so gets a fresh
// egress identity.
type RetryPolicy struct {
	MaxRetries int
	Logger     *slog.Logger
}

// FetchFunc performs one attempt. attempt starts at 1.
type FetchFunc func(ctx context.Context, attempt int) (*types.Page, error)

// Do runs op at most MaxRetries+1 times. Hard failures are returned at once.
func (p RetryPolicy) Do(ctx context.Context, label string, op FetchFunc) (*types.Page, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, errors.Join(err, lastErr)
			}
			return nil, err
		}

		page, err := op(ctx, attempt)
		switch fetcher.Classify(err) {
		case fetcher.OutcomeSuccess:
			return page, nil
		case fetcher.OutcomeHardFailure:
			return nil, err
		}

		lastErr = err
		if attempt <= maxRetries {
			logger.Warn("soft block detected, retrying",
				"target", label,
				"attempt", attempt,
				"max_retries", maxRetries,
			)
		}
	}
	return nil, fmt.Errorf("%s: %w after %d attempts: %w", label, ErrRetriesExhausted, maxRetries+1, lastErr)
}
