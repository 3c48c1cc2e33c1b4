package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/extract"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/fetcher"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/summarize"
	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// Enricher attaches a description to a listing item by following its detail
// page to the embedded description document.
type Enricher struct {
	fetcher       fetcher.Fetcher
	summarizer    summarize.Summarizer
	retry         RetryPolicy
	timeout       time.Duration
	render        bool
	frameSelector string
	dropSelectors []string
	logger        *slog.Logger
}

// Enrich never fails: any problem yields the "-" description.
func (e *Enricher) Enrich(ctx context.Context, logger *slog.Logger, item types.ListingItem) types.DetailedItem {
	out := types.DetailedItem{ListingItem: item, Description: types.Missing}
	if logger == nil {
		logger = e.logger
	}
	logger = logger.With("title", item.Title, "link", item.Link)

	description, err := e.describe(ctx, logger, item)
	if err != nil {
		logger.Error("failed to scrape item description", "error", err)
		return out
	}
	if description == "" {
		logger.Debug("item has no description")
		return out
	}
	out.Description = description
	return out
}

func (e *Enricher) describe(ctx context.Context, logger *slog.Logger, item types.ListingItem) (string, error) {
	detailURL, err := url.Parse(item.Link)
	if err != nil {
		return "", fmt.Errorf("parse item link: %w", err)
	}

	detail, err := e.fetch(ctx, logger, "detail", detailURL, e.render)
	if err != nil {
		return "", err
	}

	frameSrc, ok := extract.DescriptionFrame(detail.Body, detail.BaseURL(), e.frameSelector)
	if !ok {
		return "", nil
	}
	frameURL, err := url.Parse(frameSrc)
	if err != nil {
		return "", fmt.Errorf("parse description frame url: %w", err)
	}

	frame, err := e.fetch(ctx, logger, "description", frameURL, false)
	if err != nil {
		return "", err
	}

	text := extract.DescriptionText(frame.Body, e.dropSelectors)
	if text == "" {
		return "", nil
	}
	return e.summarizer.Summarize(ctx, text), nil
}

func (e *Enricher) fetch(ctx context.Context, logger *slog.Logger, label string, target *url.URL, render bool) (*types.Page, error) {
	retry := e.retry
	retry.Logger = logger
	return retry.Do(ctx, label+" "+target.String(), func(ctx context.Context, attempt int) (*types.Page, error) {
		logger.Debug("fetching "+label, "url", target.String(), "attempt", attempt)
		return e.fetcher.Fetch(ctx, fetcher.Request{URL: target, Timeout: e.timeout, Render: render})
	})
}
