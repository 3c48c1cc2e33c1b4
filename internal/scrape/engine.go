// Package scrape runs the listing pagination loop and streams its results.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/extract"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/fetcher"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/logging"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/stream"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/summarize"
	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// Options tunes the engine.
type Options struct {
	SearchURL  string
	ExtraQuery map[string]string
	// Tiers are the page sizes the marketplace accepts. Fetch-all mode always
	// requests the largest.
	Tiers          []int
	BatchSize      int
	MaxRetries     int
	ListingTimeout time.Duration
	DetailTimeout  time.Duration
	RenderDetails  bool
	Selectors      extract.Selectors
	DropSelectors  []string
}

// OptionsFromConfig maps service configuration onto engine options.
func OptionsFromConfig(cfg config.Config) Options {
	sel := cfg.Marketplace.Selectors
	return Options{
		SearchURL:      cfg.Marketplace.SearchURL,
		ExtraQuery:     cfg.Marketplace.ExtraQuery,
		Tiers:          cfg.Marketplace.PageSizeTiers,
		BatchSize:      cfg.Stream.BatchSize,
		MaxRetries:     cfg.Retry.MaxRetries,
		ListingTimeout: cfg.Fetch.ListingTimeout.Duration,
		DetailTimeout:  cfg.Fetch.DetailTimeout.Duration,
		RenderDetails:  cfg.Rendering.Enabled,
		Selectors: extract.Selectors{
			Card:             sel.Card,
			Title:            sel.Title,
			Price:            sel.Price,
			Link:             sel.Link,
			Image:            sel.Image,
			DescriptionFrame: sel.DescriptionFrame,
			PlaceholderTitle: cfg.Marketplace.PlaceholderTitle,
		},
		DropSelectors: cfg.Preprocess.DropSelectors,
	}
}

// Engine drives one scrape request from the first listing page to the
// terminal done event. It holds no per-request state and may be shared.
type Engine struct {
	fetcher  fetcher.Fetcher
	enricher *Enricher
	opts     Options
	base     *url.URL
	logger   *slog.Logger
}

// NewEngine wires the engine. A nil summarizer disables summarization.
func NewEngine(f fetcher.Fetcher, s summarize.Summarizer, opts Options, logger *slog.Logger) (*Engine, error) {
	if f == nil {
		return nil, errors.New("fetcher is required")
	}
	if s == nil {
		s = summarize.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SearchURL == "" {
		opts.SearchURL = "https://www.ebay.com/sch/i.html"
	}
	base, err := url.Parse(opts.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	if len(opts.Tiers) == 0 {
		opts.Tiers = DefaultTiers
	}
	opts.Tiers = append([]int(nil), opts.Tiers...)
	sort.Ints(opts.Tiers)
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.ListingTimeout <= 0 {
		opts.ListingTimeout = 20 * time.Second
	}
	if opts.DetailTimeout <= 0 {
		opts.DetailTimeout = 60 * time.Second
	}
	if opts.Selectors.Card == "" {
		opts.Selectors = extract.DefaultSelectors()
	}

	retry := RetryPolicy{MaxRetries: opts.MaxRetries, Logger: logger}
	return &Engine{
		fetcher: f,
		enricher: &Enricher{
			fetcher:       f,
			summarizer:    s,
			retry:         retry,
			timeout:       opts.DetailTimeout,
			render:        opts.RenderDetails,
			frameSelector: opts.Selectors.DescriptionFrame,
			dropSelectors: opts.DropSelectors,
			logger:        logger,
		},
		opts:   opts,
		base:   base,
		logger: logger,
	}, nil
}

// Run validates req and streams meta/batch events to sink until the last page,
// then sends done. A validation error is returned before anything is emitted.
// Sink failures and cancellation end the stream without done.
func (e *Engine) Run(ctx context.Context, req Request, sink stream.Sink) error {
	if err := req.Validate(); err != nil {
		return err
	}

	emitter := stream.NewEmitter(sink)
	page := req.Page
	perPage := TierFor(req.PageSize, e.opts.Tiers)
	metaSize := req.PageSize
	if req.FetchAll {
		page = 1
		perPage = e.opts.Tiers[len(e.opts.Tiers)-1]
		metaSize = perPage
	}

	logger := logging.FromContext(ctx, e.logger).With("search", req.SearchTerm, "fetch_all", req.FetchAll, "fetch_details", req.FetchDetails)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		items := e.listing(ctx, logger, req.SearchTerm, page, perPage)
		if !req.FetchAll && len(items) > req.PageSize {
			items = items[:req.PageSize]
		}
		if len(items) == 0 {
			break
		}
		logger.Info("listing page scraped", "page", page, "items", len(items))

		if err := emitter.Meta(types.PageMeta{Page: page, PageSize: metaSize, ItemCount: len(items)}); err != nil {
			return fmt.Errorf("emit meta: %w", err)
		}

		if err := e.emitItems(ctx, logger, emitter, items, req.FetchDetails); err != nil {
			return err
		}

		if !req.FetchAll {
			break
		}
		page++
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := emitter.Done(); err != nil {
		return fmt.Errorf("emit done: %w", err)
	}
	return nil
}

// listing fetches and parses one results page. Failures degrade to no items.
func (e *Engine) listing(ctx context.Context, logger *slog.Logger, term string, page, perPage int) []types.ListingItem {
	target := ListingURL(e.base, e.opts.ExtraQuery, term, page, perPage)
	logger = logger.With("page", page, "url", target.String())

	retry := RetryPolicy{MaxRetries: e.opts.MaxRetries, Logger: logger}
	result, err := retry.Do(ctx, "listing", func(ctx context.Context, attempt int) (*types.Page, error) {
		logger.Debug("fetching listing page", "attempt", attempt)
		return e.fetcher.Fetch(ctx, fetcher.Request{URL: target, Timeout: e.opts.ListingTimeout})
	})
	if err != nil {
		logger.Error("failed to fetch listing page", "error", err)
		return nil
	}

	items, err := extract.Listing(result.Body, result.BaseURL(), e.opts.Selectors)
	if err != nil {
		logger.Error("failed to parse listing page", "error", err)
		return nil
	}
	return items
}

func (e *Engine) emitItems(ctx context.Context, logger *slog.Logger, emitter *stream.Emitter, items []types.ListingItem, details bool) error {
	if !details {
		if err := emitter.Listings(items); err != nil {
			return fmt.Errorf("emit batch: %w", err)
		}
		return nil
	}

	batch := make([]types.DetailedItem, 0, e.opts.BatchSize)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, e.enricher.Enrich(ctx, logger, item))
		if len(batch) == e.opts.BatchSize {
			if err := emitter.Details(batch); err != nil {
				return fmt.Errorf("emit batch: %w", err)
			}
			batch = make([]types.DetailedItem, 0, e.opts.BatchSize)
		}
	}
	if len(batch) > 0 {
		if err := emitter.Details(batch); err != nil {
			return fmt.Errorf("emit batch: %w", err)
		}
	}
	return nil
}
