// Package app assembles the scraping pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/fetcher"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/proxy"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/scrape"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/summarize"
)

// NewEngine builds the identity pool, fetchers and summarizer described by cfg
// and returns a ready scrape engine.
func NewEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (*scrape.Engine, error) {
	pool, err := proxy.NewPool(cfg.Proxy.URLs, cfg.Fetch.UserAgents)
	if err != nil {
		return nil, fmt.Errorf("proxy pool: %w", err)
	}
	logger.Info("identity pool ready", "proxies", pool.Size(), "user_agents", len(cfg.Fetch.UserAgents))

	challenge := fetcher.ChallengeSignature{
		Titles: cfg.Marketplace.ChallengeTitles,
		Bodies: cfg.Marketplace.ChallengeBodies,
	}
	limiter := fetcher.NewHostLimiter(cfg.Fetch.PerHostDelay.Duration, fetcher.RateLimit{
		Requests: cfg.Fetch.RateLimit.Requests,
		Window:   cfg.Fetch.RateLimit.Window.Duration,
	})

	if cfg.Fetch.RateLimit.Enabled() {
		logger.Info("per-host rate limit enabled", "requests", cfg.Fetch.RateLimit.Requests, "window", cfg.Fetch.RateLimit.Window.String())
	}

	var f fetcher.Fetcher = fetcher.NewHTTPFetcher(fetcher.Options{
		Identities:     pool,
		Headers:        cfg.Fetch.Headers,
		DefaultTimeout: cfg.Fetch.ListingTimeout.Duration,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		Challenge:      challenge,
		Limiter:        limiter,
		Logger:         logger.With("component", "fetcher"),
	})

	if cfg.Rendering.Enabled {
		renderer := fetcher.NewChromedpRenderer(fetcher.RenderOptions{
			Identities:         pool,
			Timeout:            cfg.Rendering.Timeout.Duration,
			WaitForSelector:    cfg.Rendering.WaitForSelector,
			MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
			DisableHeadless:    cfg.Rendering.DisableHeadless,
			ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
			Challenge:          challenge,
			Logger:             logger.With("component", "renderer"),
		})
		f = fetcher.NewComposite(f, renderer, logger.With("component", "fetcher"))
		logger.Info("detail page rendering enabled", "sessions", cfg.Rendering.ConcurrentSessions)
	}

	summarizer, err := summarize.New(ctx, cfg.Summarizer, logger.With("component", "summarizer"))
	if err != nil {
		return nil, fmt.Errorf("summarizer: %w", err)
	}

	engine, err := scrape.NewEngine(f, summarizer, scrape.OptionsFromConfig(cfg), logger.With("component", "engine"))
	if err != nil {
		return nil, fmt.Errorf("scrape engine: %w", err)
	}
	return engine, nil
}
