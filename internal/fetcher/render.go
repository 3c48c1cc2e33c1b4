package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// RenderOptions configures the headless browser used for detail pages.
type RenderOptions struct {
	Identities         IdentitySource
	Timeout            time.Duration
	WaitForSelector    string
	MaxBodyBytes       int64
	DisableHeadless    bool
	ConcurrentSessions int
	CaptureDelay       time.Duration
	Challenge          ChallengeSignature
	Logger             *slog.Logger
}

// ChromedpRenderer executes headless Chrome sessions using chromedp. Each
// render launches its own browser so the proxy flag can differ per call.
type ChromedpRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
	logger    *slog.Logger
}

// NewChromedpRenderer constructs a renderer with bounded concurrency.
func NewChromedpRenderer(opts RenderOptions) *ChromedpRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 * 1024 * 1024
	}
	if opts.ConcurrentSessions <= 0 {
		opts.ConcurrentSessions = 1
	}
	if opts.Identities == nil {
		opts.Identities = directIdentities{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ChromedpRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentSessions),
		logger:    opts.Logger,
	}
}

// Render navigates to the target URL and exports the final DOM outer HTML.
func (r *ChromedpRenderer) Render(parentCtx context.Context, req Request) (*types.Page, error) {
	if req.URL == nil {
		return nil, &Error{Kind: KindHardFailure, Cause: errors.New("render request URL is nil")}
	}
	target := req.URL.String()

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-parentCtx.Done():
		return nil, &Error{Kind: KindHardFailure, URL: target, Cause: parentCtx.Err()}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	id := r.opts.Identities.Next()
	logger := r.logger.With("url", target, "identity", id.String())

	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", !r.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if ua := strings.TrimSpace(id.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}
	if id.ProxyURL != nil {
		execOpts = append(execOpts, chromedp.ProxyServer(id.ProxyURL.Scheme+"://"+id.ProxyURL.Host))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	start := time.Now()
	var html, finalURL string

	actions := []chromedp.Action{chromedp.Navigate(target)}
	if sel := strings.TrimSpace(r.opts.WaitForSelector); sel != "" {
		actions = append(actions,
			chromedp.WaitReady(sel, chromedp.ByQuery),
			chromedp.Sleep(250*time.Millisecond),
		)
	} else {
		delay := r.opts.CaptureDelay
		if delay <= 0 {
			delay = 1500 * time.Millisecond
		}
		actions = append(actions, chromedp.Sleep(delay))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	logger.Debug("chromedp starting render")
	if err := chromedp.Run(chromeCtx, actions...); err != nil {
		return nil, &Error{Kind: KindHardFailure, URL: target, Cause: fmt.Errorf("chromedp run: %w", err)}
	}

	if int64(len(html)) > r.opts.MaxBodyBytes {
		html = html[:r.opts.MaxBodyBytes]
	}
	body := []byte(html)
	if r.opts.Challenge.Matches(body) {
		return nil, &Error{Kind: KindSoftBlock, URL: target, StatusCode: 200, Cause: ErrChallenge}
	}

	parsedFinal := req.URL
	if finalURL != "" {
		if u, err := url.Parse(finalURL); err == nil {
			parsedFinal = u
		}
	}

	latency := time.Since(start)
	logger.Debug("chromedp render complete", "latency_ms", latency.Milliseconds(), "html_bytes", len(html))
	return &types.Page{
		URL:             req.URL,
		FinalURL:        parsedFinal,
		Body:            body,
		ContentType:     "text/html; charset=utf-8",
		StatusCode:      200,
		FetchedAt:       time.Now(),
		Rendered:        true,
		ResponseLatency: latency,
	}, nil
}
