package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/proxy"
	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// Fetcher retrieves a single marketplace page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*types.Page, error)
}

// IdentitySource yields the egress identity for the next outbound call.
type IdentitySource interface {
	Next() proxy.Identity
}

// Request describes one outbound fetch.
type Request struct {
	URL     *url.URL
	Timeout time.Duration
	// Render asks for a JavaScript-rendered DOM when a renderer is configured.
	Render bool
}

// Options controls HTTP fetching behaviour.
type Options struct {
	Identities     IdentitySource
	Headers        map[string]string
	DefaultTimeout time.Duration
	MaxBodyBytes   int64
	Challenge      ChallengeSignature
	Limiter        *HostLimiter
	Logger         *slog.Logger
}

// HTTPFetcher implements Fetcher via the Go http.Client. A single transport is
// shared by all calls; the proxy for each call is read from the request context.
type HTTPFetcher struct {
	client         *http.Client
	identities     IdentitySource
	extraHeaders   map[string]string
	defaultTimeout time.Duration
	maxBodyBytes   int64
	challenge      ChallengeSignature
	limiter        *HostLimiter
	logger         *slog.Logger
}

// NewHTTPFetcher constructs an HTTP fetcher using the provided options.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 20 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 * 1024 * 1024
	}
	if opts.Identities == nil {
		opts.Identities = directIdentities{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport := &http.Transport{
		Proxy:                 proxyFromContext,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPFetcher{
		client:         &http.Client{Transport: transport},
		identities:     opts.Identities,
		extraHeaders:   headers,
		defaultTimeout: opts.DefaultTimeout,
		maxBodyBytes:   opts.MaxBodyBytes,
		challenge:      opts.Challenge,
		limiter:        opts.Limiter,
		logger:         opts.Logger,
	}
}

func proxyFromContext(req *http.Request) (*url.URL, error) {
	if id, ok := proxy.FromContext(req.Context()); ok && id.ProxyURL != nil {
		return id.ProxyURL, nil
	}
	return nil, nil
}

// Fetch downloads a single URL with a fresh egress identity and classifies the result.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*types.Page, error) {
	if req.URL == nil {
		return nil, &Error{Kind: KindHardFailure, Cause: errors.New("request URL is nil")}
	}
	target := req.URL.String()

	if err := f.limiter.Wait(ctx, req.URL.Hostname()); err != nil {
		return nil, &Error{Kind: KindHardFailure, URL: target, Cause: err}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	id := f.identities.Next()
	ctx = proxy.WithIdentity(ctx, id)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Kind: KindHardFailure, URL: target, Cause: fmt.Errorf("build request: %w", err)}
	}

	if id.UserAgent != "" {
		httpReq.Header.Set("User-Agent", id.UserAgent)
	}
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for k, v := range f.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	f.logger.Debug("fetching", "url", target, "identity", id.String(), "timeout", timeout.String())

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindHardFailure, URL: target, Cause: fmt.Errorf("http fetch failed: %w", err)}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, &Error{Kind: KindHardFailure, URL: target, StatusCode: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:       KindHardFailure,
			URL:        target,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if f.challenge.Matches(body) {
		return nil, &Error{Kind: KindSoftBlock, URL: target, StatusCode: resp.StatusCode, Cause: ErrChallenge}
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return &types.Page{
		URL:             req.URL,
		FinalURL:        finalURL,
		Body:            body,
		ContentType:     resp.Header.Get("Content-Type"),
		StatusCode:      resp.StatusCode,
		Headers:         resp.Header.Clone(),
		FetchedAt:       time.Now(),
		ResponseLatency: time.Since(start),
	}, nil
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}
	return body, nil
}

type directIdentities struct{}

func (directIdentities) Next() proxy.Identity { return proxy.Identity{} }

// Renderer executes JavaScript and returns the rendered DOM.
type Renderer interface {
	Render(ctx context.Context, req Request) (*types.Page, error)
}

// Composite chooses between raw HTTP and a renderer per request.
type Composite struct {
	defaultFetcher Fetcher
	renderer       Renderer
	logger         *slog.Logger
}

// NewComposite builds a composite fetcher from HTTP and optional renderer components.
func NewComposite(httpFetcher Fetcher, renderer Renderer, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{defaultFetcher: httpFetcher, renderer: renderer, logger: logger}
}

// Fetch delegates to the renderer when requested. Hard renderer failures fall
// back to plain HTTP; soft blocks are returned as-is so the caller can retry.
func (c *Composite) Fetch(ctx context.Context, req Request) (*types.Page, error) {
	if req.Render && c.renderer != nil {
		page, err := c.renderer.Render(ctx, req)
		if err == nil || Classify(err) == OutcomeSoftBlock || ctx.Err() != nil {
			return page, err
		}
		c.logger.Warn("renderer failed, falling back to HTTP fetch", "url", req.URL.String(), "error", err)
	}
	req.Render = false
	return c.defaultFetcher.Fetch(ctx, req)
}
