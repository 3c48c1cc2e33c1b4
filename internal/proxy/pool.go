// Package proxy rotates the egress identity (proxy endpoint and user agent)
// used for each outbound marketplace request.
package proxy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// Identity is the network persona used for one outbound call.
type Identity struct {
	ProxyURL  *url.URL
	UserAgent string
}

// Direct reports whether the identity bypasses any proxy.
func (i Identity) Direct() bool {
	return i.ProxyURL == nil
}

// String renders the identity without leaking proxy credentials.
func (i Identity) String() string {
	if i.ProxyURL == nil {
		return "direct"
	}
	return i.ProxyURL.Redacted()
}

// Pool hands out identities in round-robin order. It is safe for concurrent use.
type Pool struct {
	proxies    []*url.URL
	userAgents []string
	next       atomic.Uint64
}

// NewPool parses the configured proxy URLs. An empty list yields a pool that
// always returns direct identities.
func NewPool(rawURLs []string, userAgents []string) (*Pool, error) {
	proxies := make([]*url.URL, 0, len(rawURLs))
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		switch parsed.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("proxy %q: unsupported scheme %q", parsed.Redacted(), parsed.Scheme)
		}
		if parsed.Host == "" {
			return nil, fmt.Errorf("proxy %q: missing host", parsed.Redacted())
		}
		proxies = append(proxies, parsed)
	}
	return &Pool{
		proxies:    proxies,
		userAgents: append([]string(nil), userAgents...),
	}, nil
}

// Size reports how many proxies are configured.
func (p *Pool) Size() int {
	return len(p.proxies)
}

// Next returns the next identity. Successive calls cycle through every proxy
// before repeating one.
func (p *Pool) Next() Identity {
	n := p.next.Add(1) - 1
	var id Identity
	if len(p.proxies) > 0 {
		id.ProxyURL = p.proxies[n%uint64(len(p.proxies))]
	}
	if len(p.userAgents) > 0 {
		id.UserAgent = p.userAgents[n%uint64(len(p.userAgents))]
	}
	return id
}

type ctxKey struct{}

// WithIdentity attaches id to ctx so the transport can route through it.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
