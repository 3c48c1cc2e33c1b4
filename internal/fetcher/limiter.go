package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit configures token-bucket style rate limiting per host.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// HostLimiter spaces outbound calls per host by a fixed delay and an optional
// token bucket. A nil *HostLimiter never blocks.
type HostLimiter struct {
	delay       time.Duration
	rate        RateLimit
	rateEnabled bool

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns nil when neither a delay nor a rate limit is configured.
func NewHostLimiter(delay time.Duration, rateCfg RateLimit) *HostLimiter {
	if delay <= 0 && (rateCfg.Requests <= 0 || rateCfg.Window <= 0) {
		return nil
	}
	limiter := &HostLimiter{delay: delay, last: make(map[string]time.Time)}
	if rateCfg.Requests > 0 && rateCfg.Window > 0 {
		limiter.rateEnabled = true
		limiter.rate = rateCfg
		limiter.limiters = make(map[string]*rate.Limiter)
	}
	return limiter
}

// Wait blocks until the host may be contacted again or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	var limiter *rate.Limiter
	now := time.Now()

	h.mu.Lock()
	if h.delay > 0 {
		if last, ok := h.last[host]; ok {
			if rest := last.Add(h.delay).Sub(now); rest > 0 {
				sleep = rest
			}
		}
		// Reserve the slot before sleeping so concurrent callers queue behind us.
		h.last[host] = now.Add(sleep)
	}
	if h.rateEnabled {
		limiter = h.limiterLocked(host)
	}
	h.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		return limiter.Wait(ctx)
	}
	return nil
}

func (h *HostLimiter) limiterLocked(host string) *rate.Limiter {
	if limiter, ok := h.limiters[host]; ok {
		return limiter
	}
	interval := h.rate.Window / time.Duration(h.rate.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), h.rate.Requests)
	h.limiters[host] = limiter
	return limiter
}
