package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// Config captures the full configuration required to run the scrape service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Proxy       ProxyConfig       `yaml:"proxy"`
	Retry       RetryConfig       `yaml:"retry"`
	Stream      StreamConfig      `yaml:"stream"`
	Preprocess  PreprocessConfig  `yaml:"preprocess"`
	Rendering   RenderingConfig   `yaml:"rendering"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig controls the inbound HTTP listener.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
}

// MarketplaceConfig describes the search endpoint and the markup of its pages.
type MarketplaceConfig struct {
	SearchURL        string            `yaml:"search_url"`
	PageSizeTiers    []int             `yaml:"page_size_tiers"`
	DefaultPageSize  int               `yaml:"default_page_size"`
	PlaceholderTitle string            `yaml:"placeholder_title"`
	Selectors        SelectorConfig    `yaml:"selectors"`
	ChallengeTitles  []string          `yaml:"challenge_titles"`
	ChallengeBodies  []string          `yaml:"challenge_bodies"`
	ExtraQuery       map[string]string `yaml:"extra_query"`
}

// SelectorConfig holds the CSS selectors used by the extractor.
type SelectorConfig struct {
	Card             string `yaml:"card"`
	Title            string `yaml:"title"`
	Price            string `yaml:"price"`
	Link             string `yaml:"link"`
	Image            string `yaml:"image"`
	DescriptionFrame string `yaml:"description_frame"`
}

// FetchConfig controls outbound HTTP behaviour.
type FetchConfig struct {
	ListingTimeout Duration          `yaml:"listing_timeout"`
	DetailTimeout  Duration          `yaml:"detail_timeout"`
	UserAgents     []string          `yaml:"user_agents"`
	Headers        map[string]string `yaml:"headers"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	PerHostDelay   Duration          `yaml:"per_host_delay"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit_per_host"`
}

// RateLimitConfig applies a token bucket per host.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// ProxyConfig lists the egress proxies rotated across outbound calls.
type ProxyConfig struct {
	URLs []string `yaml:"urls"`
}

// RetryConfig bounds soft-block retries.
type RetryConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// StreamConfig tunes the event stream.
type StreamConfig struct {
	BatchSize         int      `yaml:"batch_size"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
}

// PreprocessConfig configures description HTML sanitisation.
type PreprocessConfig struct {
	DropSelectors []string `yaml:"drop_selectors"`
}

// RenderingConfig controls optional JavaScript rendering of detail pages.
type RenderingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Timeout            Duration `yaml:"timeout"`
	WaitForSelector    string   `yaml:"wait_for_selector"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	DisableHeadless    bool     `yaml:"disable_headless"`
}

// SummarizerConfig selects the description summarizer.
type SummarizerConfig struct {
	Provider        string   `yaml:"provider"`
	APIKey          string   `yaml:"api_key"`
	Model           string   `yaml:"model"`
	BaseURL         string   `yaml:"base_url"`
	MaxInputChars   int      `yaml:"max_input_chars"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Timeout         Duration `yaml:"timeout"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level     string       `yaml:"level"`
	Format    string       `yaml:"format"`
	AddSource bool         `yaml:"add_source"`
	Fluent    FluentConfig `yaml:"fluent"`
}

// FluentConfig enables shipping log records to Fluent Bit.
type FluentConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TagPrefix string `yaml:"tag_prefix"`
	Level     string `yaml:"level"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":4000",
			AllowedOrigins:    []string{"*"},
			ReadHeaderTimeout: DurationFrom(10 * time.Second),
			ShutdownTimeout:   DurationFrom(15 * time.Second),
		},
		Marketplace: MarketplaceConfig{
			SearchURL:        "https://www.ebay.com/sch/i.html",
			PageSizeTiers:    []int{60, 120, 240},
			DefaultPageSize:  10,
			PlaceholderTitle: "shop on ebay",
			Selectors: SelectorConfig{
				Card:             ".s-item",
				Title:            ".s-item__title",
				Price:            ".s-item__price",
				Link:             "a.s-item__link",
				Image:            ".s-item__image-wrapper img",
				DescriptionFrame: "#desc_ifr",
			},
			ChallengeTitles: []string{"Pardon Our Interruption"},
			ChallengeBodies: []string{"Checking your browser"},
			ExtraQuery: map[string]string{
				"_from":  "R40",
				"_sacat": "0",
				"rt":     "nc",
			},
		},
		Fetch: FetchConfig{
			ListingTimeout: DurationFrom(20 * time.Second),
			DetailTimeout:  DurationFrom(60 * time.Second),
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
			},
			Headers:      map[string]string{},
			MaxBodyBytes: 8 * 1024 * 1024,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
		},
		Stream: StreamConfig{
			BatchSize:         5,
			HeartbeatInterval: DurationFrom(15 * time.Second),
		},
		Preprocess: PreprocessConfig{
			DropSelectors: []string{
				"script", "style", "noscript", "meta", "iframe", "link",
				"[onclick]", "[onmouseover]", `[style*="display:none"]`, `[aria-hidden="true"]`,
				`[class*="ads"]`, `[id*="ads"]`, `[class*="social"]`, `[id*="social"]`,
			},
		},
		Rendering: RenderingConfig{
			Enabled:            false,
			Timeout:            DurationFrom(60 * time.Second),
			ConcurrentSessions: 1,
		},
		Summarizer: SummarizerConfig{
			Provider:        "gemini",
			Model:           "gemini-2.0-flash",
			MaxInputChars:   12000,
			MaxOutputTokens: 256,
			Timeout:         DurationFrom(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Fluent: FluentConfig{
				Port:      24224,
				TagPrefix: "ebay-scraper",
				Level:     "info",
			},
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer fh.Close()
		if err := decodeYAML(fh, &cfg); err != nil {
			return nil, err
		}
	}
	return finalise(cfg)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	return finalise(cfg)
}

func finalise(cfg Config) (*Config, error) {
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// applyEnv overlays process environment on top of file values.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ADDR"); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = v
	} else if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = ":" + strings.TrimSpace(v)
	}
	if v, ok := lookup("PROXY_URLS"); ok {
		c.Proxy.URLs = strings.Split(v, ",")
	}
	if v, ok := lookup("GEMINI_API_KEY"); ok {
		c.Summarizer.APIKey = v
	}
	if v, ok := lookup("GEMINI_MODEL"); ok && strings.TrimSpace(v) != "" {
		c.Summarizer.Model = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && strings.TrimSpace(v) != "" {
		c.Logging.Format = v
	}
	for key, dst := range map[string]*int{
		"BATCH_SIZE":  &c.Stream.BatchSize,
		"MAX_RETRIES": &c.Retry.MaxRetries,
	} {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate enforces required invariants for the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if strings.TrimSpace(c.Marketplace.SearchURL) == "" {
		return errors.New("marketplace.search_url must be set")
	}
	if len(c.Marketplace.PageSizeTiers) == 0 {
		return errors.New("marketplace.page_size_tiers must include at least one value")
	}
	for _, tier := range c.Marketplace.PageSizeTiers {
		if tier <= 0 || tier > types.MaxPageSize {
			return fmt.Errorf("marketplace.page_size_tiers must be within [1,%d] (got %d)", types.MaxPageSize, tier)
		}
	}
	if c.Marketplace.DefaultPageSize <= 0 || c.Marketplace.DefaultPageSize > types.MaxPageSize {
		return fmt.Errorf("marketplace.default_page_size must be within [1,%d] (got %d)", types.MaxPageSize, c.Marketplace.DefaultPageSize)
	}
	if strings.TrimSpace(c.Marketplace.Selectors.Card) == "" {
		return errors.New("marketplace.selectors.card must be set")
	}
	if c.Fetch.ListingTimeout.Duration <= 0 {
		return fmt.Errorf("fetch.listing_timeout must be > 0 (got %s)", c.Fetch.ListingTimeout)
	}
	if c.Fetch.DetailTimeout.Duration <= 0 {
		return fmt.Errorf("fetch.detail_timeout must be > 0 (got %s)", c.Fetch.DetailTimeout)
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0 (got %d)", c.Fetch.MaxBodyBytes)
	}
	if rl := c.Fetch.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("fetch.rate_limit_per_host.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0 (got %d)", c.Retry.MaxRetries)
	}
	if c.Stream.BatchSize <= 0 {
		return fmt.Errorf("stream.batch_size must be > 0 (got %d)", c.Stream.BatchSize)
	}
	switch c.Summarizer.Provider {
	case "", "none", "gemini":
	default:
		return fmt.Errorf("unsupported summarizer provider %q", c.Summarizer.Provider)
	}
	switch c.Logging.Format {
	case "json", "text", "color":
	default:
		return fmt.Errorf("unsupported logging.format %q", c.Logging.Format)
	}
	if c.Logging.Fluent.Enabled && c.Logging.Fluent.Host == "" {
		return errors.New("logging.fluent.host must be set when logging.fluent.enabled is true")
	}
	return nil
}

func (c *Config) normalise() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Marketplace.SearchURL = strings.TrimSpace(c.Marketplace.SearchURL)
	c.Marketplace.PlaceholderTitle = strings.ToLower(strings.TrimSpace(c.Marketplace.PlaceholderTitle))

	tiers := append([]int(nil), c.Marketplace.PageSizeTiers...)
	sort.Ints(tiers)
	c.Marketplace.PageSizeTiers = dedupeInts(tiers)

	c.Proxy.URLs = trimNonEmpty(c.Proxy.URLs)
	c.Fetch.UserAgents = trimNonEmpty(c.Fetch.UserAgents)
	if c.Fetch.Headers == nil {
		c.Fetch.Headers = make(map[string]string)
	}

	c.Summarizer.Provider = strings.ToLower(strings.TrimSpace(c.Summarizer.Provider))
	c.Summarizer.APIKey = strings.TrimSpace(c.Summarizer.APIKey)
	c.Summarizer.Model = strings.TrimSpace(c.Summarizer.Model)

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// SummarizerEnabled reports whether descriptions should be sent to the LLM.
func (s SummarizerConfig) SummarizerEnabled() bool {
	if s.Provider == "" || s.Provider == "none" {
		return false
	}
	return s.APIKey != ""
}

// Enabled reports whether per-host rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

func trimNonEmpty(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		cleaned = append(cleaned, v)
	}
	return cleaned
}

func dedupeInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
