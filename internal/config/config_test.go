package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.normalise()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []int{60, 120, 240}, cfg.Marketplace.PageSizeTiers)
	assert.Equal(t, 10, cfg.Marketplace.DefaultPageSize)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 5, cfg.Stream.BatchSize)
	assert.Equal(t, 20*time.Second, cfg.Fetch.ListingTimeout.Duration)
	assert.Equal(t, 60*time.Second, cfg.Fetch.DetailTimeout.Duration)
	assert.False(t, cfg.Summarizer.SummarizerEnabled())
}

func TestDecodeYAMLOverridesDefaults(t *testing.T) {
	cfg := Default()
	err := decodeYAML(strings.NewReader(`
server:
  addr: ":9090"
marketplace:
  page_size_tiers: [240, 60, 120, 60]
fetch:
  listing_timeout: 5000
  detail_timeout: 1m
proxy:
  urls:
    - " http://p1:8080 "
    - ""
stream:
  batch_size: 2
summarizer:
  provider: Gemini
  api_key: secret
`), &cfg)
	require.NoError(t, err)
	cfg.normalise()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []int{60, 120, 240}, cfg.Marketplace.PageSizeTiers)
	assert.Equal(t, 5*time.Second, cfg.Fetch.ListingTimeout.Duration)
	assert.Equal(t, time.Minute, cfg.Fetch.DetailTimeout.Duration)
	assert.Equal(t, []string{"http://p1:8080"}, cfg.Proxy.URLs)
	assert.Equal(t, 2, cfg.Stream.BatchSize)
	assert.True(t, cfg.Summarizer.SummarizerEnabled())
}

func TestDecodeYAMLRejectsUnknownFields(t *testing.T) {
	cfg := Default()
	err := decodeYAML(strings.NewReader("unknown_section: true\n"), &cfg)
	require.Error(t, err)
}

func TestDecodeYAMLRejectsRemovedPageSizeKeys(t *testing.T) {
	for _, doc := range []string{
		"marketplace:\n  max_page_size: 240\n",
		"stream:\n  fetch_all_page_size: 240\n",
	} {
		cfg := Default()
		assert.Error(t, decodeYAML(strings.NewReader(doc), &cfg), doc)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":           "5000",
		"PROXY_URLS":     "http://a:1,http://b:2",
		"GEMINI_API_KEY": "k",
		"BATCH_SIZE":     "7",
		"MAX_RETRIES":    "0",
		"LOG_LEVEL":      "DEBUG",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	cfg.normalise()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://a:1", "http://b:2"}, cfg.Proxy.URLs)
	assert.Equal(t, "k", cfg.Summarizer.APIKey)
	assert.Equal(t, 7, cfg.Stream.BatchSize)
	assert.Equal(t, 0, cfg.Retry.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvRejectsBadInteger(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(key string) (string, bool) {
		if key == "BATCH_SIZE" {
			return "many", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero batch":        func(c *Config) { c.Stream.BatchSize = 0 },
		"negative retries":  func(c *Config) { c.Retry.MaxRetries = -1 },
		"no tiers":          func(c *Config) { c.Marketplace.PageSizeTiers = nil },
		"bad format":        func(c *Config) { c.Logging.Format = "xml" },
		"bad provider":      func(c *Config) { c.Summarizer.Provider = "openai" },
		"fluent sans host":  func(c *Config) { c.Logging.Fluent.Enabled = true },
		"default too big":   func(c *Config) { c.Marketplace.DefaultPageSize = 241 },
		"tier too big":      func(c *Config) { c.Marketplace.PageSizeTiers = []int{60, 500} },
		"tier not positive": func(c *Config) { c.Marketplace.PageSizeTiers = []int{0, 60} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationParsing(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)

	require.NoError(t, d.UnmarshalJSON([]byte(`"2s"`)))
	assert.Equal(t, 2*time.Second, d.Duration)

	require.NoError(t, d.UnmarshalJSON([]byte(`250`)))
	assert.Equal(t, 250*time.Millisecond, d.Duration)

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../configs/config.yaml")
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.Marketplace.PageSizeTiers, cfg.Marketplace.PageSizeTiers)
	assert.Equal(t, defaults.Marketplace.Selectors, cfg.Marketplace.Selectors)
	assert.Equal(t, defaults.Preprocess.DropSelectors, cfg.Preprocess.DropSelectors)
	assert.Equal(t, "en-US,en;q=0.9", cfg.Fetch.Headers["Accept-Language"])
	assert.Equal(t, 15*time.Second, cfg.Stream.HeartbeatInterval.Duration)
	assert.False(t, cfg.Fetch.RateLimit.Enabled())
}
