// Package logging builds the process-wide slog.Logger from configuration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
)

// New returns a logger writing to stdout and, when enabled, to Fluent Bit.
// The returned closer releases the Fluent connection and is never nil.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit console destination.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var console slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json", "":
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource})
	case "text":
		console = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource})
	case "color":
		console = tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  cfg.AddSource,
			TimeFormat: "2006-01-02 15:04:05",
		})
	default:
		return nil, nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	if !cfg.Fluent.Enabled {
		return slog.New(console), nopCloser{}, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost:   cfg.Fluent.Host,
		FluentPort:   cfg.Fluent.Port,
		TagPrefix:    cfg.Fluent.TagPrefix,
		Async:        true,
		Timeout:      3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fluent client: %w", err)
	}

	fluentLevel := level
	if strings.TrimSpace(cfg.Fluent.Level) != "" {
		if fluentLevel, err = ParseLevel(cfg.Fluent.Level); err != nil {
			client.Close()
			return nil, nil, err
		}
	}

	handler := Fanout(console, NewFluentHandler(client, fluentLevel))
	return slog.New(handler), client, nil
}

// ParseLevel maps a configuration string to a slog level.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level %q", raw)
	}
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// CloseQuietly closes c and reports failures on stderr, since the logger may
// already be gone.
func CloseQuietly(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		fmt.Fprintf(os.Stderr, "close log sink: %v\n", err)
	}
}
