package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
)

type recordingPoster struct {
	mu    sync.Mutex
	tags  []string
	posts []map[string]any
	err   error
}

func (p *recordingPoster) Post(tag string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = append(p.tags, tag)
	p.posts = append(p.posts, message.(map[string]any))
	return p.err
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("fetching", "url", "https://example.com")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetching", line["msg"])
	assert.Equal(t, "https://example.com", line["url"])
}

func TestNewWithWriterRejectsUnknownLevel(t *testing.T) {
	_, _, err := NewWithWriter(config.LoggingConfig{Level: "loud", Format: "json"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestNewWithWriterColorHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "color"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFluentHandlerPostsByLevel(t *testing.T) {
	poster := &recordingPoster{}
	logger := slog.New(NewFluentHandler(poster, slog.LevelInfo)).With("component", "scrape")

	logger.Debug("dropped")
	logger.WithGroup("req").Warn("soft block", "attempt", 2, "err", errors.New("challenge"))

	require.Len(t, poster.posts, 1)
	assert.Equal(t, "warn", poster.tags[0])
	post := poster.posts[0]
	assert.Equal(t, "soft block", post["message"])
	assert.Equal(t, "scrape", post["component"])
	assert.EqualValues(t, 2, post["req.attempt"])
	assert.Equal(t, "challenge", post["req.err"])
	assert.NotEmpty(t, post["timestamp"])
}

func TestFluentHandlerSwallowsPostErrors(t *testing.T) {
	poster := &recordingPoster{err: errors.New("connection refused")}
	logger := slog.New(NewFluentHandler(poster, nil))
	assert.NotPanics(t, func() { logger.Error("boom") })
	assert.Len(t, poster.posts, 1)
}

func TestFanoutWritesEverywhere(t *testing.T) {
	var buf bytes.Buffer
	poster := &recordingPoster{}
	logger := slog.New(Fanout(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		NewFluentHandler(poster, slog.LevelError),
	))

	logger.Info("console only")
	logger.Error("both")

	assert.Contains(t, buf.String(), "console only")
	assert.Contains(t, buf.String(), "both")
	require.Len(t, poster.posts, 1)
	assert.Equal(t, "both", poster.posts[0]["message"])
}

func TestContextLogger(t *testing.T) {
	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	var buf bytes.Buffer
	scoped := slog.New(slog.NewJSONHandler(&buf, nil)).With("trace_id", "abc")
	ctx := IntoContext(context.Background(), scoped)
	FromContext(ctx, fallback).Info("hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "abc", rec["trace_id"])
}
