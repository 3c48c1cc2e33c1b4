package summarize

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/logging"
)

func newGeminiServer(t *testing.T, status int, reply string, seen *atomic.Value) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			seen.Store(string(body))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
			return
		}
		payload := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": reply}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
}

func newTestGemini(t *testing.T, baseURL string, maxInput int) *Gemini {
	t.Helper()
	g, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:          "test-key",
		Model:           "gemini-test",
		BaseURL:         baseURL,
		MaxInputChars:   maxInput,
		MaxOutputTokens: 64,
		Timeout:         5 * time.Second,
	}, logging.Discard())
	require.NoError(t, err)
	return g
}

func TestGeminiSummarize(t *testing.T) {
	var seen atomic.Value
	srv := newGeminiServer(t, http.StatusOK, "  Lightweight running shoe.  ", &seen)
	defer srv.Close()

	got := newTestGemini(t, srv.URL, 0).Summarize(context.Background(), "A very long description of a running shoe")
	assert.Equal(t, "Lightweight running shoe.", got)

	body, _ := seen.Load().(string)
	assert.Contains(t, body, "Summarize the following product description")
	assert.Contains(t, body, "Output ONLY the summary")
}

func TestGeminiTruncatesInput(t *testing.T) {
	var seen atomic.Value
	srv := newGeminiServer(t, http.StatusOK, "short", &seen)
	defer srv.Close()

	_ = newTestGemini(t, srv.URL, 60).Summarize(context.Background(), strings.Repeat("x", 500)+"TAIL")
	body, _ := seen.Load().(string)
	assert.NotContains(t, body, "TAIL")
}

func TestGeminiFailsOpen(t *testing.T) {
	srv := newGeminiServer(t, http.StatusInternalServerError, "", nil)
	defer srv.Close()

	const input = "original description"
	assert.Equal(t, input, newTestGemini(t, srv.URL, 0).Summarize(context.Background(), input))
}

func TestGeminiEmptyReplyFallsBack(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, "   ", nil)
	defer srv.Close()

	assert.Equal(t, "keep me", newTestGemini(t, srv.URL, 0).Summarize(context.Background(), "keep me"))
}

func TestNewWithoutKeyIsNoop(t *testing.T) {
	s, err := New(context.Background(), config.SummarizerConfig{Provider: "gemini", Model: "m"}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, s)
	assert.Equal(t, "same", s.Summarize(context.Background(), "same"))
}

func TestNewGeminiRequiresModel(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{APIKey: "k"}, nil)
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo world", 5))
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "abc", truncate("abc", 10))
}
