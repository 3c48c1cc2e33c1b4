package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

const systemPrompt = "You are a helpful assistant that summarizes long product descriptions into short, clear, and simple text for e-commerce. Output ONLY the summary, no introductions or extra commentary."

// GeminiConfig configures the Gemini summarizer.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	MaxInputChars   int
	MaxOutputTokens int
	Timeout         time.Duration
}

// Gemini summarizes descriptions through the Gemini API.
type Gemini struct {
	client          *genai.Client
	model           string
	maxInputChars   int
	maxOutputTokens int32
	timeout         time.Duration
	logger          *slog.Logger
}

// NewGemini builds a Gemini-backed summarizer.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{
		client:          client,
		model:           strings.TrimSpace(cfg.Model),
		maxInputChars:   cfg.MaxInputChars,
		maxOutputTokens: int32(cfg.MaxOutputTokens),
		timeout:         cfg.Timeout,
		logger:          logger.With("component", "summarizer", "model", strings.TrimSpace(cfg.Model)),
	}, nil
}

// Summarize returns the model's summary of text, or text itself when the call
// fails or yields nothing.
func (g *Gemini) Summarize(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := truncate("Summarize the following product description:\n "+text, g.maxInputChars)

	g.logger.Debug("summarizing description", "input_chars", len(text))
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			MaxOutputTokens:   g.maxOutputTokens,
			CandidateCount:    1,
		},
	)
	if err != nil {
		g.logger.Error("summarize description failed", "error", err)
		return text
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		g.logger.Warn("summarizer returned empty text")
		return text
	}
	return summary
}
