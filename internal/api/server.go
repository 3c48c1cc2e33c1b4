package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/logging"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/scrape"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/stream"
)

// Scraper runs one scrape request and streams its events to sink.
type Scraper interface {
	Run(ctx context.Context, req scrape.Request, sink stream.Sink) error
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins  []string
	Heartbeat       time.Duration
	DefaultPageSize int
}

// Server exposes the scrape stream and its documentation over HTTP.
type Server struct {
	scraper   Scraper
	validator *queryValidator
	opts      Options
	router    chi.Router
	logger    *slog.Logger
}

// NewServer wires handlers onto a chi router.
func NewServer(scraper Scraper, opts Options, logger *slog.Logger) (*Server, error) {
	if scraper == nil {
		return nil, errors.New("scraper is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	validator, err := newQueryValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		scraper:   scraper,
		validator: validator,
		opts:      opts,
		router:    chi.NewRouter(),
		logger:    logger,
	}
	s.routes()
	return s, nil
}

// ServeHTTP satisfies the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", TraceHeader},
		ExposedHeaders: []string{TraceHeader},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/scrape", s.handleScrape)
	s.router.Get("/openapi.yaml", s.handleOpenAPI)
	s.router.Get("/docs", s.handleDocs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), s.logger)
	query := r.URL.Query()

	if details := s.validator.Validate(query); len(details) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid scrape request", Details: details})
		return
	}
	req := requestFromQuery(query, s.opts.DefaultPageSize)
	if err := req.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	sink := stream.NewSSEWriter(w)
	ctx, cancel := context.WithCancel(r.Context())
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		sink.KeepAlive(ctx, s.opts.Heartbeat)
	}()

	err := s.scraper.Run(ctx, req, sink)
	cancel()
	_ = sink.Close()
	<-heartbeatDone

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Info("scrape stream ended by client", "search", req.SearchTerm)
	default:
		logger.Error("scrape stream aborted", "search", req.SearchTerm, "error", err)
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	var ve *scrape.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid scrape request", Details: ve.Fields})
		return
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid scrape request: %v", err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
