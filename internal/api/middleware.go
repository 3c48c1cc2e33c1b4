package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/logging"
)

// TraceHeader carries the caller's trace id; one is generated when absent or malformed.
const TraceHeader = "X-Trace-ID"

// requestLogger attaches a trace-scoped logger to the request context and logs
// the start and end of every request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceHeader)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = uuid.New().String()
			}
			w.Header().Set(TraceHeader, traceID)

			coreLogger := logger.With("trace_id", traceID)
			httpLogger := coreLogger.With(
				"http_method", r.Method,
				"http_path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			ctx := logging.IntoContext(r.Context(), coreLogger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			httpLogger.Debug("request started")
			next.ServeHTTP(ww, r.WithContext(ctx))
			httpLogger.Info("request finished",
				"status_code", ww.Status(),
				"bytes_written", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
