package api

import (
	"time"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/scrape"
)

// ErrorResponse is the JSON body of every non-streaming failure.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Details []scrape.FieldError `json:"details,omitempty"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
