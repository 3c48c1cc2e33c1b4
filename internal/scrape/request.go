package scrape

import (
	"fmt"
	"strings"

	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// MaxPageSize is the largest page size a client may request.
const MaxPageSize = types.MaxPageSize

// Request is the validated input of one scrape run.
type Request struct {
	SearchTerm   string
	Page         int
	PageSize     int
	FetchAll     bool
	FetchDetails bool
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a Request breaks its constraints. It is
// raised before anything is written to the client.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid scrape request: " + strings.Join(parts, "; ")
}

// Validate checks the request constraints and trims the search term.
func (r *Request) Validate() error {
	var fields []FieldError
	r.SearchTerm = strings.TrimSpace(r.SearchTerm)
	if r.SearchTerm == "" {
		fields = append(fields, FieldError{Field: "search", Message: "must not be empty"})
	}
	if r.Page < 1 {
		fields = append(fields, FieldError{Field: "page", Message: fmt.Sprintf("must be >= 1 (got %d)", r.Page)})
	}
	if !r.FetchAll && (r.PageSize < 1 || r.PageSize > MaxPageSize) {
		fields = append(fields, FieldError{Field: "size", Message: fmt.Sprintf("must be within [1,%d] (got %d)", MaxPageSize, r.PageSize)})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
