package types

import (
	"net/http"
	"net/url"
	"time"
)

// Missing is the placeholder for a field that could not be scraped.
const Missing = "-"

// MaxPageSize is the largest page the marketplace serves and the largest size a
// client may request.
const MaxPageSize = 240

// ListingItem is a single search result card.
type ListingItem struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	Link     string `json:"link"`
	ImageURL string `json:"imageUrl"`
}

// DetailedItem is a ListingItem enriched with its description.
type DetailedItem struct {
	ListingItem
	Description string `json:"description"`
}

// PageMeta describes the batch of items that follows it on the stream.
type PageMeta struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	ItemCount int `json:"itemCount"`
}

// Page represents the fetched content.
type Page struct {
	URL             *url.URL
	FinalURL        *url.URL
	Body            []byte
	ContentType     string
	StatusCode      int
	Headers         http.Header
	FetchedAt       time.Time
	Rendered        bool
	ResponseLatency time.Duration
}

// BaseURL returns the URL relative references in the page resolve against.
func (p *Page) BaseURL() *url.URL {
	if p == nil {
		return nil
	}
	if p.FinalURL != nil {
		return p.FinalURL
	}
	return p.URL
}
