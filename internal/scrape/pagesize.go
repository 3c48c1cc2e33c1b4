package scrape

import (
	"net/url"
	"strconv"
)

// DefaultTiers are the page sizes the marketplace accepts.
var DefaultTiers = []int{60, 120, 240}

// TierFor returns the smallest tier that holds size items. Sizes above the
// largest tier get the largest. tiers must be sorted ascending.
func TierFor(size int, tiers []int) int {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	for _, tier := range tiers {
		if size <= tier {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// ListingURL builds the search results URL for one page.
func ListingURL(base *url.URL, extra map[string]string, term string, page, perPage int) *url.URL {
	u := *base
	q := u.Query()
	for k, v := range extra {
		q.Set(k, v)
	}
	q.Set("_nkw", term)
	q.Set("_pgn", strconv.Itoa(page))
	q.Set("_ipg", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()
	return &u
}
