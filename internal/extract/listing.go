// Package extract turns marketplace HTML into listing records and description
// text. Every function is pure: the same input always yields the same output.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

// Selectors locates listing fields inside a search results page.
type Selectors struct {
	Card             string
	Title            string
	Price            string
	Link             string
	Image            string
	DescriptionFrame string
	// PlaceholderTitle drops promotional cards whose title contains it (case-insensitive).
	PlaceholderTitle string
}

// DefaultSelectors matches the eBay search results markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:             ".s-item",
		Title:            ".s-item__title",
		Price:            ".s-item__price",
		Link:             "a.s-item__link",
		Image:            ".s-item__image-wrapper img",
		DescriptionFrame: "#desc_ifr",
		PlaceholderTitle: "shop on ebay",
	}
}

// Listing parses the result cards in document order. Cards without a title or
// link, and placeholder cards, are skipped. Relative links resolve against base.
func Listing(body []byte, base *url.URL, sel Selectors) ([]types.ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	placeholder := strings.ToLower(strings.TrimSpace(sel.PlaceholderTitle))
	items := make([]types.ListingItem, 0)
	doc.Find(sel.Card).Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find(sel.Title).Text())
		if title == "" {
			return
		}
		if placeholder != "" && strings.Contains(strings.ToLower(title), placeholder) {
			return
		}
		href, ok := card.Find(sel.Link).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}

		items = append(items, types.ListingItem{
			Title:    title,
			Price:    strings.TrimSpace(card.Find(sel.Price).Text()),
			Link:     resolve(base, href),
			ImageURL: imageURL(card.Find(sel.Image).First(), base),
		})
	})
	return items, nil
}

func imageURL(img *goquery.Selection, base *url.URL) string {
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return resolve(base, strings.TrimSpace(v))
		}
	}
	return types.Missing
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
