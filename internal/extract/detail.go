package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DescriptionFrame returns the absolute URL of the embedded description
// document on an item detail page. ok is false when the page has none.
func DescriptionFrame(body []byte, base *url.URL, selector string) (string, bool) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultSelectors().DescriptionFrame
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	src, ok := doc.Find(selector).First().Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return "", false
	}
	return resolve(base, src), true
}
