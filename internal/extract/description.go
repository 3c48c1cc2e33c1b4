package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultDropSelectors lists the non-content nodes removed from description documents.
var DefaultDropSelectors = []string{
	"script", "style", "noscript", "meta", "iframe", "link",
	"[onclick]", "[onmouseover]", `[style*="display:none"]`, `[aria-hidden="true"]`,
	`[class*="ads"]`, `[id*="ads"]`, `[class*="social"]`, `[id*="social"]`,
}

var blockLevelTags = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "header": {}, "footer": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"ul": {}, "ol": {}, "li": {}, "table": {}, "tr": {}, "td": {}, "th": {},
	"br": {}, "hr": {}, "figure": {}, "figcaption": {}, "blockquote": {},
}

// DescriptionText strips non-content nodes from an HTML description and
// returns its visible body text with every whitespace run collapsed to a
// single space. A nil dropSelectors uses DefaultDropSelectors.
func DescriptionText(body []byte, dropSelectors []string) string {
	if dropSelectors == nil {
		dropSelectors = DefaultDropSelectors
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range dropSelectors {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		doc.Find(sel).Remove()
	}

	// The parser always creates a body; it is only missing when a drop selector
	// matched it, and then nothing visible is left.
	root := doc.Find("body").First()
	if root.Length() == 0 {
		return ""
	}

	var acc textAccumulator
	for _, node := range root.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			acc.walk(child)
		}
	}
	return normalizeWhitespace(acc.String())
}

// textAccumulator gathers text nodes, separating block elements so that
// adjacent paragraphs do not run together.
type textAccumulator struct {
	builder strings.Builder
}

func (t *textAccumulator) String() string {
	return t.builder.String()
}

func (t *textAccumulator) walk(node *html.Node) {
	switch node.Type {
	case html.TextNode:
		t.builder.WriteString(node.Data)
	case html.ElementNode:
		_, block := blockLevelTags[strings.ToLower(node.Data)]
		if block {
			t.builder.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			t.walk(child)
		}
		if block {
			t.builder.WriteByte(' ')
		}
	}
}

func normalizeWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
