package fetcher

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ChallengeSignature recognises the interstitial served instead of real content.
type ChallengeSignature struct {
	Titles []string
	Bodies []string
}

// DefaultChallenge matches eBay's "Pardon Our Interruption" page.
func DefaultChallenge() ChallengeSignature {
	return ChallengeSignature{
		Titles: []string{"Pardon Our Interruption"},
		Bodies: []string{"Checking your browser"},
	}
}

// Matches reports whether body looks like a challenge page.
func (c ChallengeSignature) Matches(body []byte) bool {
	for _, marker := range c.Bodies {
		if marker != "" && bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	if len(c.Titles) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	title := doc.Find("title").First().Text()
	for _, marker := range c.Titles {
		if marker != "" && strings.Contains(title, marker) {
			return true
		}
	}
	return false
}
