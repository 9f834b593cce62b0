// Package parser extracts the visitor counter from event page HTML.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// counterSelector targets the WordPress Events Manager view counter widget.
const counterSelector = "div.wpem-viewed-event"

// digitsRe matches one run of decimal digits. The widget text commonly
// duplicates the number ("205 205 people viewed this event."), so extraction
// anchors to the last match.
var digitsRe = regexp.MustCompile(`[0-9]+`)

// ExtractCounter parses html and returns the counter shown by the view
// widget. The second return value is false when the marker element is
// missing or its text contains no number; malformed input never produces
// an error, only an absent result.
func ExtractCounter(html string) (int, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}

	el := doc.Find(counterSelector).First()
	if el.Length() == 0 {
		return 0, false
	}

	text := NormalizeText(el.Text())
	matches := digitsRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	value, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil {
		return 0, false
	}
	return value, true
}

// NormalizeText collapses runs of whitespace and trims the result.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
