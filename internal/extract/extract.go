// Package extract implements the concrete HTML-to-text contract (C5) that
// the specification otherwise leaves as an external collaborator: given one
// help page's HTML, produce a short title and a bounded plain-text body
// suitable for full-text indexing.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// untitled is the placeholder used when no heading or <title> element
// yields usable text.
const untitled = "Без названия"

// maxTextBytes bounds the extracted body. The cut lands on an exact byte
// count, not a rune boundary, so it may truncate a multi-byte UTF-8
// character on non-ASCII input; this is intentional, not a bug (see
// DESIGN.md).
const maxTextBytes = 10000

// stripSelectors names elements dropped from the body before text
// extraction: script and style never contain prose, nav and the two
// class-based selectors are chrome left over from the platform's own help
// viewer shell.
const stripSelectors = "script, style, nav, .toc, .navigation"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Page is the result of extracting one HTML document.
type Page struct {
	Title string
	Text  string
}

// Extract parses html and returns its title and bounded body text. It never
// errors: a document goquery cannot parse at all yields a Page with the
// placeholder title and empty text, the same placeholder a page with no
// heading gets.
func Extract(html string) Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{Title: untitled}
	}

	return Page{
		Title: extractTitle(doc),
		Text:  extractText(doc),
	}
}

// extractTitle returns the first <h1>, then <h2>, then <title> text,
// trimmed; falling back to the placeholder when none yield anything.
func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", "h2", "title"} {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if text := strings.TrimSpace(s.Text()); text != "" {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return untitled
}

// extractText returns the document body with chrome elements removed and
// whitespace collapsed, capped at maxTextBytes bytes.
func extractText(doc *goquery.Document) string {
	body := doc.Clone()
	body.Find(stripSelectors).Remove()

	text := body.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		// Fragments with no <body> wrapper: fall back to the whole document.
		text = body.Text()
	}

	text = whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	if len(text) > maxTextBytes {
		text = text[:maxTextBytes]
	}
	return text
}
