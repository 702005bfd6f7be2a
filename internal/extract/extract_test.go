package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractPrefersH1(t *testing.T) {
	p := Extract(`<html><body><h1>Title One</h1><h2>Title Two</h2><p>body text</p></body></html>`)
	assert.Equal(t, "Title One", p.Title)
	assert.Contains(t, p.Text, "body text")
}

func TestExtractFallsBackToH2(t *testing.T) {
	p := Extract(`<html><head><title>Doc Title</title></head><body><h2>Section</h2><p>content</p></body></html>`)
	assert.Equal(t, "Section", p.Title)
}

func TestExtractFallsBackToTitleTag(t *testing.T) {
	p := Extract(`<html><head><title>Doc Title</title></head><body><p>content</p></body></html>`)
	assert.Equal(t, "Doc Title", p.Title)
}

func TestExtractNoHeadingYieldsPlaceholder(t *testing.T) {
	p := Extract(`<html><body><p>just a paragraph</p></body></html>`)
	assert.Equal(t, "Без названия", p.Title)
}

func TestExtractStripsChromeElements(t *testing.T) {
	p := Extract(`<html><body>
		<script>evil()</script>
		<style>.x{color:red}</style>
		<nav>Home | Back</nav>
		<div class="toc">1. Intro</div>
		<div class="navigation">Next &gt;</div>
		<h1>Real</h1>
		<p>actual prose</p>
	</body></html>`)
	assert.NotContains(t, p.Text, "evil")
	assert.NotContains(t, p.Text, "color:red")
	assert.NotContains(t, p.Text, "Home")
	assert.NotContains(t, p.Text, "Intro")
	assert.NotContains(t, p.Text, "Next")
	assert.Contains(t, p.Text, "actual prose")
}

func TestExtractCollapsesWhitespace(t *testing.T) {
	p := Extract("<html><body><h1>T</h1><p>line\n\n\tone   two</p></body></html>")
	assert.NotContains(t, p.Text, "\n")
	assert.NotContains(t, p.Text, "\t")
	assert.Contains(t, p.Text, "line one two")
}

func TestExtractTruncatesAtExactByteCount(t *testing.T) {
	body := strings.Repeat("a", 20000)
	p := Extract("<html><body><h1>T</h1><p>" + body + "</p></body></html>")
	assert.Len(t, p.Text, maxTextBytes)
}

func TestExtractMultiByteTruncationMayCutMidCharacter(t *testing.T) {
	// "T" (1 byte) + 9998 ASCII bytes puts the next byte, the first half of
	// a 2-byte rune, exactly at the 10,000th output byte: the cap is a byte
	// count, not a rune boundary, so the cut lands inside that rune.
	body := strings.Repeat("a", 9998) + "é" + strings.Repeat("a", 50)
	p := Extract("<html><body><h1>T</h1><p>" + body + "</p></body></html>")
	assert.Len(t, p.Text, maxTextBytes)
	assert.False(t, utf8.ValidString(p.Text))
}

func TestExtractMalformedHTMLNeverErrors(t *testing.T) {
	p := Extract("<html><body><h1>Unclosed")
	assert.NotEmpty(t, p.Title)
}
