// Package htmlutils provides text helpers for collected HTML fragments.
//
// The package handles:
//   - Tag stripping with entity decoding
//   - Whitespace normalization
//   - Rune-safe truncation
package htmlutils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipContent lists elements whose text never reaches the reader.
var skipContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// blockBreak lists elements that end a line of text.
var blockBreak = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Blockquote: true,
}

// StripHTMLTags removes all HTML tags from text, keeping only the content.
// Entities are decoded, script and style bodies are dropped, and block
// elements end a line.
func StripHTMLTags(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.TrimSpace(text)
	}

	var sb strings.Builder

	z := html.NewTokenizer(strings.NewReader(text))
	skipDepth := 0

	for {
		tt := z.Next()

		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is kept.
			return strings.TrimSpace(sb.String())
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)

			if skipContent[a] {
				skipDepth++
			}

			if a == atom.Br {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)

			if skipContent[a] && skipDepth > 0 {
				skipDepth--
			}

			if blockBreak[a] && a != atom.Br {
				sb.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				sb.WriteByte('\n')
			}
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

// NormalizeWhitespace collapses every whitespace run into a single space.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// TruncateRunes cuts text to at most limit runes without splitting a
// multi-byte character. A non-positive limit returns text unchanged.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	count := 0

	for i := range text {
		if count == limit {
			return text[:i]
		}

		count++
	}

	return text
}

// PlainText strips tags and normalizes whitespace in one step.
func PlainText(fragment string) string {
	return NormalizeWhitespace(StripHTMLTags(fragment))
}
