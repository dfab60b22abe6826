package htmlutils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestStripHTMLTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no tags",
			input:    "Hello World",
			expected: "Hello World",
		},
		{
			name:     "simple bold tag",
			input:    "<b>Bold text</b>",
			expected: "Bold text",
		},
		{
			name:     "multiple tags",
			input:    "<b>Bold</b> and <i>italic</i> text",
			expected: "Bold and italic text",
		},
		{
			name:     "nested tags",
			input:    "<b><i>Bold italic</i></b>",
			expected: "Bold italic",
		},
		{
			name:     "anchor with href",
			input:    `<a href="https://example.com">Link text</a>`,
			expected: "Link text",
		},
		{
			name:     "escaped HTML entities",
			input:    "Apple &amp; Google &gt; Microsoft",
			expected: "Apple & Google > Microsoft",
		},
		{
			name:     "mixed content",
			input:    "<b>Breaking:</b> Trump announces <i>new tariffs</i> on imports",
			expected: "Breaking: Trump announces new tariffs on imports",
		},
		{
			name:     "blockquote",
			input:    "<blockquote>Quoted content here</blockquote>",
			expected: "Quoted content here",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only tags no content",
			input:    "<b></b><i></i>",
			expected: "",
		},
		{
			name:     "whitespace preservation",
			input:    "<b>Word1</b>  <i>Word2</i>",
			expected: "Word1  Word2",
		},
		{
			name:     "newlines preserved",
			input:    "<b>Line1</b>\n<i>Line2</i>",
			expected: "Line1\nLine2",
		},
		{
			name:     "script body dropped",
			input:    "<p>Ruling</p><script>var x = 1;</script>",
			expected: "Ruling",
		},
		{
			name:     "paragraphs end lines",
			input:    "<p>First</p><p>Second</p>",
			expected: "First\nSecond",
		},
		{
			name:     "line break",
			input:    "Ottawa<br/>Toronto",
			expected: "Ottawa\nToronto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripHTMLTags(tt.input))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\n\tb   c \n"))
	assert.Equal(t, "", NormalizeWhitespace(" \n "))
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "shorter than limit", input: "Cour", limit: 10, want: "Cour"},
		{name: "exact", input: "Cour", limit: 4, want: "Cour"},
		{name: "ascii cut", input: "Supreme Court", limit: 7, want: "Supreme"},
		{name: "multibyte cut", input: "Québec décision", limit: 4, want: "Québ"},
		{name: "zero limit", input: "unchanged", limit: 0, want: "unchanged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.limit)

			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}

	long := strings.Repeat("é", 12000)
	assert.Equal(t, 10000, utf8.RuneCountInString(TruncateRunes(long, 10000)))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Employer duties & remote work", PlainText("<p>Employer   duties &amp;</p>\n<p>remote work</p>"))
}
