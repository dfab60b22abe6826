package ingest

import (
	"bytes"
	"context"
	"net/url"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/platform/htmlutils"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
)

// boilerplateSelector matches page chrome that never belongs to the article.
const boilerplateSelector = "script, style, noscript, nav, footer, header, aside, form"

// mainContentSelectors are tried in order; the first non-empty match wins.
var mainContentSelectors = []string{"article", "main", "body"}

// ContentExtractor turns an HTML page into plain article text.
type ContentExtractor struct {
	maxChars int
}

func NewContentExtractor(maxChars int) *ContentExtractor {
	if maxChars <= 0 {
		maxChars = defaultContentMaxChars
	}

	return &ContentExtractor{maxChars: maxChars}
}

// Extract returns the readable text of a page, truncated to the configured
// number of runes. It returns "" when nothing usable is found.
func (e *ContentExtractor) Extract(page []byte, pageURL string) string {
	text := selectorText(page)

	if utf8.RuneCountInString(text) < thinContentChars {
		if alt := readabilityText(page, pageURL); utf8.RuneCountInString(alt) > utf8.RuneCountInString(text) {
			text = alt
		}
	}

	return htmlutils.TruncateRunes(text, e.maxChars)
}

func selectorText(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	doc.Find(boilerplateSelector).Remove()

	for _, sel := range mainContentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}

		inner, err := node.Html()
		if err != nil {
			continue
		}

		if text := htmlutils.PlainText(inner); text != "" {
			return text
		}
	}

	return ""
}

func readabilityText(page []byte, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(page), u)
	if err != nil {
		return ""
	}

	return htmlutils.NormalizeWhitespace(article.TextContent)
}

// PageFetcher downloads article pages.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) ([]byte, error)
}

// ContentFetcher downloads an article page and extracts its body text.
// It fails open: any error yields "" and a log line.
type ContentFetcher struct {
	fetcher   PageFetcher
	extractor *ContentExtractor
	logger    *zerolog.Logger
}

func NewContentFetcher(fetcher PageFetcher, extractor *ContentExtractor, logger *zerolog.Logger) *ContentFetcher {
	return &ContentFetcher{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}
}

// FetchContent returns the article text at rawURL or "".
func (c *ContentFetcher) FetchContent(ctx context.Context, rawURL string) string {
	page, err := c.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		observability.ContentFetches.WithLabelValues(outcomeError).Inc()
		c.logger.Debug().Err(err).Str(logKeyURL, rawURL).Msg("full content fetch failed")

		return ""
	}

	text := c.extractor.Extract(page, rawURL)
	if text == "" {
		observability.ContentFetches.WithLabelValues(outcomeEmpty).Inc()

		return ""
	}

	observability.ContentFetches.WithLabelValues(outcomeSuccess).Inc()

	return text
}
