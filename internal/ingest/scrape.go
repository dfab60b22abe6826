package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/platform/htmlutils"
)

// ScrapeCollector extracts article listings from an HTML page using the
// source's CSS selectors. Content is left empty for the full-content pass.
type ScrapeCollector struct {
	fetcher  Fetcher
	maxItems int
}

func NewScrapeCollector(fetcher Fetcher, maxItems int) *ScrapeCollector {
	return &ScrapeCollector{
		fetcher:  fetcher,
		maxItems: maxItems,
	}
}

func (c *ScrapeCollector) Collect(ctx context.Context, src Source) ([]domain.Article, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: scrape url: %w", apperrors.ErrInvalidInput, err)
	}

	body, err := c.fetcher.Fetch(ctx, src.URL, AcceptHTML)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	sel := src.Selectors

	var articles []domain.Article

	doc.Find(sel.Container).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if c.maxItems > 0 && len(articles) >= c.maxItems {
			return false
		}

		title := htmlutils.NormalizeWhitespace(item.Find(sel.Title).First().Text())

		href, _ := item.Find(sel.Link).First().Attr("href")
		href = strings.TrimSpace(href)

		if title == "" || href == "" {
			return true
		}

		ref, err := base.Parse(href)
		if err != nil {
			return true
		}

		a := newArticle(src, ref.String(), title)

		if sel.Date != "" {
			a.Published = NormalizeDate(item.Find(sel.Date).First().Text())
		}

		articles = append(articles, a)

		return true
	})

	return articles, nil
}

var _ Collector = (*ScrapeCollector)(nil)
