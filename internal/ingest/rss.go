package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	"github.com/lueurxax/legal-digest/internal/platform/htmlutils"
)

// RSSCollector reads RSS and Atom feeds.
type RSSCollector struct {
	fetcher    Fetcher
	feedParser *gofeed.Parser
	maxItems   int
	maxChars   int
}

func NewRSSCollector(fetcher Fetcher, maxItems, maxChars int) *RSSCollector {
	return &RSSCollector{
		fetcher:    fetcher,
		feedParser: gofeed.NewParser(),
		maxItems:   maxItems,
		maxChars:   maxChars,
	}
}

func (c *RSSCollector) Collect(ctx context.Context, src Source) ([]domain.Article, error) {
	body, err := c.fetcher.Fetch(ctx, src.URL, AcceptFeed)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := c.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	n := capItems(len(feed.Items), c.maxItems)
	articles := make([]domain.Article, 0, n)

	for _, item := range feed.Items[:n] {
		if item == nil {
			continue
		}

		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		title := htmlutils.PlainText(item.Title)
		if title == "" {
			title = link
		}

		// Full-text content when the feed carries it, otherwise the description.
		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}

		a := newArticle(src, link, title)
		a.Content = htmlutils.TruncateRunes(htmlutils.PlainText(content), c.maxChars)
		a.Summary = htmlutils.PlainText(item.Description)

		if item.PublishedParsed != nil || item.Published != "" {
			a.Published = formatTime(item.PublishedParsed, item.Published)
		} else {
			a.Published = formatTime(item.UpdatedParsed, item.Updated)
		}

		articles = append(articles, a)
	}

	return articles, nil
}

var _ Collector = (*RSSCollector)(nil)
