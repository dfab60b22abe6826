package ingest

import (
	"context"

	"github.com/lueurxax/legal-digest/internal/core/domain"
)

// Collector turns one source into candidate articles. Implementations return
// an error for anything that prevents collection; the Ingester contains it.
type Collector interface {
	Collect(ctx context.Context, src Source) ([]domain.Article, error)
}

// newArticle fills the fields every collector sets the same way.
func newArticle(src Source, link, title string) domain.Article {
	return domain.Article{
		URL:      link,
		Title:    title,
		Source:   src.Name,
		Category: src.Category,
	}
}

func capItems(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}

	return n
}
