package db

import (
	"context"
	"fmt"

	"github.com/lueurxax/legal-digest/internal/core/domain"
)

// GetStats returns an aggregate snapshot of the store.
func (db *DB) GetStats(ctx context.Context) (domain.Stats, error) {
	var total, unprocessed, topics, links, generations int64

	err := db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM articles),
			(SELECT COUNT(*) FROM articles WHERE processed = false),
			(SELECT COUNT(*) FROM topics),
			(SELECT COUNT(*) FROM article_topics),
			(SELECT COUNT(*) FROM generated_articles)
	`).Scan(&total, &unprocessed, &topics, &links, &generations)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("get stats: %w", err)
	}

	return domain.Stats{
		TotalArticles:       int(total),
		UnprocessedArticles: int(unprocessed),
		TotalTopics:         int(topics),
		TotalLinks:          int(links),
		TotalGenerations:    int(generations),
	}, nil
}
