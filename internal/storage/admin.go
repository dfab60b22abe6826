package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ResetResult reports how many rows an administrative reset touched.
type ResetResult struct {
	GenerationsDeleted int64
	LinksDeleted       int64
	TopicsDeleted      int64
	ArticlesReset      int64
}

// ResetTopics removes every topic, link and generation record and returns all
// articles to the unprocessed state so classification runs from scratch.
// Articles themselves are kept. The reset runs in one transaction.
func (db *DB) ResetTopics(ctx context.Context) (ResetResult, error) {
	var res ResetResult

	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		steps := []struct {
			sql    string
			target *int64
		}{
			{`DELETE FROM generated_articles`, &res.GenerationsDeleted},
			{`DELETE FROM article_topics`, &res.LinksDeleted},
			{`DELETE FROM topics`, &res.TopicsDeleted},
			{`UPDATE articles SET processed = false WHERE processed = true`, &res.ArticlesReset},
		}

		for _, step := range steps {
			cmd, err := tx.Exec(ctx, step.sql)
			if err != nil {
				return fmt.Errorf("exec %q: %w", step.sql, err)
			}

			*step.target = cmd.RowsAffected()
		}

		return nil
	})
	if err != nil {
		return ResetResult{}, fmt.Errorf("reset topics: %w", err)
	}

	db.Logger.Warn().
		Int64("topics", res.TopicsDeleted).
		Int64("links", res.LinksDeleted).
		Int64("generations", res.GenerationsDeleted).
		Int64("articles_reset", res.ArticlesReset).
		Msg("topics reset")

	return res, nil
}

// ResetAll erases all pipeline data unconditionally.
func (db *DB) ResetAll(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx,
		`TRUNCATE generated_articles, article_topics, topics, articles RESTART IDENTITY`,
	); err != nil {
		return fmt.Errorf("reset all: %w", err)
	}

	db.Logger.Warn().Msg("all pipeline data erased")

	return nil
}
