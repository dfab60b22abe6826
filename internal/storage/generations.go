package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
)

const generationColumns = `g.id, g.topic_id, t.name, g.generated_at, g.output_path, g.model,
	g.source_count, g.word_count`

// TrackGeneration records one synthesis run for a topic. Multiple records per
// topic are expected; history is never rewritten.
func (db *DB) TrackGeneration(ctx context.Context, g *domain.Generation) (int64, error) {
	generatedAt := g.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	var id int64

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO generated_articles (topic_id, generated_at, output_path, model, source_count, word_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, g.TopicID, toTimestamptz(generatedAt), g.OutputPath, g.Model, toInt4(g.SourceCount), toInt4(g.WordCount),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("track generation for topic %d: %w", g.TopicID, err)
	}

	g.ID = id
	g.GeneratedAt = generatedAt

	return id, nil
}

// IsTopicGenerated reports whether at least one generation record exists for the topic.
func (db *DB) IsTopicGenerated(ctx context.Context, topicID int64) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM generated_articles WHERE topic_id = $1)`, topicID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check generation for topic %d: %w", topicID, err)
	}

	return exists, nil
}

// GetGenerationInfo returns the most recent generation record for a topic or ErrNotFound.
func (db *DB) GetGenerationInfo(ctx context.Context, topicID int64) (*domain.Generation, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+generationColumns+`
		FROM generated_articles g
		JOIN topics t ON t.id = g.topic_id
		WHERE g.topic_id = $1
		ORDER BY g.generated_at DESC, g.id DESC
		LIMIT 1
	`, topicID)

	g, err := scanGeneration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("generation for topic %d: %w", topicID, apperrors.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get generation for topic %d: %w", topicID, err)
	}

	return &g, nil
}

// GetGeneratedTopics returns every generation record, newest first.
func (db *DB) GetGeneratedTopics(ctx context.Context) ([]domain.Generation, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+generationColumns+`
		FROM generated_articles g
		JOIN topics t ON t.id = g.topic_id
		ORDER BY g.generated_at DESC, g.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("get generated topics: %w", err)
	}
	defer rows.Close()

	var gens []domain.Generation

	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}

		gens = append(gens, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}

	return gens, nil
}

func scanGeneration(row pgx.Row) (domain.Generation, error) {
	var (
		g                 domain.Generation
		generatedAt       pgtype.Timestamptz
		sourceCount, word int32
	)

	if err := row.Scan(&g.ID, &g.TopicID, &g.TopicName, &generatedAt, &g.OutputPath, &g.Model,
		&sourceCount, &word); err != nil {
		return domain.Generation{}, err //nolint:wrapcheck // wrapped by callers
	}

	g.GeneratedAt = fromTimestamptz(generatedAt)
	g.SourceCount = int(sourceCount)
	g.WordCount = int(word)

	return g, nil
}
