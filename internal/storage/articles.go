package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
)

const articleColumns = `a.id, a.url, a.title, a.content, a.summary, a.source, a.category,
	a.published_date, a.fetched_at, a.processed`

// BatchResult reports the outcome of a batch insert.
// Inserted + Skipped always equals the number of records submitted;
// Failed counts the subset of Skipped that hit an error other than a duplicate URL.
type BatchResult struct {
	Inserted int
	Skipped  int
	Failed   int
}

// InsertArticle stores one article. It returns inserted=false without an error
// when an article with the same URL already exists.
func (db *DB) InsertArticle(ctx context.Context, a *domain.Article) (int64, bool, error) {
	if a.URL == "" {
		return 0, false, fmt.Errorf("insert article: %w: empty url", apperrors.ErrInvalidInput)
	}

	fetchedAt := a.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	var id int64

	err := db.Pool.QueryRow(ctx, insertArticleSQL, SanitizeUTF8(a.URL), SanitizeUTF8(a.Title), toText(a.Content), toText(a.Summary),
		SanitizeUTF8(a.Source), toText(a.Category), toText(a.Published), toTimestamptz(fetchedAt),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		if isUniqueViolation(err) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("insert article: %w", err)
	}

	a.ID = id
	a.FetchedAt = fetchedAt

	return id, true, nil
}

// InsertArticlesBatch inserts records one by one. A failing record is logged
// and counted as skipped; it never aborts the rest of the batch.
func (db *DB) InsertArticlesBatch(ctx context.Context, articles []domain.Article) BatchResult {
	var res BatchResult

	for i := range articles {
		_, inserted, err := db.InsertArticle(ctx, &articles[i])

		switch {
		case err != nil:
			res.Skipped++
			res.Failed++

			db.Logger.Error().Err(err).
				Str(logFieldArticleURL, articles[i].URL).
				Str(logFieldSource, articles[i].Source).
				Msg("failed to insert article")
		case inserted:
			res.Inserted++
		default:
			res.Skipped++
		}
	}

	return res
}

// GetUnprocessedArticles returns the classification work queue ordered by id,
// so repeated calls after an interruption return the same outstanding set.
func (db *DB) GetUnprocessedArticles(ctx context.Context) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles a
		WHERE a.processed = false
		ORDER BY a.id
	`)
	if err != nil {
		return nil, fmt.Errorf("get unprocessed articles: %w", err)
	}

	return collectArticles(rows)
}

// GetArticleByID returns one article or ErrNotFound.
func (db *DB) GetArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.id = $1`, id)

	a, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get article %d: %w", id, apperrors.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}

	return &a, nil
}

// GetArticlesByIDs returns the articles matching ids; unknown ids are ignored.
func (db *DB) GetArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := articlesByIDsQuery(ids).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles by ids query: %w", err)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get articles by ids: %w", err)
	}

	return collectArticles(rows)
}

// GetArticlesForTopic returns the articles linked to a topic, newest first.
func (db *DB) GetArticlesForTopic(ctx context.Context, topicID int64) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles a
		JOIN article_topics at ON at.article_id = a.id
		WHERE at.topic_id = $1
		ORDER BY a.published_date DESC NULLS LAST, a.id DESC
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("get articles for topic %d: %w", topicID, err)
	}

	return collectArticles(rows)
}

// GetArticlesMissingContent returns stored articles whose body is still empty,
// oldest first. limit <= 0 means no limit.
func (db *DB) GetArticlesMissingContent(ctx context.Context, limit int) ([]domain.Article, error) {
	query, args, err := articlesMissingContentQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles missing content query: %w", err)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get articles missing content: %w", err)
	}

	return collectArticles(rows)
}

// UpdateArticleContent backfills the content of an article that was stored without it.
// Articles that already have content are left untouched and report false.
func (db *DB) UpdateArticleContent(ctx context.Context, id int64, content string) (bool, error) {
	if content == "" {
		return false, nil
	}

	cmd, err := db.Pool.Exec(ctx, updateArticleContentSQL, id, SanitizeUTF8(content))
	if err != nil {
		return false, fmt.Errorf("update article content %d: %w", id, err)
	}

	return cmd.RowsAffected() > 0, nil
}

// MarkProcessed flags an article as classified. Calling it twice is harmless.
func (db *DB) MarkProcessed(ctx context.Context, id int64) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE articles SET processed = true WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark article %d processed: %w", id, err)
	}

	return nil
}

const insertArticleSQL = `
	INSERT INTO articles (url, title, content, summary, source, category, published_date, fetched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (url) DO NOTHING
	RETURNING id`

const updateArticleContentSQL = `
	UPDATE articles SET content = $2
	WHERE id = $1 AND (content IS NULL OR content = '')`

func articlesMissingContentQuery(limit int) sqBuilder {
	q := psql.Select(articleColumns).
		From("articles a").
		Where(sq.Or{sq.Eq{"a.content": nil}, sq.Eq{"a.content": ""}}).
		Where(sq.NotEq{"a.url": ""}).
		OrderBy("a.id")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	return q
}

func articlesByIDsQuery(ids []int64) sqBuilder {
	return psql.Select(articleColumns).
		From("articles a").
		Where(eqIDs("a.id", ids)).
		OrderBy("a.id")
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var (
		a                                     domain.Article
		content, summary, category, published pgtype.Text
		fetchedAt                             pgtype.Timestamptz
	)

	if err := row.Scan(&a.ID, &a.URL, &a.Title, &content, &summary, &a.Source, &category,
		&published, &fetchedAt, &a.Processed); err != nil {
		return domain.Article{}, err //nolint:wrapcheck // wrapped by callers
	}

	a.Content = fromText(content)
	a.Summary = fromText(summary)
	a.Category = fromText(category)
	a.Published = fromText(published)
	a.FetchedAt = fromTimestamptz(fetchedAt)

	return a, nil
}

func collectArticles(rows pgx.Rows) ([]domain.Article, error) {
	defer rows.Close()

	var articles []domain.Article

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}

		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return articles, nil
}
