package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
)

const topicColumns = `t.id, t.name, t.category, t.key_entity, t.smb_relevance_score,
	t.is_parent, t.parent_id, t.created_at`

const insertTopicSQL = `
	INSERT INTO topics (name, category, key_entity, smb_relevance_score, parent_id, is_parent)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (name) DO NOTHING
	RETURNING id`

const linkArticleSQL = `
	INSERT INTO article_topics (article_id, topic_id, article_tag)
	VALUES ($1, $2, $3)
	ON CONFLICT (article_id, topic_id) DO NOTHING`

// FindOrCreateTopic returns the id of the topic named exactly in.Name,
// creating it when no such row exists. Matching is case-sensitive and
// byte-exact once invalid UTF-8 is dropped; no other normalization is applied.
//
// The insert uses ON CONFLICT so two writers racing on the same name end up
// with one row and both observe the same id.
func (db *DB) FindOrCreateTopic(ctx context.Context, in domain.TopicInput) (int64, error) {
	name, err := topicName(in.Name)
	if err != nil {
		return 0, err
	}

	id, err := db.topicIDByName(ctx, name)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, apperrors.ErrNotFound) {
		return 0, err
	}

	err = db.Pool.QueryRow(ctx, insertTopicSQL, name, toText(in.Category), toText(in.KeyEntity),
		clampScore(in.RelevanceScore), toInt8Ptr(in.ParentID), in.IsParent,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race to a concurrent writer.
		return db.topicIDByName(ctx, name)
	}

	if err != nil {
		return 0, fmt.Errorf("insert topic %q: %w", name, err)
	}

	return id, nil
}

// topicName returns the stored form of a topic name. Every statement in
// FindOrCreateTopic uses this value so lookup and insert agree.
func topicName(raw string) (string, error) {
	name := SanitizeUTF8(raw)
	if name == "" {
		return "", fmt.Errorf("find or create topic: %w: empty name", apperrors.ErrInvalidInput)
	}

	return name, nil
}

func (db *DB) topicIDByName(ctx context.Context, name string) (int64, error) {
	var id int64

	err := db.Pool.QueryRow(ctx, `SELECT id FROM topics WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("topic %q: %w", name, apperrors.ErrNotFound)
	}

	if err != nil {
		return 0, fmt.Errorf("get topic %q: %w", name, err)
	}

	return id, nil
}

// LinkArticleToTopic links an article to a topic with a per-article tag.
// Linking an existing pair is a no-op and reports linked=false.
func (db *DB) LinkArticleToTopic(ctx context.Context, articleID, topicID int64, tag string) (bool, error) {
	cmd, err := db.Pool.Exec(ctx, linkArticleSQL, articleID, topicID, toText(tag))
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}

		return false, fmt.Errorf("link article %d to topic %d: %w", articleID, topicID, err)
	}

	return cmd.RowsAffected() > 0, nil
}

// GetTopicByID returns one topic or ErrNotFound.
func (db *DB) GetTopicByID(ctx context.Context, id int64) (*domain.Topic, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics t WHERE t.id = $1`, id)

	t, err := scanTopic(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get topic %d: %w", id, apperrors.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get topic %d: %w", id, err)
	}

	return &t, nil
}

// GetTopicsForArticle returns the topics an article is linked to along with the link tag.
func (db *DB) GetTopicsForArticle(ctx context.Context, articleID int64) ([]domain.TaggedTopic, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+topicColumns+`, at.article_tag
		FROM topics t
		JOIN article_topics at ON at.topic_id = t.id
		WHERE at.article_id = $1
		ORDER BY t.smb_relevance_score DESC, t.id
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("get topics for article %d: %w", articleID, err)
	}
	defer rows.Close()

	var topics []domain.TaggedTopic

	for rows.Next() {
		var (
			r   topicRow
			tag pgtype.Text
		)

		if err := rows.Scan(append(r.dest(), &tag)...); err != nil {
			return nil, fmt.Errorf("scan tagged topic: %w", err)
		}

		topics = append(topics, domain.TaggedTopic{Topic: r.result(), ArticleTag: fromText(tag)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tagged topics: %w", err)
	}

	return topics, nil
}

// GetParentTopics returns all parent topics, newest first. ArticleCount is the
// number of distinct articles linked to any of the parent's subtopics.
func (db *DB) GetParentTopics(ctx context.Context) ([]domain.TopicSummary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+topicColumns+`, COUNT(DISTINCT at.article_id) AS article_count
		FROM topics t
		LEFT JOIN topics s ON s.parent_id = t.id
		LEFT JOIN article_topics at ON at.topic_id = s.id
		WHERE t.is_parent = true
		GROUP BY t.id
		ORDER BY t.created_at DESC, t.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("get parent topics: %w", err)
	}

	return collectTopicSummaries(rows, false)
}

// GetSubtopicsForParent returns the direct children of a parent, most covered first.
func (db *DB) GetSubtopicsForParent(ctx context.Context, parentID int64) ([]domain.TopicSummary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+topicColumns+`, COUNT(at.article_id) AS article_count
		FROM topics t
		LEFT JOIN article_topics at ON at.topic_id = t.id
		WHERE t.parent_id = $1
		GROUP BY t.id
		ORDER BY article_count DESC, t.id
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("get subtopics for parent %d: %w", parentID, err)
	}

	return collectTopicSummaries(rows, false)
}

// GetTopicsWithMetadata returns linked topics with article count and the
// earliest and latest published date among their articles.
func (db *DB) GetTopicsWithMetadata(ctx context.Context) ([]domain.TopicSummary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+topicColumns+`, COUNT(at.article_id) AS article_count,
			MIN(a.published_date), MAX(a.published_date)
		FROM topics t
		JOIN article_topics at ON at.topic_id = t.id
		JOIN articles a ON a.id = at.article_id
		GROUP BY t.id
		ORDER BY article_count DESC, t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("get topics with metadata: %w", err)
	}

	return collectTopicSummaries(rows, true)
}

// GetUngeneratedSubtopics returns subtopics scoring at least minScore with at
// least minArticles linked articles that have never been synthesized.
func (db *DB) GetUngeneratedSubtopics(ctx context.Context, minScore, minArticles int) ([]domain.TopicSummary, error) {
	query, args, err := ungeneratedSubtopicsQuery(minScore, minArticles, 0).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ungenerated subtopics query: %w", err)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get ungenerated subtopics: %w", err)
	}

	return collectTopicSummaries(rows, false)
}

// topicRow holds scan targets for topicColumns.
type topicRow struct {
	topic               domain.Topic
	category, keyEntity pgtype.Text
	score               int16
	parentID            pgtype.Int8
	createdAt           pgtype.Timestamptz
}

func (r *topicRow) dest() []any {
	return []any{&r.topic.ID, &r.topic.Name, &r.category, &r.keyEntity, &r.score,
		&r.topic.IsParent, &r.parentID, &r.createdAt}
}

func (r *topicRow) result() domain.Topic {
	t := r.topic
	t.Category = fromText(r.category)
	t.KeyEntity = fromText(r.keyEntity)
	t.RelevanceScore = int(r.score)
	t.ParentID = fromInt8Ptr(r.parentID)
	t.CreatedAt = fromTimestamptz(r.createdAt)

	return t
}

func scanTopic(row pgx.Row) (domain.Topic, error) {
	var r topicRow
	if err := row.Scan(r.dest()...); err != nil {
		return domain.Topic{}, err //nolint:wrapcheck // wrapped by callers
	}

	return r.result(), nil
}

// collectTopicSummaries scans topicColumns followed by article_count and,
// when withDates is set, the earliest and latest published dates.
func collectTopicSummaries(rows pgx.Rows, withDates bool) ([]domain.TopicSummary, error) {
	defer rows.Close()

	var topics []domain.TopicSummary

	for rows.Next() {
		var (
			r              topicRow
			count          int64
			earliest, last pgtype.Text
		)

		dest := append(r.dest(), &count)
		if withDates {
			dest = append(dest, &earliest, &last)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}

		topics = append(topics, domain.TopicSummary{
			Topic:           r.result(),
			ArticleCount:    int(count),
			EarliestArticle: fromText(earliest),
			LatestArticle:   fromText(last),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}

	return topics, nil
}
