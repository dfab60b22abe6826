package db

import (
	sq "github.com/Masterminds/squirrel"
)

type sqBuilder = sq.SelectBuilder

// eqIDs renders `column IN (...)`; an empty list matches nothing.
func eqIDs(column string, ids []int64) sq.Eq {
	return sq.Eq{column: ids}
}

// ungeneratedSubtopicsQuery selects subtopics that pass the relevance and
// coverage thresholds and have no generation record yet. limit <= 0 means no limit.
func ungeneratedSubtopicsQuery(minScore, minArticles, limit int) sqBuilder {
	q := psql.Select(topicColumns, "COUNT(at.article_id) AS article_count").
		From("topics t").
		Join("article_topics at ON at.topic_id = t.id").
		Where(sq.Eq{"t.is_parent": false}).
		Where(sq.GtOrEq{"t.smb_relevance_score": minScore}).
		Where("NOT EXISTS (SELECT 1 FROM generated_articles g WHERE g.topic_id = t.id)").
		GroupBy("t.id").
		Having("COUNT(at.article_id) >= ?", minArticles).
		OrderBy("article_count DESC", "t.id")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	return q
}
