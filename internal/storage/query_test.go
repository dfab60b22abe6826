package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUngeneratedSubtopicsQuery(t *testing.T) {
	query, args, err := ungeneratedSubtopicsQuery(8, 3, 5).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM topics t JOIN article_topics at ON at.topic_id = t.id")
	assert.Contains(t, query, "t.is_parent = $1")
	assert.Contains(t, query, "t.smb_relevance_score >= $2")
	assert.Contains(t, query, "NOT EXISTS (SELECT 1 FROM generated_articles g WHERE g.topic_id = t.id)")
	assert.Contains(t, query, "HAVING COUNT(at.article_id) >= $3")
	assert.Contains(t, query, "ORDER BY article_count DESC, t.id")
	assert.Contains(t, query, "LIMIT 5")
	assert.Equal(t, []interface{}{false, 8, 3}, args)
}

func TestUngeneratedSubtopicsQuery_NoLimit(t *testing.T) {
	query, _, err := ungeneratedSubtopicsQuery(0, 1, 0).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "LIMIT")
}

func TestArticlesByIDsQuery(t *testing.T) {
	query, args, err := articlesByIDsQuery([]int64{3, 1, 2}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM articles a WHERE a.id IN ($1,$2,$3)")
	assert.Equal(t, []interface{}{int64(3), int64(1), int64(2)}, args)
}

func TestArticlesMissingContentQuery(t *testing.T) {
	query, args, err := articlesMissingContentQuery(20).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM articles a WHERE (a.content IS NULL OR a.content = $1) AND a.url <> $2")
	assert.Contains(t, query, "ORDER BY a.id LIMIT 20")
	assert.Equal(t, []interface{}{"", ""}, args)

	query, _, err = articlesMissingContentQuery(0).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "LIMIT")
}
