package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/core/llm"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
	db "github.com/lueurxax/legal-digest/internal/storage"
)

const (
	// parentRelevanceScore is fixed: parents are containers, not scored on their own.
	parentRelevanceScore = domain.MaxRelevanceScore

	defaultQuotaStopAfter  = 3
	defaultMaxPromptChars  = 10000
	statusSuccess          = "success"
	statusValidationFailed = "validation_failed"
	statusError            = "error"
	statusQuota            = "quota"

	logKeyArticleID = "article_id"
	logKeyTitle     = "title"
	logKeyTopicID   = "topic_id"
	logKeyRaw       = "raw_response"
)

// Repository is the slice of the store the classifier reads and writes.
type Repository interface {
	GetUnprocessedArticles(ctx context.Context) ([]domain.Article, error)
	FindOrCreateTopic(ctx context.Context, in domain.TopicInput) (int64, error)
	LinkArticleToTopic(ctx context.Context, articleID, topicID int64, tag string) (bool, error)
	MarkProcessed(ctx context.Context, id int64) error
}

// Client is the LLM surface the classifier needs.
type Client interface {
	llm.Client
	HasAvailable(task llm.TaskType) bool
}

// Options tunes a Classifier.
type Options struct {
	// Model overrides the first provider's model for the classify task.
	Model string
	// MaxContentChars bounds the article text sent in the prompt.
	MaxContentChars int
	// QuotaStopAfter ends the run after this many consecutive quota failures.
	QuotaStopAfter int
}

// Result summarizes one classification run.
type Result struct {
	Total        int
	Succeeded    int
	Failed       int
	Remaining    int
	TopicsLinked int
	StoppedEarly bool
	Duration     time.Duration
}

// Classifier assigns taxonomy topics to unprocessed articles, one at a time.
type Classifier struct {
	repo   Repository
	client Client
	opts   Options
	logger *zerolog.Logger
}

func New(repo Repository, client Client, opts Options, logger *zerolog.Logger) *Classifier {
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = defaultMaxPromptChars
	}

	if opts.QuotaStopAfter <= 0 {
		opts.QuotaStopAfter = defaultQuotaStopAfter
	}

	return &Classifier{
		repo:   repo,
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Run classifies every unprocessed article. Per-article failures are counted
// and the article stays unprocessed for the next run. After QuotaStopAfter
// consecutive quota failures the run stops with ErrQuotaExhausted and the
// partial result.
func (c *Classifier) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		observability.StageDurationSeconds.WithLabelValues(observability.StageClassify).Observe(res.Duration.Seconds())
	}()

	if !c.client.HasAvailable(llm.TaskTypeClassify) {
		return res, fmt.Errorf("%w: no classification provider configured", apperrors.ErrMissingCredentials)
	}

	articles, err := c.repo.GetUnprocessedArticles(ctx)
	if err != nil {
		return res, fmt.Errorf("load unprocessed articles: %w", err)
	}

	res.Total = len(articles)
	observability.UnprocessedArticles.Set(float64(len(articles)))

	if len(articles) == 0 {
		c.logger.Info().Msg("no unprocessed articles")

		return res, nil
	}

	c.logger.Info().Int("count", len(articles)).Msg("classifying articles")

	consecutiveQuota := 0

	for i, a := range articles {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Remaining = len(articles) - i

			return res, fmt.Errorf("classification interrupted: %w", ctxErr)
		}

		parsed, err := c.ClassifyArticle(ctx, a)
		if err != nil {
			res.Failed++

			if llm.IsQuota(err) {
				consecutiveQuota++
			} else {
				consecutiveQuota = 0
			}

			if consecutiveQuota >= c.opts.QuotaStopAfter {
				res.Remaining = len(articles) - i - 1
				res.StoppedEarly = true

				c.logger.Warn().
					Int("consecutive_failures", consecutiveQuota).
					Int("remaining", res.Remaining).
					Msg("classification quota exhausted, stopping")

				return res, fmt.Errorf("%w: %d consecutive quota failures", apperrors.ErrQuotaExhausted, consecutiveQuota)
			}

			continue
		}

		consecutiveQuota = 0
		res.Succeeded++
		res.TopicsLinked += len(parsed.Topics)
		observability.UnprocessedArticles.Dec()
	}

	c.logger.Info().
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Msg("classification complete")

	return res, nil
}

// ClassifyArticle asks the model for topics for one article and persists them.
// The article is marked processed only after every topic has been stored.
func (c *Classifier) ClassifyArticle(ctx context.Context, a domain.Article) (*Response, error) {
	logger := c.logger.With().Int64(logKeyArticleID, a.ID).Logger()

	content := a.Content
	if content == "" {
		content = a.Summary
	}

	resp, err := c.client.Complete(ctx, llm.Request{
		Task:   llm.TaskTypeClassify,
		Prompt: BuildPrompt(a.Title, content, c.opts.MaxContentChars),
		Model:  c.opts.Model,
		JSON:   true,
	})
	if err != nil {
		status := statusError
		if llm.IsQuota(err) {
			status = statusQuota
		}

		observability.ArticlesClassified.WithLabelValues(status).Inc()
		logger.Error().Err(err).Str(logKeyTitle, a.Title).Msg("classification request failed")

		return nil, fmt.Errorf("classify article %d: %w", a.ID, err)
	}

	parsed, err := ParseResponse(resp.Text)
	if err != nil {
		observability.ArticlesClassified.WithLabelValues(statusValidationFailed).Inc()
		logger.Error().Err(err).Str(logKeyRaw, resp.Text).Msg("invalid classification response")

		return nil, fmt.Errorf("classify article %d: %w", a.ID, err)
	}

	if err := c.persist(ctx, a.ID, parsed, &logger); err != nil {
		observability.ArticlesClassified.WithLabelValues(statusError).Inc()
		logger.Error().Err(err).Msg("failed to store classification")

		return nil, fmt.Errorf("classify article %d: %w", a.ID, err)
	}

	observability.ArticlesClassified.WithLabelValues(statusSuccess).Inc()

	return parsed, nil
}

func (c *Classifier) persist(ctx context.Context, articleID int64, parsed *Response, logger *zerolog.Logger) error {
	for _, t := range parsed.Topics {
		parentID, err := c.repo.FindOrCreateTopic(ctx, domain.TopicInput{
			Name:           t.ParentTopic,
			Category:       t.ParentTopic,
			RelevanceScore: parentRelevanceScore,
			IsParent:       true,
		})
		if err != nil {
			return fmt.Errorf("parent topic %q: %w", t.ParentTopic, err)
		}

		subtopicID, err := c.repo.FindOrCreateTopic(ctx, domain.TopicInput{
			Name:           t.Subtopic,
			Category:       t.ParentTopic,
			RelevanceScore: t.RelevanceScore,
			ParentID:       &parentID,
		})
		if err != nil {
			return fmt.Errorf("subtopic %q: %w", t.Subtopic, err)
		}

		linked, err := c.repo.LinkArticleToTopic(ctx, articleID, subtopicID, t.ArticleTag)
		if err != nil {
			return fmt.Errorf("link topic %d: %w", subtopicID, err)
		}

		if linked {
			observability.TopicsLinked.Inc()
		}

		logger.Debug().
			Int64(logKeyTopicID, subtopicID).
			Str("parent", t.ParentTopic).
			Str("subtopic", t.Subtopic).
			Str("tag", t.ArticleTag).
			Int("score", t.RelevanceScore).
			Msg("linked article to subtopic")
	}

	if err := c.repo.MarkProcessed(ctx, articleID); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	return nil
}

// IsQuotaStop reports whether err is the classifier's quota stop condition.
func IsQuotaStop(err error) bool {
	return errors.Is(err, apperrors.ErrQuotaExhausted)
}

var (
	_ Repository = (*db.DB)(nil)
	_ Client     = (*llm.Registry)(nil)
)
