package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/core/llm"
)

const (
	minTopics = 1
	maxTopics = 3
)

var (
	errUnknownParent    = errors.New("parent topic is not an allowed category")
	errEmptySubtopic    = errors.New("subtopic is empty")
	errEmptyTag         = errors.New("article tag is empty")
	errSubtopicIsParent = errors.New("subtopic repeats a parent topic")
	errScoreMissing     = errors.New("relevance score is missing")
	errScoreNotInteger  = errors.New("relevance score is not an integer")
	errScoreOutOfRange  = errors.New("relevance score is out of range")
)

// Assignment is one validated topic placement for an article.
type Assignment struct {
	ParentTopic    string
	Subtopic       string
	ArticleTag     string
	RelevanceScore int
	Reasoning      string
}

// Response is a validated classification answer.
type Response struct {
	Topics  []Assignment
	Summary string
}

type rawAssignment struct {
	ParentTopic    string      `json:"parent_topic"`
	Subtopic       string      `json:"subtopic"`
	ArticleTag     string      `json:"article_tag"`
	RelevanceScore json.Number `json:"smb_relevance_score"`
	Reasoning      string      `json:"reasoning"`
}

type rawResponse struct {
	Topics  []rawAssignment `json:"topics"`
	Summary string          `json:"summary"`
}

var canonicalParents = func() map[string]string {
	m := make(map[string]string, len(ParentTopics))
	for _, p := range ParentTopics {
		m[parentKey(p)] = p
	}

	return m
}()

// parentKey folds case, "and"/"&" and spacing so near-miss labels resolve.
func parentKey(label string) string {
	key := strings.ToLower(strings.Join(strings.Fields(label), " "))

	return strings.ReplaceAll(key, " and ", " & ")
}

// CanonicalParent returns the enumerated label matching label, if any.
func CanonicalParent(label string) (string, bool) {
	p, ok := canonicalParents[parentKey(label)]

	return p, ok
}

// ParseResponse extracts and validates the classifier's JSON answer. Every
// failure wraps ErrValidation.
func ParseResponse(raw string) (*Response, error) {
	payload := llm.ExtractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty response", apperrors.ErrValidation)
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var rr rawResponse
	if err := dec.Decode(&rr); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", apperrors.ErrValidation, err)
	}

	if n := len(rr.Topics); n < minTopics || n > maxTopics {
		return nil, fmt.Errorf("%w: expected %d-%d topics, got %d", apperrors.ErrValidation, minTopics, maxTopics, n)
	}

	out := &Response{
		Topics:  make([]Assignment, 0, len(rr.Topics)),
		Summary: strings.TrimSpace(rr.Summary),
	}

	if out.Summary == "" {
		return nil, fmt.Errorf("%w: summary is empty", apperrors.ErrValidation)
	}

	for i, t := range rr.Topics {
		a, err := validateAssignment(t)
		if err != nil {
			return nil, fmt.Errorf("%w: topic %d: %w", apperrors.ErrValidation, i, err)
		}

		out.Topics = append(out.Topics, a)
	}

	return out, nil
}

func validateAssignment(t rawAssignment) (Assignment, error) {
	a := Assignment{
		Subtopic:   strings.TrimSpace(t.Subtopic),
		ArticleTag: strings.TrimSpace(t.ArticleTag),
		Reasoning:  strings.TrimSpace(t.Reasoning),
	}

	parent, ok := CanonicalParent(t.ParentTopic)
	if !ok {
		return a, fmt.Errorf("%w: %q", errUnknownParent, t.ParentTopic)
	}

	a.ParentTopic = parent

	switch {
	case a.Subtopic == "":
		return a, errEmptySubtopic
	case a.ArticleTag == "":
		return a, errEmptyTag
	}

	if _, clash := CanonicalParent(a.Subtopic); clash {
		return a, fmt.Errorf("%w: %q", errSubtopicIsParent, a.Subtopic)
	}

	score, err := parseScore(t.RelevanceScore)
	if err != nil {
		return a, err
	}

	a.RelevanceScore = score

	return a, nil
}

// parseScore accepts integral numbers (9 or 9.0) within 0..10.
func parseScore(n json.Number) (int, error) {
	if n == "" {
		return 0, errScoreMissing
	}

	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q", errScoreNotInteger, n)
	}

	if f < domain.MinRelevanceScore || f > domain.MaxRelevanceScore {
		return 0, fmt.Errorf("%w: %s", errScoreOutOfRange, n)
	}

	return int(f), nil
}
