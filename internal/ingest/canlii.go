package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
)

// CanLIIDecisionCollector lists recent decisions from the CanLII case browse API.
type CanLIIDecisionCollector struct {
	fetcher  Fetcher
	apiKey   string
	maxItems int
}

func NewCanLIIDecisionCollector(fetcher Fetcher, apiKey string, maxItems int) *CanLIIDecisionCollector {
	return &CanLIIDecisionCollector{
		fetcher:  fetcher,
		apiKey:   apiKey,
		maxItems: maxItems,
	}
}

type canLIIResponse struct {
	Cases []canLIICase `json:"cases"`
}

type canLIICase struct {
	DatabaseID string       `json:"databaseId"`
	CaseID     canLIICaseID `json:"caseId"`
	Title      string       `json:"title"`
	Citation   string       `json:"citation"`
}

// canLIICaseID accepts both {"en": "2024scc1"} and a bare string.
type canLIICaseID string

func (c *canLIICaseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode case id: %w", err)
		}

		*c = canLIICaseID(s)

		return nil
	}

	var localized struct {
		En string `json:"en"`
		Fr string `json:"fr"`
	}

	if err := json.Unmarshal(data, &localized); err != nil {
		return fmt.Errorf("decode case id: %w", err)
	}

	id := localized.En
	if id == "" {
		id = localized.Fr
	}

	*c = canLIICaseID(id)

	return nil
}

func (c *CanLIIDecisionCollector) Collect(ctx context.Context, src Source) ([]domain.Article, error) {
	key := c.resolveKey(src)
	if key == "" {
		return nil, fmt.Errorf("%w: CanLII API key not set for %q", apperrors.ErrMissingCredentials, src.Name)
	}

	reqURL, err := c.requestURL(src.URL, key)
	if err != nil {
		return nil, err
	}

	body, err := c.fetcher.Fetch(ctx, reqURL, AcceptJSON)
	if err != nil {
		return nil, fmt.Errorf("fetch CanLII decisions: %w", redactURLError(err, key))
	}

	var resp canLIIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode CanLII response: %w", err)
	}

	n := capItems(len(resp.Cases), c.maxItems)
	articles := make([]domain.Article, 0, n)

	for _, cs := range resp.Cases[:n] {
		caseID := strings.TrimSpace(string(cs.CaseID))
		if caseID == "" {
			continue
		}

		db := cs.DatabaseID
		if db == "" {
			db = src.DatabaseID
		}

		title := strings.TrimSpace(cs.Title)
		if title == "" {
			title = cs.Citation
		}

		a := newArticle(src, fmt.Sprintf(canLIIDocURLFormat, url.PathEscape(db), url.PathEscape(caseID)), title)
		a.Summary = cs.Citation

		articles = append(articles, a)
	}

	return articles, nil
}

// resolveKey prefers the source's own key variable over the shared key.
func (c *CanLIIDecisionCollector) resolveKey(src Source) string {
	if src.APIKeyEnv != "" {
		if v := strings.TrimSpace(os.Getenv(src.APIKeyEnv)); v != "" {
			return v
		}
	}

	return c.apiKey
}

func (c *CanLIIDecisionCollector) requestURL(base, key string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: CanLII url: %w", apperrors.ErrInvalidInput, err)
	}

	count := c.maxItems
	if count <= 0 {
		count = defaultMaxPerSource
	}

	q := u.Query()
	q.Set(canLIIKeyParam, key)
	q.Set(canLIIOffsetParam, "0")
	q.Set(canLIICountParam, strconv.Itoa(count))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

var _ Collector = (*CanLIIDecisionCollector)(nil)
