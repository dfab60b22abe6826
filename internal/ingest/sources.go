package ingest

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
)

// Kind selects the collector used for a source.
type Kind string

const (
	KindRSS    Kind = "rss"
	KindAPI    Kind = "api"
	KindScrape Kind = "scrape"
)

// Selectors are the CSS selectors used by the scrape collector.
type Selectors struct {
	Container string `yaml:"container"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	Date      string `yaml:"date"`
}

// Source describes one place articles are collected from.
type Source struct {
	Name        string    `yaml:"name"`
	Kind        Kind      `yaml:"type"`
	URL         string    `yaml:"url"`
	Category    string    `yaml:"category"`
	Description string    `yaml:"description,omitempty"`
	DatabaseID  string    `yaml:"database_id,omitempty"`
	APIKeyEnv   string    `yaml:"api_key_env,omitempty"`
	Selectors   Selectors `yaml:"selectors,omitempty"`
}

// Validate checks that a source can be dispatched to a collector.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: source name is empty", apperrors.ErrInvalidInput)
	}

	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: source %q has invalid url %q", apperrors.ErrInvalidInput, s.Name, s.URL)
	}

	switch s.Kind {
	case KindRSS, KindAPI:
	case KindScrape:
		if s.Selectors.Container == "" || s.Selectors.Title == "" || s.Selectors.Link == "" {
			return fmt.Errorf("%w: scrape source %q needs container, title and link selectors", apperrors.ErrInvalidInput, s.Name)
		}
	default:
		return fmt.Errorf("%w: source %q has unknown type %q", apperrors.ErrInvalidInput, s.Name, s.Kind)
	}

	return nil
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads a YAML source list. An empty path returns DefaultSources.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	return ParseSources(raw)
}

// ParseSources decodes and validates a YAML source list.
func ParseSources(raw []byte) ([]Source, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}

	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("%w: sources list is empty", apperrors.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(f.Sources))

	for _, s := range f.Sources {
		if err := s.Validate(); err != nil {
			return nil, err
		}

		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate source name %q", apperrors.ErrInvalidInput, s.Name)
		}

		seen[s.Name] = true
	}

	return f.Sources, nil
}

// DefaultSources returns the built-in Canadian legal source list.
func DefaultSources() []Source {
	return []Source{
		{
			Name:        "Slaw",
			Kind:        KindRSS,
			URL:         "https://www.slaw.ca/feed/",
			Category:    "legal_magazine",
			Description: "Canada's online legal magazine",
		},
		{
			Name:        "Michael Geist",
			Kind:        KindRSS,
			URL:         "http://www.michaelgeist.ca/feed/",
			Category:    "technology_law",
			Description: "Technology and privacy law commentary",
		},
		{
			Name:        "McCarthy Tétrault - Employer Advisor",
			Kind:        KindRSS,
			URL:         "https://www.mccarthy.ca/en/insights/blogs/canadian-employer-advisor/rss.xml",
			Category:    "employment_law",
			Description: "Canadian employment law updates",
		},
		{
			Name:        "Monkhouse Law",
			Kind:        KindRSS,
			URL:         "https://www.monkhouselaw.com/feed/",
			Category:    "employment_law",
			Description: "Ontario employment law blog",
		},
		{
			Name:        "Rudner Law",
			Kind:        KindRSS,
			URL:         "https://www.rudnerlaw.ca/feed/",
			Category:    "employment_law",
			Description: "Employment law insights",
		},
		{
			Name:        "CanLII - Supreme Court",
			Kind:        KindAPI,
			URL:         "https://api.canlii.org/v1/caseBrowse/en/csc-scc/",
			Category:    "case_law",
			Description: "Supreme Court of Canada decisions via CanLII",
			DatabaseID:  "csc-scc",
			APIKeyEnv:   "CANLII_API_KEY",
		},
		{
			Name:        "CanLII - Ontario Court of Appeal",
			Kind:        KindAPI,
			URL:         "https://api.canlii.org/v1/caseBrowse/en/onca/",
			Category:    "case_law",
			Description: "Ontario Court of Appeal decisions via CanLII",
			DatabaseID:  "onca",
			APIKeyEnv:   "CANLII_API_KEY",
		},
		{
			Name:        "Ontario Court of Appeal",
			Kind:        KindScrape,
			URL:         "https://coadecisions.ontariocourts.ca/coa/coa/en/nav_date.do",
			Category:    "case_law",
			Description: "Recent Ontario Court of Appeal decisions",
			Selectors: Selectors{
				Container: ".decision-row",
				Title:     "h3",
				Link:      "a",
				Date:      ".date",
			},
		},
		{
			Name:        "Supreme Court of Canada",
			Kind:        KindScrape,
			URL:         "https://decisions.scc-csc.ca/scc-csc/scc-csc/en/nav_date.do",
			Category:    "case_law",
			Description: "Recent Supreme Court of Canada judgments",
			Selectors: Selectors{
				Container: ".decision-item",
				Title:     ".decision-title",
				Link:      "a",
				Date:      ".decision-date",
			},
		},
	}
}
