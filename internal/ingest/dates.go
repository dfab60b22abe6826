package ingest

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// NormalizeDate renders a source date as RFC 3339 in UTC. Dates that cannot
// be parsed are kept verbatim (trimmed) so nothing the source said is lost.
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return raw
	}

	return t.UTC().Format(time.RFC3339)
}

// formatTime renders a parsed feed time, or falls back to the raw text.
func formatTime(t *time.Time, raw string) string {
	if t != nil && !t.IsZero() {
		return t.UTC().Format(time.RFC3339)
	}

	return NormalizeDate(raw)
}
