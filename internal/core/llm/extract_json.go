package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the outermost JSON object out of a model reply that may
// carry a preamble or markdown fences. Arrays are accepted when no object is
// present. The trimmed input is returned when nothing parses.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if candidate, ok := outermost(text, "{", "}"); ok {
		return candidate
	}

	if candidate, ok := outermost(text, "[", "]"); ok {
		return candidate
	}

	return text
}

func outermost(text, open, closing string) (string, bool) {
	start := strings.Index(text, open)
	end := strings.LastIndex(text, closing)

	if start == -1 || end == -1 || end <= start {
		return "", false
	}

	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}

	return candidate, true
}
