package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIDs reads a comma-separated list of positive ids. Blank input yields nil.
func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}

		ids = append(ids, id)
	}

	return ids, nil
}
