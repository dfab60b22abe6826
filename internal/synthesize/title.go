package synthesize

import (
	"fmt"
	"strings"
)

// CombinedTitle names an article built from several topics. Up to three names
// are joined with " & "; longer lists keep the first and count the rest.
func CombinedTitle(names []string) string {
	switch n := len(names); {
	case n == 0:
		return customTitle
	case n == 1:
		return names[0]
	case n <= maxTitleNames:
		return strings.Join(names, " & ")
	default:
		return fmt.Sprintf("%s and %d related topics", names[0], n-1)
	}
}
