package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Summary renders the human-readable end-of-run report.
func (r *Result) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Pipeline run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))

	if r.Fetch != nil {
		fmt.Fprintf(&sb, "Fetch:     %d collected, %d new, %d duplicates", r.Fetch.Collected(), r.Fetch.Inserted, r.Fetch.Skipped)

		if r.Fetch.Refilled > 0 {
			fmt.Fprintf(&sb, ", %d refilled", r.Fetch.Refilled)
		}

		if n := len(r.Fetch.FailedSources); n > 0 {
			fmt.Fprintf(&sb, ", %d failed sources (%s)", n, strings.Join(r.Fetch.FailedSources, ", "))
		}

		sb.WriteString("\n")
	}

	if r.Classify != nil {
		fmt.Fprintf(&sb, "Classify:  %d classified, %d failed", r.Classify.Succeeded, r.Classify.Failed)

		if r.ClassifyStoppedEarly {
			fmt.Fprintf(&sb, ", stopped on quota with %d remaining", r.Classify.Remaining)
		}

		sb.WriteString("\n")
	}

	if r.Generate != nil {
		fmt.Fprintf(&sb, "Generate:  %d of %d topics synthesized", r.Generate.Succeeded, r.Generate.Candidates)

		if r.GenerateStoppedEarly {
			sb.WriteString(", stopped on quota")
		}

		sb.WriteString("\n")

		for _, path := range r.Artifacts {
			fmt.Fprintf(&sb, "  - %s\n", path)
		}
	}

	sb.WriteString("\nStore:\n")
	fmt.Fprintf(&sb, "  Articles:     %d total, %d unprocessed\n", r.Stats.TotalArticles, r.Stats.UnprocessedArticles)
	fmt.Fprintf(&sb, "  Topics:       %d\n", r.Stats.TotalTopics)
	fmt.Fprintf(&sb, "  Links:        %d\n", r.Stats.TotalLinks)
	fmt.Fprintf(&sb, "  Generations:  %d\n", r.Stats.TotalGenerations)

	if len(r.TopTopics) > 0 {
		sb.WriteString("\nTop topics:\n")

		for i, t := range r.TopTopics {
			fmt.Fprintf(&sb, "  %d. %s - %d articles (SMB: %d/10)\n", i+1, t.Name, t.ArticleCount, t.RelevanceScore)
		}
	}

	return sb.String()
}
