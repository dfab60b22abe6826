package synthesize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lueurxax/legal-digest/internal/core/domain"
)

const (
	placeholderCount   = "{{ARTICLE_COUNT}}"
	placeholderTopic   = "{{TOPIC}}"
	placeholderSources = "{{SOURCE_ARTICLES}}"

	unknownPublished = "Unknown"
)

const defaultSynthesisPrompt = `You are a legal content writer specializing in making Canadian legal topics accessible to small and medium-sized business (SMB) owners.

Your task: Synthesize the following {{ARTICLE_COUNT}} legal articles about "{{TOPIC}}" into ONE comprehensive article for SMB owners.

SYNTHESIS REQUIREMENTS:

1. Target Audience: Canadian SMB owners (10-500 employees) with no legal background
   - Explain legal concepts in plain language
   - Focus on practical implications, not theory
   - Assume the reader needs actionable guidance

2. Content Strategy:
   - Identify 3-5 key themes across the source articles
   - Combine complementary perspectives from different sources
   - Resolve contradictions by explaining context
   - Extract practical takeaways and action items
   - Include real-world examples when available

3. Structure (use this format):
   - Opening: Why this topic matters for SMBs (2-3 paragraphs)
   - Key Insights: 3-5 main themes with explanations
   - Practical Implications: What this means for your business
   - Action Items: Concrete steps SMBs should take
   - Resources: Where to get help (lawyers, government resources)

4. Tone & Style:
   - Professional but conversational
   - Clear and direct, no legal jargon without explanation
   - Address the reader as "you"
   - Prefer active voice

5. Length: Aim for 1500-2000 words.

6. Citations: When referencing specific cases, legislation or facts, mention the source informally (e.g. "According to analysis from Monkhouse Law...").

SOURCE ARTICLES:
{{SOURCE_ARTICLES}}

Write the synthesized article now. Output Markdown with a single # title, ## for sections and ### for subsections.
Begin with the article title as the # heading, then write the full article.`

// BuildPrompt renders the synthesis prompt for the selected articles.
func BuildPrompt(topic string, articles []domain.Article) string {
	r := strings.NewReplacer(
		placeholderCount, strconv.Itoa(len(articles)),
		placeholderTopic, topic,
		placeholderSources, renderSources(articles),
	)

	return r.Replace(defaultSynthesisPrompt)
}

func renderSources(articles []domain.Article) string {
	var sb strings.Builder

	for i, a := range articles {
		published := a.Published
		if published == "" {
			published = unknownPublished
		}

		fmt.Fprintf(&sb, "\n---\nSOURCE ARTICLE %d\nTitle: %s\nSource: %s\nPublished: %s\nURL: %s\n\nContent:\n%s\n---\n",
			i+1, a.Title, a.Source, published, a.URL, a.Content)
	}

	return sb.String()
}
