package classify

import (
	"strings"

	"github.com/lueurxax/legal-digest/internal/platform/htmlutils"
)

const (
	promptParentsPlaceholder   = "{{PARENT_TOPICS}}"
	promptSubtopicsPlaceholder = "{{SUBTOPICS}}"
	promptTitlePlaceholder     = "{{ARTICLE_TITLE}}"
	promptContentPlaceholder   = "{{ARTICLE_CONTENT}}"
)

// ParentTopics is the closed set of parent categories the classifier may assign.
var ParentTopics = []string{
	"Employment Law",
	"Contract Law",
	"Privacy & Data Protection",
	"Corporate Governance",
	"Tax Law",
	"Intellectual Property",
	"Business Torts",
	"Technology & AI Law",
	"Real Estate & Leasing",
	"Regulatory Compliance",
	"Criminal Law",
}

// parentHints qualify a parent label in the prompt without changing the label.
var parentHints = map[string]string{
	"Criminal Law": "only if directly relevant to businesses",
}

type subtopicGroup struct {
	parent    string
	subtopics []string
}

// preferredSubtopics are suggested, not enforced.
var preferredSubtopics = []subtopicGroup{
	{parent: "Employment Law", subtopics: []string{
		"Wrongful Dismissal",
		"Workplace Harassment & Discrimination",
		"Employment Contracts & Termination",
		"Employee Classification & Rights",
		"Workplace Safety & Accommodation",
		"Severance & Termination Pay",
		"Employment Standards & Leaves",
	}},
	{parent: "Contract Law", subtopics: []string{
		"Contract Formation & Interpretation",
		"Breach of Contract",
		"Restrictive Covenants",
		"Service Agreements",
	}},
	{parent: "Privacy & Data Protection", subtopics: []string{
		"Data Breach Response",
		"PIPEDA Compliance",
		"AI & Data Governance",
		"Government Data Access",
	}},
	{parent: "Tax Law", subtopics: []string{
		"Corporate Tax",
		"CRA Assessments & Appeals",
		"Digital Services Tax",
		"Payroll Tax",
	}},
	{parent: "Technology & AI Law", subtopics: []string{
		"AI Regulation & Compliance",
		"AI Liability & Ethics",
		"Digital Communications",
	}},
	{parent: "Corporate Governance", subtopics: []string{
		"Director & Officer Duties",
		"Shareholder Rights",
		"Corporate Compliance",
	}},
	{parent: "Intellectual Property", subtopics: []string{
		"Copyright",
		"Trademarks",
		"Trade Secrets",
	}},
	{parent: "Regulatory Compliance", subtopics: []string{
		"Professional Conduct",
		"Industry Regulations",
		"Administrative Law",
	}},
}

const defaultClassifyPrompt = `You are a legal expert analyzing Canadian legal articles for small and medium-sized business (SMB) owners.
Return STRICT JSON ONLY. Use double quotes. No trailing commas. No markdown. No extra keys.

Task: extract 1-3 primary legal topics from the article below using a TWO-LEVEL hierarchy and score their relevance to SMBs.

1. PARENT TOPIC (broad category). Choose ONLY from:
{{PARENT_TOPICS}}

2. SUBTOPIC (specific focus). Use these standard subtopics whenever possible; create a new one only if none fits.
{{SUBTOPICS}}
   For other parent topics, create concise (2-4 word) subtopics focused on the main legal issue.
   A subtopic must never repeat a parent topic name.

3. ARTICLE TAG (specific aspect): 5-8 words describing what THIS article discusses that sets it apart from others on the same subtopic.
   Examples:
   * Wrongful Dismissal -> "Wrongful dismissal during pregnancy leave"
   * Data Breach Response -> "PIPEDA breach notification requirements"
   * Contract Formation & Interpretation -> "Force majeure clauses in commercial leases"

SCORING GUIDELINES (integer 0-10):
- 9-10: critical for SMBs (employment standards, contract basics, tax obligations)
- 7-8: highly relevant (intellectual property, commercial leases, privacy compliance)
- 5-6: moderately relevant (corporate governance, regulatory compliance)
- 3-4: somewhat relevant (complex M&A, securities law)
- 0-2: low relevance (constitutional law, criminal law)

ARTICLE TITLE: {{ARTICLE_TITLE}}

ARTICLE CONTENT:
{{ARTICLE_CONTENT}}

Respond with a single JSON object of this exact shape:
{
  "topics": [
    {
      "parent_topic": "Employment Law",
      "subtopic": "Wrongful Dismissal",
      "article_tag": "Wrongful dismissal during pregnancy leave",
      "smb_relevance_score": 9,
      "reasoning": "Brief explanation of why this matters for SMBs"
    }
  ],
  "summary": "One-sentence summary of the article"
}`

// BuildPrompt renders the classification instruction for one article.
// Content is cut to maxChars runes.
func BuildPrompt(title, content string, maxChars int) string {
	r := strings.NewReplacer(
		promptParentsPlaceholder, renderParents(),
		promptSubtopicsPlaceholder, renderSubtopics(),
		promptTitlePlaceholder, strings.TrimSpace(title),
		promptContentPlaceholder, htmlutils.TruncateRunes(strings.TrimSpace(content), maxChars),
	)

	return r.Replace(defaultClassifyPrompt)
}

func renderParents() string {
	var sb strings.Builder

	for _, p := range ParentTopics {
		sb.WriteString("   - ")
		sb.WriteString(p)

		if hint, ok := parentHints[p]; ok {
			sb.WriteString(" (")
			sb.WriteString(hint)
			sb.WriteString(")")
		}

		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func renderSubtopics() string {
	var sb strings.Builder

	for _, g := range preferredSubtopics {
		sb.WriteString("   ")
		sb.WriteString(g.parent)
		sb.WriteString(" subtopics:\n")

		for _, s := range g.subtopics {
			sb.WriteString("   - ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
