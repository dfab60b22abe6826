package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("  Court narrows termination clauses ", "Body of the ruling.", 1000)

	for _, p := range ParentTopics {
		assert.Contains(t, prompt, "- "+p)
	}

	assert.Contains(t, prompt, "Criminal Law (only if directly relevant to businesses)")
	assert.Contains(t, prompt, "Employment Law subtopics:")
	assert.Contains(t, prompt, "- Severance & Termination Pay")
	assert.Contains(t, prompt, "ARTICLE TITLE: Court narrows termination clauses\n")
	assert.Contains(t, prompt, "ARTICLE CONTENT:\nBody of the ruling.\n")
	assert.Contains(t, prompt, `"smb_relevance_score"`)
	assert.NotContains(t, prompt, "{{")
}

func TestBuildPromptTruncatesContent(t *testing.T) {
	content := strings.Repeat("a", 50) + "TAIL"

	prompt := BuildPrompt("t", content, 50)

	assert.Contains(t, prompt, strings.Repeat("a", 50))
	assert.NotContains(t, prompt, "TAIL")
}
