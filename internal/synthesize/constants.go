package synthesize

const (
	defaultMinContentChars = 100
	defaultMaxTokens       = 4096
	defaultOutputDir       = "output/generated_articles"

	// maxTitleNames is the most topic names joined into a combined title.
	maxTitleNames = 3

	customTitle   = "Custom Article"
	fallbackName  = "article"
	fileDateStamp = "2006_01_02"
	fileExt       = ".md"
	tempPattern   = ".synth-*.tmp"

	dirPerm  = 0o755
	filePerm = 0o644

	markdownContentType = "text/markdown; charset=utf-8"
)

// Outcome labels for observability.Syntheses.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusQuota   = "quota"
	statusEmpty   = "no_articles"
)

// Log field keys.
const (
	logKeyTopicID = "topic_id"
	logKeyTitle   = "title"
	logKeyPath    = "path"
	logKeySources = "sources"
	logKeyModel   = "model"
)
