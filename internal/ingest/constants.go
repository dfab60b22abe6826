package ingest

import "time"

// HTTP header values
const (
	headerUserAgent      = "User-Agent"
	headerAccept         = "Accept"
	headerAcceptLanguage = "Accept-Language"

	AcceptHTML = "text/html,application/xhtml+xml"
	AcceptFeed = "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5"
	AcceptJSON = "application/json"

	acceptLanguageValue = "en-CA,en;q=0.9,fr-CA;q=0.5"
)

// Fetcher defaults
const (
	defaultFetchTimeout    = 30 * time.Second
	defaultUserAgent       = "CanadianLegalNewsPipeline/1.0 (Educational Research Bot)"
	defaultMaxBodyBytes    = 5 * 1024 * 1024
	defaultCacheTTL        = time.Hour
	cacheCleanupInterval   = 10 * time.Minute
	maxRedirects           = 5
	domainLimiterRate      = 1
	domainLimiterBurst     = 2
	defaultMaxPerSource    = 50
	defaultContentMaxChars = 10000

	// refillBatchSize caps how many stored rows without content are retried per run.
	refillBatchSize = 20

	// thinContentChars is the length below which the selector-based text is
	// considered a miss and readability is tried instead.
	thinContentChars = 200
)

// CanLII
const (
	canLIIDocURLFormat = "https://www.canlii.org/en/%s/doc/%s/index.html"
	canLIIOffsetParam  = "offset"
	canLIICountParam   = "resultCount"
	canLIIKeyParam     = "api_key"
	redactedValue      = "REDACTED"
)

// Metric outcome labels
const (
	outcomeInserted = "inserted"
	outcomeSkipped  = "skipped"
	outcomeSuccess  = "success"
	outcomeEmpty    = "empty"
	outcomeError    = "error"
	outcomeCached   = "cached"
)

// Log field keys
const (
	logKeySource    = "source"
	logKeyKind      = "kind"
	logKeyURL       = "url"
	logKeyCount     = "count"
	logKeyInserted  = "inserted"
	logKeySkipped   = "skipped"
	logKeyFailed    = "failed"
	logKeyRefilled  = "refilled"
	logKeyArticleID = "article_id"
)
