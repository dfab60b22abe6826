package db

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 10
	defaultMinConns          int32         = 1
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

// Advisory lock identifiers
const (
	migrationLockID = 1000
	// RunLockID serializes pipeline runs across processes.
	RunLockID int64 = 1001
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// Log field keys
const (
	logFieldArticleURL = "url"
	logFieldSource     = "source"
)

// psql builds statements with PostgreSQL positional placeholders.
//
//nolint:gochecknoglobals
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
