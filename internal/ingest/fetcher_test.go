package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/platform/config"
)

const testUserAgent = "legal-digest-test/1.0"

func newTestFetcher(t *testing.T) *WebFetcher {
	t.Helper()

	return NewWebFetcher(config.FetchConfig{
		UserAgent: testUserAgent,
		Timeout:   5 * time.Second,
	})
}

func TestNewWebFetcherDefaults(t *testing.T) {
	f := NewWebFetcher(config.FetchConfig{})

	require.NotNil(t, f.client)
	assert.Equal(t, defaultFetchTimeout, f.client.Timeout)
	assert.Equal(t, defaultUserAgent, f.userAgent)
	assert.Equal(t, int64(defaultMaxBodyBytes), f.maxBodyBytes)
	assert.NotNil(t, f.pages)
}

func TestWebFetcherSendsHeaders(t *testing.T) {
	var gotUA, gotAccept string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get(headerUserAgent)
		gotAccept = r.Header.Get(headerAccept)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher(t).Fetch(context.Background(), srv.URL, AcceptFeed)
	require.NoError(t, err)

	assert.Equal(t, "ok", string(body))
	assert.Equal(t, testUserAgent, gotUA)
	assert.Equal(t, AcceptFeed, gotAccept)
}

func TestWebFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), srv.URL, "")
	require.ErrorIs(t, err, apperrors.ErrHTTPStatus)
	assert.Contains(t, err.Error(), "403")
}

func TestWebFetcherLimitsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	f := NewWebFetcher(config.FetchConfig{MaxBodyBytes: 100})

	body, err := f.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Len(t, body, 100)
}

func TestWebFetcherFetchPageCaches(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)

	for i := 0; i < 3; i++ {
		body, err := f.FetchPage(context.Background(), srv.URL+"/decision")
		require.NoError(t, err)
		assert.Contains(t, string(body), "page")
	}

	assert.Equal(t, int32(1), hits.Load())
}

func TestWebFetcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(t).Fetch(ctx, "http://127.0.0.1:1/", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{rawURL: "https://www.slaw.ca/feed/", want: "www.slaw.ca"},
		{rawURL: "https://API.CanLII.org/v1/", want: "api.canlii.org"},
		{rawURL: "http://localhost:8080/x", want: "localhost:8080"},
		{rawURL: "::not a url", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.rawURL, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDomain(tt.rawURL))
		})
	}
}

func TestRedactURLError(t *testing.T) {
	err := fmt.Errorf("execute request: %w", &url.Error{
		Op:  "Get",
		URL: "https://api.canlii.org/v1/caseBrowse/en/onca/?api_key=s3cr3t&offset=0",
		Err: errors.New("connection refused"),
	})

	got := redactURLError(err, "s3cr3t")

	assert.NotContains(t, got.Error(), "s3cr3t")
	assert.Contains(t, got.Error(), redactedValue)
	assert.Contains(t, got.Error(), "connection refused")
}
