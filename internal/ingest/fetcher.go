package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/platform/config"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
)

// ErrTooManyRedirects indicates too many HTTP redirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// Fetcher downloads one URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, accept string) ([]byte, error)
}

// WebFetcher is the shared HTTP client for every collector. A global limiter
// enforces the courtesy delay between requests and per-domain limiters keep a
// single host from being hammered.
type WebFetcher struct {
	client         *http.Client
	globalLimiter  *rate.Limiter
	domainLimiters map[string]*rate.Limiter
	domainRate     rate.Limit
	mu             sync.RWMutex
	userAgent      string
	maxBodyBytes   int64
	pages          *cache.Cache
}

func NewWebFetcher(cfg config.FetchConfig) *WebFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	// A zero delay disables throttling altogether.
	global := rate.NewLimiter(rate.Inf, 1)
	domainRate := rate.Inf

	if cfg.Delay > 0 {
		global = rate.NewLimiter(rate.Every(cfg.Delay), 1)
		domainRate = domainLimiterRate
	}

	return &WebFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}

				return nil
			},
		},
		globalLimiter:  global,
		domainLimiters: make(map[string]*rate.Limiter),
		domainRate:     domainRate,
		userAgent:      userAgent,
		maxBodyBytes:   maxBody,
		pages:          cache.New(ttl, cacheCleanupInterval),
	}
}

// Fetch performs a throttled GET and returns the (size-limited) body.
func (f *WebFetcher) Fetch(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if err := f.globalLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global rate limiter wait: %w", err)
	}

	domainLimiter := f.getDomainLimiter(extractDomain(rawURL))
	if err := domainLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("domain rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if accept == "" {
		accept = AcceptHTML
	}

	req.Header.Set(headerUserAgent, f.userAgent)
	req.Header.Set(headerAccept, accept)
	req.Header.Set(headerAcceptLanguage, acceptLanguageValue)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrHTTPStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// FetchPage is Fetch for article pages, served from the in-process cache when
// the same URL was downloaded recently.
func (f *WebFetcher) FetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	if cached, ok := f.pages.Get(rawURL); ok {
		if body, ok := cached.([]byte); ok {
			observability.ContentFetches.WithLabelValues(outcomeCached).Inc()

			return body, nil
		}
	}

	body, err := f.Fetch(ctx, rawURL, AcceptHTML)
	if err != nil {
		return nil, err
	}

	f.pages.SetDefault(rawURL, body)

	return body, nil
}

func (f *WebFetcher) getDomainLimiter(domain string) *rate.Limiter {
	f.mu.RLock()
	limiter, exists := f.domainLimiters[domain]
	f.mu.RUnlock()

	if exists {
		return limiter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if limiter, exists := f.domainLimiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(f.domainRate, domainLimiterBurst)
	f.domainLimiters[domain] = limiter

	return limiter
}

func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}

// redactURLError removes a secret from the URL recorded in a transport error.
func redactURLError(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, secret, redactedValue)
		uerr.URL = strings.ReplaceAll(uerr.URL, url.QueryEscape(secret), redactedValue)
	}

	return err
}

var _ Fetcher = (*WebFetcher)(nil)
