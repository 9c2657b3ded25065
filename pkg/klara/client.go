package klara

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/illmade-knight/go-klaracatalog/pkg/cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	articlesPath   = "articles"
	categoriesPath = "article-categories"

	// maxErrorBody bounds how much of a failed response is logged.
	maxErrorBody = 2048
	// maxResponseBody bounds a successful response.
	maxResponseBody = 64 << 20
)

var placeholderKeys = []string{"", "your-api-key", "your_api_key", "placeholder", "changeme"}

// Config holds the settings for the KLARA client.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	UseMock   bool          `yaml:"use_mock"`
	Timeout   time.Duration `yaml:"timeout"`
	PageSize  int           `yaml:"page_size"`
	Language  string        `yaml:"language"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// DefaultConfig returns the production defaults without credentials.
func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		PageSize: 1000,
		Language: "de",
		CacheTTL: cache.DefaultTTL,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	return c
}

// credentialsConfigured reports whether a live API call can be attempted.
func (c Config) credentialsConfigured() bool {
	if strings.TrimSpace(c.BaseURL) == "" {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(c.APIKey))
	return !slices.Contains(placeholderKeys, key)
}

// fetchStatus distinguishes a real result from a degraded empty one.
type fetchStatus int

const (
	statusOK fetchStatus = iota
	statusUnconfigured
	statusUpstreamUnavailable
)

func (s fetchStatus) String() string {
	switch s {
	case statusOK:
		return "ok"
	case statusUnconfigured:
		return "unconfigured"
	case statusUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "unknown"
	}
}

type fetchResult struct {
	listing Listing
	status  fetchStatus
}

// upstreamStatusError is returned for non-2xx responses.
type upstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Client fetches articles and categories from KLARA through a cache.
type Client struct {
	cfg        Config
	httpClient *http.Client
	store      cache.Store[string, Listing]
	group      singleflight.Group
	logger     zerolog.Logger
}

// NewClient creates a KLARA client. A nil httpClient gets one with the
// configured timeout.
func NewClient(
	cfg Config,
	store cache.Store[string, Listing],
	httpClient *http.Client,
	logger zerolog.Logger,
) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store cannot be nil")
	}
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	clientLogger := logger.With().Str("component", "KlaraClient").Logger()
	switch {
	case cfg.UseMock:
		clientLogger.Info().Msg("KLARA client running in mock mode.")
	case !cfg.credentialsConfigured():
		clientLogger.Warn().Msg("KLARA API URL or key missing; catalog will be empty.")
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		store:      store,
		logger:     clientLogger,
	}, nil
}

// FetchArticles returns the catalog articles, optionally filtered by category
// and by a case-insensitive substring of name or article number. It never
// returns an error; on any upstream failure the result is empty.
func (c *Client) FetchArticles(ctx context.Context, categoryID, search string) []Article {
	key := ArticlesKey(categoryID, search)
	listing := c.cached(ctx, key, func(ctx context.Context) fetchResult {
		return c.loadArticles(ctx, categoryID, search)
	})
	return cloneOrEmpty(listing.Articles)
}

// FetchCategories returns all categories sorted by their order field.
func (c *Client) FetchCategories(ctx context.Context) []Category {
	listing := c.cached(ctx, CategoriesKey(), c.loadCategories)
	return cloneOrEmpty(listing.Categories)
}

// CountArticlesInCategory returns the number of articles in categoryID. It
// shares the cache line of FetchArticles(ctx, categoryID, "").
func (c *Client) CountArticlesInCategory(ctx context.Context, categoryID string) int {
	return len(c.FetchArticles(ctx, categoryID, ""))
}

// InvalidateAll drops every cached listing so the next read goes upstream.
func (c *Client) InvalidateAll(ctx context.Context) {
	c.store.Clear(ctx)
	c.logger.Info().Msg("KLARA cache cleared.")
}

// Stats returns the cache contents if the configured store can report them.
func (c *Client) Stats() (cache.CacheStats, bool) {
	sr, ok := c.store.(cache.StatsReporter)
	if !ok {
		return cache.CacheStats{}, false
	}
	return sr.Stats(), true
}

// cloneOrEmpty copies a cached slice so callers cannot mutate the cache, and
// never returns nil so an empty catalog serializes as [].
func cloneOrEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return []T{}
	}
	return slices.Clone(s)
}

// cached is the read-through path shared by every fetch. Concurrent misses on
// the same key share one load. Only successful loads are stored.
//
// The shared load runs detached from the caller that started it, bounded by
// the configured timeout, so one cancelled request cannot empty the result of
// the callers waiting with it. Each caller still stops waiting when its own
// context is done.
func (c *Client) cached(ctx context.Context, key string, load func(context.Context) fetchResult) Listing {
	if listing, ok := c.store.Get(ctx, key); ok {
		c.logger.Debug().Str("cache_key", key).Msg("Cache hit.")
		return listing
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		res := load(loadCtx)
		if res.status == statusOK {
			c.store.SetWithTTL(loadCtx, key, res.listing, c.cfg.CacheTTL)
		}
		c.logger.Debug().
			Str("cache_key", key).
			Str("status", res.status.String()).
			Int("article_count", len(res.listing.Articles)).
			Int("category_count", len(res.listing.Categories)).
			Msg("Cache miss resolved.")
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			c.logger.Debug().Str("cache_key", key).Msg("Shared an in-flight fetch.")
		}
		return r.Val.(fetchResult).listing
	case <-ctx.Done():
		c.logger.Debug().Err(ctx.Err()).Str("cache_key", key).Msg("Caller stopped waiting for catalog fetch.")
		return Listing{}
	}
}

func (c *Client) loadArticles(ctx context.Context, categoryID, search string) fetchResult {
	records, status := c.loadRecords(ctx, articlesPath, mockArticlesJSON, "articles")
	if status != statusOK {
		return fetchResult{status: status}
	}

	categoryID, search = normalizeQuery(categoryID, search)
	articles := make([]Article, 0, len(records))
	for _, rec := range records {
		var raw rawArticle
		if err := json.Unmarshal(rec, &raw); err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed KLARA article record.")
			continue
		}
		article, ok := normalizeArticle(raw)
		if !ok {
			c.logger.Warn().Msg("Skipping KLARA article without id or article number.")
			continue
		}
		if matchesFilter(article, categoryID, search) {
			articles = append(articles, article)
		}
	}
	return fetchResult{listing: Listing{Articles: articles}, status: statusOK}
}

func (c *Client) loadCategories(ctx context.Context) fetchResult {
	records, status := c.loadRecords(ctx, categoriesPath, mockCategoriesJSON, "categories")
	if status != statusOK {
		return fetchResult{status: status}
	}

	categories := make([]Category, 0, len(records))
	for _, rec := range records {
		var raw rawCategory
		if err := json.Unmarshal(rec, &raw); err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed KLARA category record.")
			continue
		}
		if category, ok := normalizeCategory(raw); ok {
			categories = append(categories, category)
		}
	}
	sortCategories(categories)
	return fetchResult{listing: Listing{Categories: categories}, status: statusOK}
}

// loadRecords returns the raw records of one endpoint from the mock dataset
// or the live API, mapping every failure to a non-OK status.
func (c *Client) loadRecords(ctx context.Context, path, mockBody, wrapperKey string) ([]json.RawMessage, fetchStatus) {
	var body []byte
	switch {
	case c.cfg.UseMock:
		body = []byte(mockBody)
	case !c.cfg.credentialsConfigured():
		c.logger.Warn().Str("endpoint", path).Msg("KLARA credentials missing or placeholder; returning empty result.")
		return nil, statusUnconfigured
	default:
		var err error
		body, err = c.get(ctx, path)
		if err != nil {
			c.logUpstreamError(path, err)
			return nil, statusUpstreamUnavailable
		}
	}

	records, err := decodeList(body, wrapperKey)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", path).Msg("Malformed KLARA response; returning empty result.")
		return nil, statusUpstreamUnavailable
	}
	if !c.cfg.UseMock && len(records) >= c.cfg.PageSize {
		c.logger.Warn().
			Str("endpoint", path).
			Int("page_size", c.cfg.PageSize).
			Msg("KLARA returned a full page; catalog may be truncated.")
	}
	return records, statusOK
}

func (c *Client) logUpstreamError(path string, err error) {
	var statusErr *upstreamStatusError
	if errors.As(err, &statusErr) {
		c.logger.Error().
			Str("endpoint", path).
			Int("status_code", statusErr.StatusCode).
			Str("body", statusErr.Body).
			Msg("KLARA API returned an error; returning empty result.")
		return
	}
	c.logger.Error().Err(err).Str("endpoint", path).Msg("KLARA API request failed; returning empty result.")
}

// get performs a GET against the KLARA API and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	endpoint += "?limit=" + strconv.Itoa(c.cfg.PageSize)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.cfg.Language)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-API-KEY", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &upstreamStatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
