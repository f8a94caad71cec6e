package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"oski/internal/logger"
	"oski/internal/models"
	"oski/internal/normalizer"
	"oski/pkg/utils"
)

// DefaultEndpoint is the Google Custom Search JSON API.
const DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// Limit response size to 5MB.
const maxResponseBytes = 5 * 1024 * 1024

// CustomSearch pages through the Google Custom Search JSON API.
type CustomSearch struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	processor  *normalizer.Processor
	logger     *logger.Logger
	endpoint   string
	devKey     string
	engineID   string
	partial    bool
}

var _ Searcher = (*CustomSearch)(nil)

// Option configures a CustomSearch or NewsFeed.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *logger.Logger
	endpoint   string
	rps        float64
	partial    bool
}

// WithEndpoint overrides the backend URL.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.httpClient = &http.Client{Timeout: d} }
}

// WithRateLimit paces page requests to rps per second. Zero means unlimited.
func WithRateLimit(rps float64) Option {
	return func(o *options) { o.rps = rps }
}

// WithPartialResults makes a failed page return the results gathered so far
// together with the error instead of discarding them.
func WithPartialResults(enabled bool) Option {
	return func(o *options) { o.partial = enabled }
}

// WithLogger sets the logger for skipped items and page requests.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

func buildOptions(defaultEndpoint string, opts []Option) options {
	o := options{
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logger.Discard()
	}

	return o
}

// NewCustomSearch creates a client for the given API key and engine ID.
func NewCustomSearch(devKey, engineID string, opts ...Option) *CustomSearch {
	o := buildOptions(DefaultEndpoint, opts)

	var limiter *rate.Limiter
	if o.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.rps), 1)
	}

	return &CustomSearch{
		httpClient: o.httpClient,
		limiter:    limiter,
		processor:  normalizer.NewProcessor(),
		logger:     o.logger,
		endpoint:   o.endpoint,
		devKey:     devKey,
		engineID:   engineID,
		partial:    o.partial,
	}
}

type cseResponse struct {
	Items   []cseItem `json:"items"`
	Queries struct {
		NextPage []struct {
			StartIndex int `json:"startIndex"`
		} `json:"nextPage"`
	} `json:"queries"`
}

type cseItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Query fetches up to req.Count results, ten per request, following the
// nextPage offsets reported by the API.
func (c *CustomSearch) Query(ctx context.Context, req Request) ([]models.Article, error) {
	remaining := clampCount(req.Count)
	articles := make([]models.Article, 0, remaining)
	start := 1

	for remaining > 0 {
		page, err := c.fetchPage(ctx, req, start, min(remaining, pageSize))
		if err != nil {
			if c.partial {
				return articles, err
			}

			return nil, err
		}

		if len(page.Items) == 0 {
			break
		}

		remaining -= len(page.Items)
		articles = append(articles, c.convert(page.Items)...)

		if len(page.Queries.NextPage) == 0 {
			break
		}

		start = page.Queries.NextPage[0].StartIndex
	}

	if limit := clampCount(req.Count); len(articles) > limit {
		articles = articles[:limit]
	}

	return articles, nil
}

func (c *CustomSearch) fetchPage(ctx context.Context, req Request, start, num int) (*cseResponse, error) {
	apiErr := func(status int, err error) error {
		return &APIError{Query: req.Text, Start: start, Status: status, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apiErr(0, err)
		}
	}

	params := url.Values{}
	params.Set("key", c.devKey)
	params.Set("cx", c.engineID)
	params.Set("q", req.Text)
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa(start))

	if req.ExactTerms != "" {
		params.Set("exactTerms", req.ExactTerms)
	}

	if req.OrTerms != "" {
		params.Set("orTerms", req.OrTerms)
	}

	if req.DateRestrict != "" {
		params.Set("dateRestrict", req.DateRestrict)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, apiErr(0, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header = utils.BuildHeaders(nil)

	c.logger.Debug("Requesting search page", "query", req.Text, "start", start, "num", num)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apiErr(0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apiErr(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiErr(resp.StatusCode, fmt.Errorf("%w: %s", ErrUnexpectedStatusCode, utils.TruncateString(string(body), 200)))
	}

	var page cseResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apiErr(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	return &page, nil
}

func (c *CustomSearch) convert(items []cseItem) []models.Article {
	raw := make([]normalizer.RawItem, 0, len(items))
	for _, item := range items {
		raw = append(raw, normalizer.RawItem{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}

	articles, errs := c.processor.ProcessAll(raw)
	for _, err := range errs {
		c.logger.Debug("Skipping search item", "error", err)
	}

	return articles
}
