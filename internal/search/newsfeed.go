package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"oski/internal/logger"
	"oski/internal/models"
	"oski/internal/normalizer"
	"oski/pkg/utils"
)

// DefaultFeedEndpoint is the Google News RSS search endpoint.
const DefaultFeedEndpoint = "https://news.google.com/rss/search"

// NewsFeed searches an RSS search endpoint. It returns a single page.
type NewsFeed struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	processor  *normalizer.Processor
	logger     *logger.Logger
	endpoint   string
}

var _ Searcher = (*NewsFeed)(nil)

// NewNewsFeed creates a feed searcher. WithRateLimit and WithPartialResults
// have no effect on a single-page backend.
func NewNewsFeed(opts ...Option) *NewsFeed {
	o := buildOptions(DefaultFeedEndpoint, opts)

	return &NewsFeed{
		httpClient: o.httpClient,
		parser:     gofeed.NewParser(),
		processor:  normalizer.NewProcessor(),
		logger:     o.logger,
		endpoint:   o.endpoint,
	}
}

// Query fetches the feed for req and returns at most req.Count articles.
func (n *NewsFeed) Query(ctx context.Context, req Request) ([]models.Article, error) {
	limit := clampCount(req.Count)
	if limit <= 0 {
		return []models.Article{}, nil
	}

	apiErr := func(status int, err error) error {
		return &APIError{Query: req.Text, Start: 1, Status: status, Err: err}
	}

	params := url.Values{}
	params.Set("q", FeedQuery(req))
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, apiErr(0, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header = utils.BuildHeaders(map[string]string{
		"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9",
	})

	resp, err := n.httpClient.Do(httpReq)
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

	feed, err := n.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, apiErr(resp.StatusCode, fmt.Errorf("failed to parse feed: %w", err))
	}

	raw := make([]normalizer.RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		raw = append(raw, normalizer.RawItem{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: htmlToText(item.Description),
		})
	}

	articles, errs := n.processor.ProcessAll(raw)
	for _, err := range errs {
		n.logger.Debug("Skipping feed item", "error", err)
	}

	if len(articles) > limit {
		articles = articles[:limit]
	}

	return articles, nil
}

// FeedQuery folds the request filters into a feed search expression.
func FeedQuery(req Request) string {
	parts := []string{strings.TrimSpace(req.Text)}

	if req.ExactTerms != "" {
		parts = append(parts, strconv.Quote(req.ExactTerms))
	}

	if terms := strings.Fields(req.OrTerms); len(terms) > 0 {
		parts = append(parts, "("+strings.Join(terms, " OR ")+")")
	}

	if when := whenOperator(req.DateRestrict); when != "" {
		parts = append(parts, when)
	}

	return strings.Join(parts, " ")
}

// whenOperator maps a dateRestrict value such as "w2" to "when:14d".
func whenOperator(restrict string) string {
	if len(restrict) < 2 {
		return ""
	}

	n, err := strconv.Atoi(restrict[1:])
	if err != nil || n < 1 {
		return ""
	}

	days := map[byte]int{'d': 1, 'w': 7, 'm': 30, 'y': 365}

	perUnit, ok := days[restrict[0]]
	if !ok {
		return ""
	}

	return fmt.Sprintf("when:%dd", n*perUnit)
}

func htmlToText(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	return strings.TrimSpace(doc.Text())
}
