package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>"Cal kicker" - Google News</title>
    <item>
      <title>Cal kicker wins the Big Game</title>
      <link>https://news.example.com/big-game</link>
      <description>&lt;a href="https://news.example.com/big-game"&gt;Cal kicker wins&lt;/a&gt;&amp;nbsp;&lt;font&gt;Example News&lt;/font&gt;</description>
    </item>
    <item>
      <title>Stanford falls short</title>
      <link>https://spam.example.com/stanford</link>
      <description>plain text</description>
    </item>
    <item>
      <title>Third story</title>
      <link>https://news.example.com/third</link>
    </item>
  </channel>
</rss>`

func TestNewsFeed_Query(t *testing.T) {
	var gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	feed := NewNewsFeed(WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	articles, err := feed.Query(context.Background(), Request{Text: "Cal kicker", Count: 2, DateRestrict: "d3"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}

	if articles[0].Title != "Cal kicker wins the Big Game" {
		t.Errorf("Unexpected title %q", articles[0].Title)
	}

	if articles[0].Snippet != "Cal kicker wins Example News" {
		t.Errorf("Expected description reduced to text, got %q", articles[0].Snippet)
	}

	if gotQuery != "Cal kicker when:3d" {
		t.Errorf("Unexpected feed query %q", gotQuery)
	}
}

func TestNewsFeed_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	feed := NewNewsFeed(WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	_, err := feed.Query(context.Background(), Request{Text: "kicker", Count: 5})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("Expected *APIError with status 503, got %v", err)
	}
}

func TestNewsFeed_InvalidFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed at all"))
	}))
	defer server.Close()

	feed := NewNewsFeed(WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	_, err := feed.Query(context.Background(), Request{Text: "kicker", Count: 5})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
}

func TestFeedQuery(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{name: "Plain", req: Request{Text: "Cal kicker"}, want: "Cal kicker"},
		{name: "Exact", req: Request{Text: "kicker", ExactTerms: "Golden Bears"}, want: `kicker "Golden Bears"`},
		{name: "Or terms", req: Request{Text: "kicker", OrTerms: "Cal Berkeley"}, want: "kicker (Cal OR Berkeley)"},
		{name: "Weeks", req: Request{Text: "kicker", DateRestrict: "w2"}, want: "kicker when:14d"},
		{name: "Months", req: Request{Text: "kicker", DateRestrict: "m1"}, want: "kicker when:30d"},
		{name: "Years", req: Request{Text: "kicker", DateRestrict: "y1"}, want: "kicker when:365d"},
		{name: "Bad restrict ignored", req: Request{Text: "kicker", DateRestrict: "x9"}, want: "kicker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FeedQuery(tt.req); got != tt.want {
				t.Errorf("FeedQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
