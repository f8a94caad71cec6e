package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"oski/internal/archiver"
	"oski/internal/config"
	"oski/internal/filter"
	"oski/internal/notifier"
	"oski/internal/pipeline"
	"oski/internal/report"
	"oski/internal/search"
	"oski/internal/store"
)

// fileRenderer writes a stub PDF instead of launching wkhtmltopdf.
type fileRenderer struct{}

func (fileRenderer) Render(_ context.Context, url, dest string, _ map[string]string) error {
	return os.WriteFile(dest, []byte("%PDF-1.4 "+url), 0644)
}

// recordingSender captures messages instead of talking SMTP.
type recordingSender struct {
	sent map[string][]byte
}

func (r *recordingSender) Send(_ context.Context, _, to string, msg []byte) error {
	r.sent[to] = msg

	return nil
}

func (r *recordingSender) Close() error { return nil }

// customSearchServer returns three results, one of them from a banned domain.
func customSearchServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if start, _ := strconv.Atoi(r.URL.Query().Get("start")); start != 1 {
			t.Errorf("Unexpected start offset %d", start)
		}

		resp := map[string]any{
			"items": []map[string]string{
				{"title": "Cal kicker wins", "link": "https://news.example.com/a", "snippet": "Walk-off field goal"},
				{"title": "Cheap tickets", "link": "https://www.spam.com/b", "snippet": "Buy now"},
				{"title": "Oski at the Big Game", "link": "https://sports.example.org/c", "snippet": "Mascot sighting"},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestOskiFlow_InitialThenIncremental(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "oski.db")
	archiveDir := filepath.Join(dir, "archive")

	banFile := filepath.Join(dir, "banned.txt")
	if err := os.WriteFile(banFile, []byte("spam.com\n\n"), 0644); err != nil {
		t.Fatalf("Failed to write ban file: %v", err)
	}

	banned, err := filter.LoadBannedDomains(banFile)
	if err != nil {
		t.Fatalf("LoadBannedDomains failed: %v", err)
	}

	server := customSearchServer(t)
	searcher := search.NewCustomSearch("key", "cx", search.WithEndpoint(server.URL), search.WithHTTPClient(server.Client()))
	queries := []config.QueryConfig{{Search: "Cal kicker", NumResults: config.NumResults{Init: 10, Update: 10}}}
	sender := &recordingSender{sent: map[string][]byte{}}

	runOnce := func() *pipeline.RunResult {
		t.Helper()

		st, populated, err := store.Open(ctx, config.StoreConfig{Driver: config.DriverSQLite, Path: dbPath})
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer st.Close()

		mode := pipeline.Initial
		if populated {
			mode = pipeline.Incremental
		}

		p := pipeline.New(searcher, st, queries,
			pipeline.WithBannedDomains(banned),
			pipeline.WithArchiver(archiver.New(fileRenderer{}, nil, nil), archiveDir, 5*time.Second),
			pipeline.WithNotifier(notifier.New(sender, "oski@example.com", nil), []string{"fan@example.com"}, "New Articles!"),
		)

		result, err := p.Run(ctx, mode)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		return result
	}

	// 1. Initial run populates the store
	first := runOnce()

	if first.Mode != pipeline.Initial {
		t.Errorf("Expected initial mode on a fresh store, got %s", first.Mode)
	}

	if len(first.Added) != 2 {
		t.Fatalf("Expected 2 new articles, got %d", len(first.Added))
	}

	if first.Count(archiver.StatusSaved) != 2 {
		t.Errorf("Expected 2 saved PDFs, got %d", first.Count(archiver.StatusSaved))
	}

	for _, title := range []string{"Cal kicker wins", "Oski at the Big Game"} {
		if _, err := os.Stat(filepath.Join(archiveDir, title+".pdf")); err != nil {
			t.Errorf("Expected PDF for %q: %v", title, err)
		}
	}

	if len(sender.sent) != 1 {
		t.Errorf("Expected one subscriber email, got %d", len(sender.sent))
	}

	// 2. Incremental run finds nothing new
	second := runOnce()

	if second.Mode != pipeline.Incremental {
		t.Errorf("Expected incremental mode on an existing store, got %s", second.Mode)
	}

	if len(second.Added) != 0 || len(second.Archives) != 0 {
		t.Errorf("Expected no new articles or archives, got %d/%d", len(second.Added), len(second.Archives))
	}

	// 3. Report renders both runs
	if out := report.Render(first); out == "" {
		t.Error("Expected a non-empty report")
	}

	t.Log(report.Render(second))
}
