// Package pipeline runs the search, filter, dedup, notify and archive steps
// of one oski run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"oski/internal/archiver"
	"oski/internal/config"
	"oski/internal/filter"
	"oski/internal/logger"
	"oski/internal/models"
	"oski/internal/notifier"
	"oski/internal/search"
	"oski/internal/store"
	"oski/pkg/utils"
)

// Mode selects result counts and date restriction for a run.
type Mode int

// Run modes.
const (
	// Initial populates an empty store without date restriction.
	Initial Mode = iota
	// Incremental looks for recent articles only.
	Incremental
)

func (m Mode) String() string {
	if m == Initial {
		return "initial"
	}

	return "incremental"
}

// Archiver saves one article within a deadline.
type Archiver interface {
	Save(ctx context.Context, url, title, dir string, deadline time.Duration) archiver.Result
}

// Notifier announces a batch of articles to subscribers.
type Notifier interface {
	NotifyArticles(ctx context.Context, subscribers []string, subject string, articles []models.Article) error
}

// QueryError is a search that failed and was skipped.
type QueryError struct {
	Err   error
	Query string
}

func (e QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Query, e.Err)
}

// ArchiveOutcome pairs an article with its archive result.
type ArchiveOutcome struct {
	Article models.Article
	Result  archiver.Result
}

// RunResult summarizes one run.
type RunResult struct {
	Started      time.Time
	NotifyErr    error
	RunID        string
	Added        []models.Article
	Archives     []ArchiveOutcome
	SearchErrors []QueryError
	Mode         Mode
	Fetched      int
	Filtered     int
	Notified     int // subscribers reached
	Duration     time.Duration
}

// Pipeline wires a searcher, a store and optional side effects together.
type Pipeline struct {
	searcher    search.Searcher
	store       store.Store
	archiver    Archiver
	notifier    Notifier
	banned      filter.DomainSet
	logger      *logger.Logger
	queries     []config.QueryConfig
	subscribers []string
	saveDir     string
	subject     string
	deadline    time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBannedDomains drops results from the given domains.
func WithBannedDomains(banned filter.DomainSet) Option {
	return func(p *Pipeline) { p.banned = banned }
}

// WithArchiver enables saving new articles into dir.
func WithArchiver(a Archiver, dir string, deadline time.Duration) Option {
	return func(p *Pipeline) {
		p.archiver = a
		p.saveDir = dir
		p.deadline = deadline
	}
}

// WithNotifier enables announcing new articles to subscribers.
func WithNotifier(n Notifier, subscribers []string, subject string) Option {
	return func(p *Pipeline) {
		p.notifier = n
		p.subscribers = subscribers
		p.subject = subject
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) { p.logger = log }
}

// New creates a pipeline. The store stays owned by the caller.
func New(searcher search.Searcher, st store.Store, queries []config.QueryConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		searcher: searcher,
		store:    st,
		queries:  queries,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = logger.Discard()
	}

	return p
}

// Run executes every configured query and processes the new articles.
// Only store failures and cancellation abort the run; search, notify and
// archive failures are recorded in the result.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (*RunResult, error) {
	result := &RunResult{
		RunID:   uuid.NewString(),
		Mode:    mode,
		Started: time.Now(),
	}
	defer func() { result.Duration = time.Since(result.Started) }()

	log := p.logger.With("run_id", result.RunID, "mode", mode.String())
	log.Info("🚀 Starting run", "queries", len(p.queries))

	// Phase 1: search
	var results []models.Article

	for _, q := range p.queries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		req := requestFor(q, mode)
		qlog := log.With("query", q.Search)

		articles, err := p.searcher.Query(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}

			qlog.Error("❌ Search failed, skipping query", "error", err)
			result.SearchErrors = append(result.SearchErrors, QueryError{Query: q.Search, Err: err})

			continue
		}

		qlog.Info("🔎 Search complete", "count", req.Count, "results", len(articles))
		results = append(results, articles...)
	}

	result.Fetched = len(results)

	// Phase 2: filter and dedup
	kept := filter.Filter(results, p.banned)
	result.Filtered = len(results) - len(kept)

	added, err := p.store.AddMany(ctx, kept)
	if err != nil {
		log.Error("❌ Store update failed", "error", err)

		return result, err
	}

	result.Added = added
	log.Info("📥 Store updated", "fetched", result.Fetched, "banned", result.Filtered, "new", len(added))

	if len(added) == 0 {
		return result, nil
	}

	// Phase 3: notify
	if p.notifier != nil && len(p.subscribers) > 0 {
		err := p.notifier.NotifyArticles(ctx, p.subscribers, p.subject, added)
		result.Notified = reached(len(p.subscribers), err)

		if err != nil {
			log.Warn("⚠️ Notification incomplete", "reached", result.Notified, "error", err)
			result.NotifyErr = err
		} else {
			log.Info("📧 Notified subscribers", "subscribers", result.Notified, "articles", len(added))
		}
	}

	// Phase 4: archive
	if p.archiver != nil {
		for _, a := range added {
			res := p.archiver.Save(ctx, a.URL, a.Title, p.saveDir, p.deadline)
			result.Archives = append(result.Archives, ArchiveOutcome{Article: a, Result: res})

			log.Info("📄 Archive attempt", "title", utils.TruncateString(a.Title, 60), "status", res.Status.String())
		}
	}

	log.Info("✅ Run complete", "new", len(added))

	return result, nil
}

// reached counts the subscribers a notification got through to.
func reached(total int, err error) int {
	if err == nil {
		return total
	}

	var notifyErr *notifier.NotifyError
	if errors.As(err, &notifyErr) {
		return max(0, notifyErr.Total-len(notifyErr.Failures))
	}

	return 0
}

func requestFor(q config.QueryConfig, mode Mode) search.Request {
	req := search.Request{
		Text:       q.Search,
		Count:      q.Count(mode == Initial),
		ExactTerms: q.Options.ExactTerms,
		OrTerms:    q.Options.OrTerms,
	}

	if mode == Incremental {
		req.DateRestrict = q.Options.DateRestrict
	}

	return req
}

// Count returns the number of archive attempts that ended in status.
func (r *RunResult) Count(status archiver.Status) int {
	n := 0

	for _, o := range r.Archives {
		if o.Result.Status == status {
			n++
		}
	}

	return n
}
