package store

import (
	"context"
	"slices"
	"sync"

	"oski/internal/models"
)

// Memory is an in-process store. It is lost when the process exits and is
// meant for dry runs and tests.
type Memory struct {
	mu       sync.RWMutex
	articles map[string]models.Article
	order    []string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{articles: make(map[string]models.Article)}
}

// Add inserts the article unless its title is already present.
func (m *Memory) Add(_ context.Context, article models.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.articles[article.Title]; exists {
		return false, nil
	}

	m.articles[article.Title] = article
	m.order = append(m.order, article.Title)

	return true, nil
}

// AddMany adds each article in order and returns the newly inserted ones.
func (m *Memory) AddMany(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	return addEach(ctx, m, articles)
}

// Get returns the article with the given title.
func (m *Memory) Get(_ context.Context, title string) (models.Article, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.articles[title]

	return a, ok, nil
}

// GetAll returns every article in insertion order.
func (m *Memory) GetAll(_ context.Context) ([]models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]models.Article, 0, len(m.order))
	for _, title := range m.order {
		all = append(all, m.articles[title])
	}

	return all, nil
}

// Delete removes the article with the given title.
func (m *Memory) Delete(_ context.Context, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.articles[title]; !ok {
		return false, nil
	}

	delete(m.articles, title)
	m.order = slices.DeleteFunc(m.order, func(t string) bool { return t == title })

	return true, nil
}

// Len returns the number of stored articles.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.articles), nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
