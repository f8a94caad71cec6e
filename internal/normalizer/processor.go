// Package normalizer turns raw search items into sanitized articles.
package normalizer

import (
	"fmt"

	"oski/internal/models"
)

// RawItem is a search result as returned by a backend, before cleanup.
type RawItem struct {
	Title   string
	Link    string
	Snippet string
}

// Processor handles item validation and transformation.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// Process validates a raw item and converts it into an Article.
func (p *Processor) Process(item RawItem) (models.Article, error) {
	if err := p.validator.Validate(item); err != nil {
		return models.Article{}, fmt.Errorf("validation failed: %w", err)
	}

	article := p.transformer.Transform(item)

	// Titles made only of unsupported characters vanish during sanitizing
	// and would collide on the empty dedup key.
	if article.Title == "" {
		return models.Article{}, fmt.Errorf("validation failed: %w", ErrEmptyTitle)
	}

	return article, nil
}

// ProcessAll converts every valid item, returning the articles in input
// order together with the errors for skipped items.
func (p *Processor) ProcessAll(items []RawItem) ([]models.Article, []error) {
	articles := make([]models.Article, 0, len(items))

	var errs []error

	for i, item := range items {
		article, err := p.Process(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))

			continue
		}

		articles = append(articles, article)
	}

	return articles, errs
}
