package normalizer

import (
	"strings"

	"oski/internal/models"
	"oski/pkg/utils"
)

// Transformer handles text cleanup.
type Transformer struct{}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform folds title and snippet to single-line ASCII. The link is only
// trimmed; dropping bytes from it would change where it points.
func (t *Transformer) Transform(item RawItem) models.Article {
	return models.Article{
		Title:   utils.NormalizeWhitespace(utils.ToASCII(item.Title)),
		URL:     strings.TrimSpace(item.Link),
		Snippet: utils.NormalizeWhitespace(utils.ToASCII(item.Snippet)),
	}
}
