package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"oski/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var digestTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// RenderDigest builds the HTML announcement for articles. Every article
// field is escaped.
func RenderDigest(articles []models.Article) (string, error) {
	if len(articles) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := digestTemplate.ExecuteTemplate(&buf, "digest", articles); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}

	return buf.String(), nil
}

// RenderPlainDigest builds the text/plain alternative of RenderDigest.
func RenderPlainDigest(articles []models.Article) string {
	if len(articles) == 0 {
		return ""
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Oski found %d new article(s).\n", len(articles))

	for _, a := range articles {
		sb.WriteString("\n")
		sb.WriteString(a.Title)
		sb.WriteString("\n")
		sb.WriteString(a.URL)
		sb.WriteString("\n")

		if a.Snippet != "" {
			sb.WriteString(a.Snippet)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
