package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"oski/internal/archiver"
	"oski/internal/filter"
	"oski/internal/pipeline"
	"oski/pkg/utils"
)

// maxTitleWidth bounds the title column in display columns.
const maxTitleWidth = 60

// Render formats a run as a Markdown summary followed by one table row per
// new article.
func Render(result *pipeline.RunResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Oski run %s (%s)\n\n", result.RunID, result.Mode)

	summary := Table{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(result.Fetched)},
			{"Banned", strconv.Itoa(result.Filtered)},
			{"New", strconv.Itoa(len(result.Added))},
			{"Notified", strconv.Itoa(result.Notified)},
			{"Saved", strconv.Itoa(result.Count(archiver.StatusSaved))},
			{"Timed out", strconv.Itoa(result.Count(archiver.StatusTimedOut))},
			{"Failed", strconv.Itoa(result.Count(archiver.StatusFailed))},
			{"Search errors", strconv.Itoa(len(result.SearchErrors))},
			{"Duration", result.Duration.Round(time.Millisecond).String()},
		},
	}
	sb.WriteString(summary.String())

	if len(result.Added) > 0 {
		archives := make(map[string]archiver.Result, len(result.Archives))
		for _, o := range result.Archives {
			archives[o.Article.Title] = o.Result
		}

		articles := Table{Header: []string{"#", "Title", "Domain", "Archive"}}

		for i, a := range result.Added {
			status := "-"
			if res, ok := archives[a.Title]; ok {
				status = res.Status.String()
			}

			articles.Rows = append(articles.Rows, []string{
				strconv.Itoa(i + 1),
				utils.TruncateString(a.Title, maxTitleWidth),
				filter.DomainOf(a.URL),
				status,
			})
		}

		sb.WriteString("\n")
		sb.WriteString(articles.String())
	}

	if len(result.SearchErrors) > 0 || result.NotifyErr != nil {
		sb.WriteString("\n### Errors\n\n")

		for _, e := range result.SearchErrors {
			fmt.Fprintf(&sb, "- %v\n", e)
		}

		if result.NotifyErr != nil {
			fmt.Fprintf(&sb, "- notify: %v\n", result.NotifyErr)
		}
	}

	return sb.String()
}
