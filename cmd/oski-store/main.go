// Package main provides the oski-store tool for inspecting and editing the
// article store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"oski/internal/config"
	"oski/internal/filter"
	"oski/internal/report"
	"oski/internal/store"
	"oski/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code. A missing SQLite store is reported and
// never created, so the next oski run still starts in initial mode.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("oski-store", flag.ContinueOnError)
	flags.SetOutput(stderr)

	configPath := flags.String("config", "configs/oski.yaml", "Path to the oski configuration file")
	get := flags.String("get", "", "Print the article with this title")
	remove := flags.String("delete", "", "Delete the article with this title so the next run picks it up again")
	export := flags.String("export", "", "Write every stored article as JSON to this path")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Error loading config: %v\n", err)

		return 1
	}

	if cfg.Store.Driver == config.DriverSQLite && !store.Exists(cfg.Store.Path) {
		fmt.Fprintf(stdout, "📭 No store yet at %s\n", cfg.Store.Path)

		if *get != "" || *remove != "" {
			return 1
		}

		return 0
	}

	ctx := context.Background()

	st, _, err := store.Open(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Error opening store: %v\n", err)

		return 1
	}
	defer st.Close()

	switch {
	case *get != "":
		article, ok, err := st.Get(ctx, *get)
		if err != nil {
			fmt.Fprintf(stderr, "❌ Lookup failed: %v\n", err)

			return 1
		}

		if !ok {
			fmt.Fprintf(stdout, "🔍 No article titled %q\n", *get)

			return 1
		}

		fmt.Fprintf(stdout, "Title:   %s\nURL:     %s\nSnippet: %s\n", article.Title, article.URL, article.Snippet)

	case *remove != "":
		removed, err := st.Delete(ctx, *remove)
		if err != nil {
			fmt.Fprintf(stderr, "❌ Delete failed: %v\n", err)

			return 1
		}

		if !removed {
			fmt.Fprintf(stdout, "🔍 No article titled %q\n", *remove)

			return 1
		}

		fmt.Fprintf(stdout, "🗑️  Deleted %q\n", *remove)

	case *export != "":
		articles, err := st.GetAll(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "❌ Read failed: %v\n", err)

			return 1
		}

		data, err := json.MarshalIndent(articles, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "❌ Failed to marshal JSON: %v\n", err)

			return 1
		}

		if err := os.WriteFile(*export, data, 0644); err != nil {
			fmt.Fprintf(stderr, "❌ Failed to write file: %v\n", err)

			return 1
		}

		fmt.Fprintf(stdout, "✅ Exported %d articles to %s\n", len(articles), *export)

	default:
		articles, err := st.GetAll(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "❌ Read failed: %v\n", err)

			return 1
		}

		table := report.Table{Header: []string{"#", "Title", "Domain"}}
		for i, a := range articles {
			table.Rows = append(table.Rows, []string{strconv.Itoa(i + 1), utils.TruncateString(a.Title, 80), filter.DomainOf(a.URL)})
		}

		fmt.Fprintf(stdout, "📚 %d articles in %s store\n\n", len(articles), cfg.Store.Driver)
		fmt.Fprint(stdout, table.String())
	}

	return 0
}
