// Package main provides the oski command: search, dedupe, notify and archive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"oski/internal/archiver"
	"oski/internal/config"
	"oski/internal/filter"
	"oski/internal/logger"
	"oski/internal/notifier"
	"oski/internal/pipeline"
	"oski/internal/report"
	"oski/internal/search"
	"oski/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one pipeline pass and returns the process exit code. Every
// input file is validated before the store is opened or the network is touched.
func run(args []string, stdout, stderr io.Writer) int {
	// 1. Define Command-Line Flags
	// ---------------------------
	flags := flag.NewFlagSet("oski", flag.ContinueOnError)
	flags.SetOutput(stderr)

	configPath := flags.String("config", "configs/oski.yaml", "Path to the oski configuration file")
	keysPath := flags.String("keys", "", "Path to the search API keys file (falls back to OSKI_DEV_KEY / OSKI_ENGINE_ID)")
	notifyPath := flags.String("notify", "", "Path to the notification settings file (optional)")
	envPath := flags.String("env", ".env", "Path to a .env file loaded before anything else")
	logLevel := flags.String("log-level", "", "Override logging.level (debug, info, warn, error)")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	log := logger.New("info", stderr)

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("⚠️  Could not load env file", "path", *envPath, "error", err)
	}

	// 2. Configuration
	// ----------------
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Error("❌ Failed to load configuration", "error", err)

		return 1
	}

	log.SetLevel(cfg.Logging.Level)

	if *logLevel != "" {
		log.SetLevel(*logLevel)
	}

	log.Info("🚀 Starting Oski", "config", cfg.String())

	searcher, err := newSearcher(cfg, *keysPath, log)
	if err != nil {
		log.Error("❌ Failed to configure search", "error", err)

		return 1
	}

	opts := []pipeline.Option{pipeline.WithLogger(log)}

	if *notifyPath != "" {
		n, subscribers, err := newNotifier(*notifyPath, log)
		if err != nil {
			log.Error("❌ Failed to configure notifications", "error", err)

			return 1
		}

		if n != nil {
			defer n.Close()

			opts = append(opts, pipeline.WithNotifier(n, subscribers, cfg.Notifier.Subject))
		}
	}

	opts = append(opts, pipeline.WithBannedDomains(loadBanned(cfg.Searcher.BanFile, log)))

	if cfg.Archiver.SavePDFs {
		arch := archiver.New(archiver.NewWKHTMLToPDF(cfg.Archiver.Binary), cfg.Archiver.Options, log)
		opts = append(opts, pipeline.WithArchiver(arch, cfg.Archiver.SavePath, cfg.Archiver.Deadline()))
	}

	// 3. Store and Mode
	// -----------------
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, populated, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Error("❌ Failed to open store", "error", err)

		return 1
	}
	defer st.Close()

	mode := modeFor(populated)

	log.Info("ℹ️  Run mode selected", "mode", mode.String(), "driver", cfg.Store.Driver)

	// 4. Run
	// ------
	result, err := pipeline.New(searcher, st, cfg.Searcher.Queries, opts...).Run(ctx, mode)
	if err != nil {
		log.Error("❌ Run aborted", "error", err)

		return 1
	}

	// 5. Final Report
	// ---------------
	log.Info("✨ Pipeline Complete!")
	fmt.Fprintln(stdout)
	fmt.Fprint(stdout, report.Render(result))

	return 0
}

func newSearcher(cfg *config.Config, keysPath string, log *logger.Logger) (search.Searcher, error) {
	opts := []search.Option{
		search.WithTimeout(cfg.Searcher.Timeout()),
		search.WithRateLimit(cfg.Searcher.RequestsPerSecond),
		search.WithLogger(log),
	}

	if cfg.Searcher.Provider == config.ProviderNewsFeed {
		if cfg.Searcher.FeedEndpoint != "" {
			opts = append(opts, search.WithEndpoint(cfg.Searcher.FeedEndpoint))
		}

		return search.NewNewsFeed(opts...), nil
	}

	keys := &config.Keys{DevKey: os.Getenv(config.EnvDevKey), EngineID: os.Getenv(config.EnvEngineID)}

	if keysPath != "" {
		loaded, err := config.LoadKeys(keysPath)
		if err != nil {
			return nil, err
		}

		keys = loaded
	}

	if err := keys.Validate(); err != nil {
		return nil, err
	}

	return search.NewCustomSearch(keys.DevKey, keys.EngineID, opts...), nil
}

// loadBanned reads the deny-list. A missing file is reported and ignored.
func loadBanned(path string, log *logger.Logger) filter.DomainSet {
	if path == "" {
		return nil
	}

	banned, err := filter.LoadBannedDomains(path)
	if err != nil {
		log.Warn("⚠️  Unable to load banned domains, filtering disabled", "path", path, "error", err)

		return nil
	}

	log.Info("🚫 Loaded banned domains", "count", len(banned))

	return banned
}

func modeFor(populated bool) pipeline.Mode {
	if populated {
		return pipeline.Incremental
	}

	return pipeline.Initial
}

// newNotifier returns a nil notifier when the subscribers file is missing.
func newNotifier(path string, log *logger.Logger) (*notifier.Notifier, []string, error) {
	params, err := config.LoadNotifyParams(path)
	if err != nil {
		return nil, nil, err
	}

	subscribers, err := notifier.LoadSubscribers(params.SubscrFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("⚠️  Unable to locate subscribers file, notifications disabled", "path", params.SubscrFile)

			return nil, nil, nil
		}

		return nil, nil, err
	}

	sender := notifier.NewSMTPSender(params.Addr(), params.User, params.Pwd)

	return notifier.New(sender, params.From, log), subscribers, nil
}
