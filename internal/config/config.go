// Package config provides configuration management for the oski pipeline.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfig marks every configuration failure. Callers treat it as fatal.
var ErrConfig = errors.New("config error")

// Configuration validation errors.
var (
	ErrEmptyDocument          = errors.New("document is empty")
	ErrNoQueries              = errors.New("searcher.queries requires at least one query")
	ErrQueryMissingSearch     = errors.New("search text is required")
	ErrInvalidInitResults     = errors.New("num_results.init must be between 1 and 100")
	ErrInvalidUpdateResults   = errors.New("num_results.update must be between 1 and 100")
	ErrInvalidDateRestrict    = errors.New("options.date_restrict must look like d7, w2, m1 or y1")
	ErrUnknownProvider        = errors.New("searcher.provider must be 'google_cse' or 'news_feed'")
	ErrInvalidSearchTimeout   = errors.New("searcher.timeout_sec must be at least 1")
	ErrInvalidRate            = errors.New("searcher.requests_per_second must be non-negative")
	ErrMissingSavePath        = errors.New("archiver.save_path is required when save_pdfs is enabled")
	ErrInvalidArchiveTimeout  = errors.New("archiver.timeout_sec must be at least 1")
	ErrUnknownStoreDriver     = errors.New("store.driver must be 'sqlite', 'mongo' or 'memory'")
	ErrMissingStorePath       = errors.New("store.path is required for the sqlite driver")
	ErrMissingMongoURI        = errors.New("store.mongo_uri is required for the mongo driver")
	ErrInvalidLogLevel        = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrMissingDevKey          = errors.New("dev_key is required")
	ErrMissingEngineID        = errors.New("engine_id is required")
	ErrMissingSubscribersFile = errors.New("subscr_file is required")
	ErrMissingSMTPUser        = errors.New("user is required")
	ErrInvalidSMTPPort        = errors.New("port must be between 1 and 65535")
)

// Search providers.
const (
	ProviderGoogleCSE = "google_cse"
	ProviderNewsFeed  = "news_feed"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// MaxResultsPerQuery is the most results a single query may request.
const MaxResultsPerQuery = 100

const (
	defaultUpdateResults = 10
	defaultTimeoutSec    = 30
	defaultSubject       = "New Articles!"
	defaultSMTPHost      = "smtp.gmail.com"
	defaultSMTPPort      = 587
)

var dateRestrictPattern = regexp.MustCompile(`^[dwmy][0-9]+$`)

// Config represents the complete pipeline configuration.
type Config struct {
	Searcher SearcherConfig `yaml:"searcher"`
	Archiver ArchiverConfig `yaml:"archiver"`
	Store    StoreConfig    `yaml:"store"`
	Notifier NotifierConfig `yaml:"notifier"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SearcherConfig contains search backend settings and the query list.
type SearcherConfig struct {
	Provider          string        `yaml:"provider"`
	BanFile           string        `yaml:"ban_file"`
	FeedEndpoint      string        `yaml:"feed_endpoint"`
	Queries           []QueryConfig `yaml:"queries"`
	TimeoutSec        int           `yaml:"timeout_sec"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// QueryConfig is one configured search.
type QueryConfig struct {
	Search     string       `yaml:"search"`
	NumResults NumResults   `yaml:"num_results"`
	Options    QueryOptions `yaml:"options"`
}

// NumResults holds result-count targets for initial and incremental runs.
type NumResults struct {
	Init   int `yaml:"init"`
	Update int `yaml:"update"`
}

// QueryOptions are passed through to the search API verbatim.
type QueryOptions struct {
	ExactTerms   string `yaml:"exact_terms"`
	OrTerms      string `yaml:"or_terms"`
	DateRestrict string `yaml:"date_restrict"`
}

// ArchiverConfig defines PDF archiving behavior.
type ArchiverConfig struct {
	Options    map[string]string `yaml:"options"`
	SavePath   string            `yaml:"save_path"`
	Binary     string            `yaml:"binary"`
	TimeoutSec int               `yaml:"timeout_sec"`
	SavePDFs   bool              `yaml:"save_pdfs"`
}

// StoreConfig selects and locates the article store.
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	MongoURI   string `yaml:"mongo_uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// NotifierConfig defines the announcement email.
type NotifierConfig struct {
	Subject string `yaml:"subject"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads, defaults and validates configuration from a YAML file.
func LoadConfig(filepath string) (*Config, error) {
	var cfg Config
	if err := decodeFile(filepath, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: configuration validation failed: %w", ErrConfig, err)
	}

	return &cfg, nil
}

// decodeFile strictly decodes a YAML (or JSON) document; unknown fields are rejected.
func decodeFile(filepath string, out any) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %w", ErrConfig, filepath, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrEmptyDocument
		}

		return fmt.Errorf("%w: failed to parse %s: %w", ErrConfig, filepath, err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Searcher.Provider == "" {
		c.Searcher.Provider = ProviderGoogleCSE
	}

	if c.Searcher.TimeoutSec == 0 {
		c.Searcher.TimeoutSec = defaultTimeoutSec
	}

	for i := range c.Searcher.Queries {
		if c.Searcher.Queries[i].NumResults.Update == 0 {
			c.Searcher.Queries[i].NumResults.Update = defaultUpdateResults
		}
	}

	if c.Archiver.TimeoutSec == 0 {
		c.Archiver.TimeoutSec = defaultTimeoutSec
	}

	if c.Archiver.Binary == "" {
		c.Archiver.Binary = "wkhtmltopdf"
	}

	if c.Archiver.Options == nil {
		c.Archiver.Options = map[string]string{"quiet": ""}
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}

	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		c.Store.Path = "oski.db"
	}

	if c.Store.Database == "" {
		c.Store.Database = "oski"
	}

	if c.Store.Collection == "" {
		c.Store.Collection = "articles"
	}

	if c.Notifier.Subject == "" {
		c.Notifier.Subject = defaultSubject
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Searcher.Provider {
	case ProviderGoogleCSE, ProviderNewsFeed:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Searcher.Provider)
	}

	if c.Searcher.TimeoutSec < 1 {
		return ErrInvalidSearchTimeout
	}

	if c.Searcher.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}

	if len(c.Searcher.Queries) == 0 {
		return ErrNoQueries
	}

	for i, q := range c.Searcher.Queries {
		if q.Search == "" {
			return fmt.Errorf("%w: query[%d]", ErrQueryMissingSearch, i)
		}

		if q.NumResults.Init < 1 || q.NumResults.Init > MaxResultsPerQuery {
			return fmt.Errorf("%w: query[%d]", ErrInvalidInitResults, i)
		}

		if q.NumResults.Update < 1 || q.NumResults.Update > MaxResultsPerQuery {
			return fmt.Errorf("%w: query[%d]", ErrInvalidUpdateResults, i)
		}

		if q.Options.DateRestrict != "" && !dateRestrictPattern.MatchString(q.Options.DateRestrict) {
			return fmt.Errorf("%w: query[%d] %q", ErrInvalidDateRestrict, i, q.Options.DateRestrict)
		}
	}

	if c.Archiver.SavePDFs && c.Archiver.SavePath == "" {
		return ErrMissingSavePath
	}

	if c.Archiver.TimeoutSec < 1 {
		return ErrInvalidArchiveTimeout
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return ErrMissingStorePath
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return ErrMissingMongoURI
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.Store.Driver)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// Count returns the number of results to request for this query.
func (q QueryConfig) Count(initial bool) int {
	if initial {
		return q.NumResults.Init
	}

	return q.NumResults.Update
}

// Timeout returns the search HTTP timeout.
func (s SearcherConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// Deadline returns the per-article archive deadline.
func (a ArchiverConfig) Deadline() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Provider: %s, Queries: %d, Store: %s, SavePDFs: %t}",
		c.Searcher.Provider,
		len(c.Searcher.Queries),
		c.Store.Driver,
		c.Archiver.SavePDFs,
	)
}
