// Package store persists seen articles keyed by title.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"oski/internal/config"
	"oski/internal/models"
)

// ErrStore marks persistence failures. Dedup cannot be trusted after one,
// so callers treat it as fatal.
var ErrStore = errors.New("store error")

// Store is a durable set of articles keyed by title. Adding a title that is
// already present is a no-op reporting false, never an overwrite.
type Store interface {
	Add(ctx context.Context, article models.Article) (bool, error)
	AddMany(ctx context.Context, articles []models.Article) ([]models.Article, error)
	Get(ctx context.Context, title string) (models.Article, bool, error)
	GetAll(ctx context.Context) ([]models.Article, error)
	Delete(ctx context.Context, title string) (bool, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// Exists reports whether a file-backed store is already present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// Open opens the store selected by cfg. populated reports whether it held
// records before this call; a fresh store means an initial run.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, bool, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		m, err := OpenMongo(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, false, err
		}

		n, err := m.Len(ctx)
		if err != nil {
			m.Close()

			return nil, false, err
		}

		return m, n > 0, nil
	case config.DriverMemory:
		return NewMemory(), false, nil
	case config.DriverSQLite:
		existed := Exists(cfg.Path)

		s, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, false, err
		}

		return s, existed, nil
	default:
		return nil, false, fmt.Errorf("%w: unknown driver %q", ErrStore, cfg.Driver)
	}
}

// addEach applies add to every article in order and returns the ones that
// were newly inserted, in input order.
func addEach(ctx context.Context, s Store, articles []models.Article) ([]models.Article, error) {
	added := make([]models.Article, 0, len(articles))

	for _, a := range articles {
		ok, err := s.Add(ctx, a)
		if err != nil {
			return added, err
		}

		if ok {
			added = append(added, a)
		}
	}

	return added, nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
