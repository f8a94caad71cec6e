package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"oski/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	title   TEXT,
	url     TEXT,
	snippet TEXT
);
CREATE INDEX IF NOT EXISTS idx_articles_title ON articles (title);`

// SQLite stores articles in a single-table SQLite file.
type SQLite struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens the database at path, creating the file and schema when
// missing. An existing database is used as-is.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wrap("open", err)
	}

	// Single writer; one connection also keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()

		return nil, wrap(fmt.Sprintf("init schema in %s", path), err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Add inserts the article unless its title is already present.
func (s *SQLite) Add(ctx context.Context, article models.Article) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrap("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int

	err = tx.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE title = ? LIMIT 1`, article.Title).Scan(&one)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, wrap("lookup", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO articles (title, url, snippet) VALUES (?, ?, ?)`,
		article.Title, article.URL, article.Snippet,
	); err != nil {
		return false, wrap("insert", err)
	}

	if err := tx.Commit(); err != nil {
		return false, wrap("commit", err)
	}

	return true, nil
}

// AddMany adds each article in order and returns the newly inserted ones.
func (s *SQLite) AddMany(ctx context.Context, articles []models.Article) ([]models.Article, error) {
	return addEach(ctx, s, articles)
}

// Get returns the article with the given title.
func (s *SQLite) Get(ctx context.Context, title string) (models.Article, bool, error) {
	var a models.Article

	err := s.db.QueryRowContext(ctx,
		`SELECT title, url, snippet FROM articles WHERE title = ? LIMIT 1`, title,
	).Scan(&a.Title, &a.URL, &a.Snippet)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Article{}, false, nil
	}

	if err != nil {
		return models.Article{}, false, wrap("get", err)
	}

	return a, true, nil
}

// GetAll returns every article in insertion order.
func (s *SQLite) GetAll(ctx context.Context) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, url, snippet FROM articles ORDER BY rowid`)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var all []models.Article

	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.Title, &a.URL, &a.Snippet); err != nil {
			return nil, wrap("scan", err)
		}

		all = append(all, a)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap("list", err)
	}

	return all, nil
}

// Delete removes the article with the given title.
func (s *SQLite) Delete(ctx context.Context, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE title = ?`, title)
	if err != nil {
		return false, wrap("delete", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, wrap("delete", err)
	}

	return n > 0, nil
}

// Len returns the number of stored articles.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, wrap("count", err)
	}

	return n, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return wrap("close", err)
	}

	return nil
}
