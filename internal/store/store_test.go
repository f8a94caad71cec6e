package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"oski/internal/config"
	"oski/internal/models"
)

type storeFactory func(t *testing.T) Store

func backends(t *testing.T) map[string]storeFactory {
	t.Helper()

	factories := map[string]storeFactory{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) Store {
			t.Helper()

			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "oski.db"))
			if err != nil {
				t.Fatalf("OpenSQLite failed: %v", err)
			}

			t.Cleanup(func() { s.Close() })

			return s
		},
	}

	// Mongo runs only against a live server.
	if uri := os.Getenv("OSKI_TEST_MONGO_URI"); uri != "" {
		factories["mongo"] = func(t *testing.T) Store {
			t.Helper()

			ctx := context.Background()

			s, err := OpenMongo(ctx, uri, "oski_test", "articles_"+filepath.Base(t.TempDir()))
			if err != nil {
				t.Fatalf("OpenMongo failed: %v", err)
			}

			t.Cleanup(func() {
				_ = s.articles.Drop(context.Background())
				s.Close()
			})

			return s
		}
	}

	return factories
}

func article(title string) models.Article {
	return models.Article{
		Title:   title,
		URL:     "https://example.com/" + title,
		Snippet: "snippet for " + title,
	}
}

func titles(articles []models.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Title)
	}

	return out
}

func TestStore_AddTwice(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			a := article("Kicker")

			added, err := s.Add(ctx, a)
			if err != nil || !added {
				t.Fatalf("first Add = %v, %v; want true, nil", added, err)
			}

			// Same title, different payload: still a duplicate, no overwrite.
			dup := a
			dup.URL = "https://other.example.com"

			added, err = s.Add(ctx, dup)
			if err != nil || added {
				t.Fatalf("second Add = %v, %v; want false, nil", added, err)
			}

			all, err := s.GetAll(ctx)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}

			if len(all) != 1 || all[0] != a {
				t.Errorf("GetAll = %v, want exactly %v", all, a)
			}
		})
	}
}

func TestStore_AddMany(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			if _, err := s.Add(ctx, article("B")); err != nil {
				t.Fatalf("Add failed: %v", err)
			}

			batch := []models.Article{article("A"), article("B"), article("C"), article("A"), article("D")}

			added, err := s.AddMany(ctx, batch)
			if err != nil {
				t.Fatalf("AddMany failed: %v", err)
			}

			if got, want := titles(added), []string{"A", "C", "D"}; !reflect.DeepEqual(got, want) {
				t.Errorf("AddMany added %v, want %v", got, want)
			}

			all, err := s.GetAll(ctx)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}

			if got, want := titles(all), []string{"B", "A", "C", "D"}; !reflect.DeepEqual(got, want) {
				t.Errorf("GetAll = %v, want insertion order %v", got, want)
			}

			n, err := s.Len(ctx)
			if err != nil || n != 4 {
				t.Errorf("Len = %d, %v; want 4", n, err)
			}
		})
	}
}

func TestStore_GetAndDelete(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			a := article("Oski")

			if _, ok, err := s.Get(ctx, a.Title); err != nil || ok {
				t.Fatalf("Get on empty store = %v, %v; want false, nil", ok, err)
			}

			if _, err := s.Add(ctx, a); err != nil {
				t.Fatalf("Add failed: %v", err)
			}

			got, ok, err := s.Get(ctx, a.Title)
			if err != nil || !ok || got != a {
				t.Fatalf("Get = %v, %v, %v; want %v", got, ok, err, a)
			}

			removed, err := s.Delete(ctx, a.Title)
			if err != nil || !removed {
				t.Fatalf("Delete = %v, %v; want true, nil", removed, err)
			}

			removed, err = s.Delete(ctx, a.Title)
			if err != nil || removed {
				t.Fatalf("second Delete = %v, %v; want false, nil", removed, err)
			}

			// A deleted title can be added again.
			if added, err := s.Add(ctx, a); err != nil || !added {
				t.Fatalf("re-Add = %v, %v; want true, nil", added, err)
			}
		})
	}
}

func TestSQLite_ReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "oski.db")

	if Exists(path) {
		t.Fatal("Exists reported a store before creation")
	}

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}

	if _, err := s.Add(ctx, article("Persisted")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !Exists(path) {
		t.Fatal("Exists reported no store after creation")
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if added, _ := reopened.Add(ctx, article("Persisted")); added {
		t.Error("duplicate accepted after reopen")
	}

	if _, ok, _ := reopened.Get(ctx, "Persisted"); !ok {
		t.Error("record lost after reopen")
	}
}

func TestSQLite_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oski.db")
	if err := os.WriteFile(path, []byte("this is not a database, just some text that is long enough"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := OpenSQLite(context.Background(), path)
	if !errors.Is(err, ErrStore) {
		t.Fatalf("Expected ErrStore for corrupt file, got %v", err)
	}
}

func TestSQLite_ClosedHandleReportsStoreError(t *testing.T) {
	ctx := context.Background()

	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "oski.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}

	s.Close()

	if _, err := s.Add(ctx, article("late")); !errors.Is(err, ErrStore) {
		t.Fatalf("Expected ErrStore after close, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "oski.db")}

	s, populated, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if populated {
		t.Error("Expected a fresh sqlite store to be unpopulated")
	}

	s.Close()

	s, populated, err = Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if !populated {
		t.Error("Expected an existing sqlite store to count as populated")
	}

	mem, populated, err := Open(ctx, config.StoreConfig{Driver: config.DriverMemory})
	if err != nil || populated {
		t.Fatalf("Open(memory) = %v, %v", populated, err)
	}

	if _, ok := mem.(*Memory); !ok {
		t.Errorf("Expected *Memory, got %T", mem)
	}

	if _, _, err := Open(ctx, config.StoreConfig{Driver: "postgres"}); !errors.Is(err, ErrStore) {
		t.Errorf("Expected ErrStore for unknown driver, got %v", err)
	}
}
