package database

import (
	"context"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sqlx.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return NewStore(db, engineSQLite)
}

func TestStore_selectAllCachedCopy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.exec(ctx, `CREATE TABLE nums (n INTEGER)`); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	for _, n := range []int{1, 2, 3} {
		if _, err := store.exec(ctx, `INSERT INTO nums (n) VALUES (?)`, n); err != nil {
			t.Fatalf("inserting %d: %v", n, err)
		}
	}

	query := `SELECT n FROM nums ORDER BY n`
	first := make([]int, 0)
	if err := store.selectAll(ctx, &first, query); err != nil {
		t.Fatalf("selectAll(): %v", err)
	}
	if store.cache.len() != 1 {
		t.Fatalf("cache.len() = %d; want 1", store.cache.len())
	}

	// mutating one caller's result must not leak into the next hit
	first[0] = 99

	second := make([]int, 0)
	if err := store.selectAll(ctx, &second, query); err != nil {
		t.Fatalf("selectAll() on cache hit: %v", err)
	}
	if want := []int{1, 2, 3}; !reflect.DeepEqual(second, want) {
		t.Errorf("cached result = %v; want %v", second, want)
	}
}
