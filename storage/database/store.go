package database

import (
	"context"
	"database/sql"
	"reflect"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Store wraps the connection with the retry, rebind and caching behavior all
// repositories share. Queries are written with ? placeholders and rebound per
// engine.
type Store struct {
	db     *sqlx.DB
	engine string
	cache  *queryCache

	// regMu serializes account inserts; see UserRepository.CreateUser.
	regMu sync.Mutex
}

func NewStore(db *sqlx.DB, engine string) *Store {
	if engine == "sqlite3" {
		engine = engineSQLite
	}
	return &Store{db: db, engine: engine, cache: newQueryCache(cacheTTL)}
}

func (s *Store) DB() *sqlx.DB { return s.db }

// get runs a single-row query through the cache, copying the cached value
// into dest on a hit.
func (s *Store) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	key := cacheKey(query, args)
	if v, ok := s.cache.get(key); ok {
		reflect.ValueOf(dest).Elem().Set(reflect.ValueOf(v))
		return nil
	}

	err := withRetry(ctx, defaultRetry, func() error {
		return s.db.GetContext(ctx, dest, s.db.Rebind(query), args...)
	})
	if err != nil {
		return err
	}
	s.cache.set(key, reflect.ValueOf(dest).Elem().Interface())
	return nil
}

// selectAll is get for multi-row queries. Hits hand out a fresh slice so
// callers never share a backing array with the cache or each other.
func (s *Store) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	key := cacheKey(query, args)
	if v, ok := s.cache.get(key); ok {
		src := reflect.ValueOf(v)
		cp := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		reflect.Copy(cp, src)
		reflect.ValueOf(dest).Elem().Set(cp)
		return nil
	}

	err := withRetry(ctx, defaultRetry, func() error {
		return s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...)
	})
	if err != nil {
		return err
	}
	s.cache.set(key, reflect.ValueOf(dest).Elem().Interface())
	return nil
}

// exec runs a write and flushes the read cache.
func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.execRetry(ctx, defaultRetry, query, args...)
}

func (s *Store) execRetry(ctx context.Context, profile retryProfile, query string, args ...interface{}) (sql.Result, error) {
	var res sql.Result
	err := withRetry(ctx, profile, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.flush()
	return res, nil
}

// insertID runs an INSERT and returns the generated id, papering over the
// engines' diverging mechanisms (last-insert-id vs RETURNING).
func (s *Store) insertID(ctx context.Context, profile retryProfile, query string, args ...interface{}) (int64, error) {
	if s.engine == enginePostgres {
		var id int64
		err := withRetry(ctx, profile, func() error {
			return s.db.QueryRowContext(ctx, s.db.Rebind(query+" RETURNING id"), args...).Scan(&id)
		})
		if err != nil {
			return 0, err
		}
		s.cache.flush()
		return id, nil
	}

	res, err := s.execRetry(ctx, profile, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "reading insert id")
	}
	return id, nil
}
