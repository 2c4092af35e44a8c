// Package dbopen opens the SQLite store behind the annotation sink. Pragmas
// travel in the DSN so the driver applies them to every pooled connection.
package dbopen

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

// Pragmas applied when no WithPragma overrides them.
var defaultPragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(10000)",
	"synchronous(NORMAL)",
}

type options struct {
	pragmas  []string
	mkdirAll bool
	schemas  []string
}

// Option customises Open.
type Option func(*options)

// WithPragma adds a pragma in driver form, e.g. "foreign_keys(1)".
func WithPragma(p string) Option { return func(o *options) { o.pragmas = append(o.pragmas, p) } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithSchema runs stmt once the database is reachable.
func WithSchema(stmt string) Option { return func(o *options) { o.schemas = append(o.schemas, stmt) } }

// DSN returns the modernc.org/sqlite data source name for path.
func DSN(path string, pragmas ...string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Open opens path with the sqlite driver, which the caller blank-imports.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{pragmas: append([]string(nil), defaultPragmas...)}
	for _, fn := range opts {
		fn(&o)
	}
	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: %w", err)
		}
	}

	db, err := sql.Open("sqlite", DSN(path, o.pragmas...))
	if err != nil {
		return nil, fmt.Errorf("dbopen: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping %s: %w", path, err)
	}
	for _, stmt := range o.schemas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: schema: %w", err)
		}
	}
	return db, nil
}

// OpenMemory opens a private in-memory database closed with t. One
// connection only: each ":memory:" connection is its own database.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
