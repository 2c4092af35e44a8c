// CLAUDE:SUMMARY Persists annotation events to an SQLite annotations table opened through dbopen.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/flagwatch/dbopen"
	"github.com/hazyhaar/flagwatch/identity"
	"github.com/hazyhaar/flagwatch/idgen"

	_ "modernc.org/sqlite"
)

// Schema is the annotations table.
const Schema = `
CREATE TABLE IF NOT EXISTS annotations (
	id          TEXT PRIMARY KEY,
	surface     TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	page_url    TEXT NOT NULL DEFAULT '',
	labelled    INTEGER NOT NULL DEFAULT 0,
	tinted      INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotations_fingerprint ON annotations(fingerprint);
`

// SQLite stores events in an annotations table.
type SQLite struct {
	db    *sql.DB
	newID idgen.Generator
}

// OpenSQLite opens (or creates) the database at path and applies Schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: %w", err)
	}
	return &SQLite{db: db, newID: idgen.Prefixed("evt_", idgen.Default)}, nil
}

func (s *SQLite) Send(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, surface, fingerprint, page_url, labelled, tinted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Surface, string(ev.Fingerprint), ev.PageURL,
		boolInt(ev.Labelled), boolInt(ev.Tinted), ev.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite sink: insert: %w", err)
	}
	return nil
}

// CountBySurface returns the number of stored events per surface.
func (s *SQLite) CountBySurface(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT surface, COUNT(*) FROM annotations GROUP BY surface`)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: count: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var surface string
		var n int64
		if err := rows.Scan(&surface, &n); err != nil {
			return nil, fmt.Errorf("sqlite sink: scan: %w", err)
		}
		out[surface] = n
	}
	return out, rows.Err()
}

// Recent returns up to limit events, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, surface, fingerprint, page_url, labelled, tinted, created_at
		 FROM annotations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: recent: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ev Event
		var fp string
		var labelled, tinted int
		var at int64
		if err := rows.Scan(&ev.ID, &ev.Surface, &fp, &ev.PageURL, &labelled, &tinted, &at); err != nil {
			return nil, fmt.Errorf("sqlite sink: scan: %w", err)
		}
		ev.Fingerprint = identity.Fingerprint(fp)
		ev.Labelled, ev.Tinted = labelled != 0, tinted != 0
		ev.At = time.UnixMilli(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
