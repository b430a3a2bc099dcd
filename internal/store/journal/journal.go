// Package journal keeps a SQLite history of what each pass did: timeline
// reads, captures and replies. The ledgers stay the source of truth for
// de-duplication; the journal only feeds the stats command.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"
)

// Event types.
const (
	TypeRun           = "run"
	TypeFetch         = "fetch"
	TypeFetchFailed   = "fetch_failed"
	TypeCapture       = "capture"
	TypeCaptureFailed = "capture_failed"
	TypeReply         = "reply"
	TypeReplyFailed   = "reply_failed"
)

// Event is one journal row.
type Event struct {
	TS      time.Time
	RunID   string
	Type    string
	User    string
	TweetID string
	Fields  map[string]any
}

// DB wraps the SQLite journal.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  run_id TEXT NOT NULL DEFAULT '',
	  type TEXT NOT NULL,
	  handle TEXT NOT NULL DEFAULT '',
	  tweet_id TEXT NOT NULL DEFAULT '',
	  payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE INDEX IF NOT EXISTS idx_events_type_ts ON events(type, ts);
	`)
	return err
}

// PutEvent stores e. A zero timestamp means now.
func (d *DB) PutEvent(ctx context.Context, e Event) error {
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	var payload *string
	if len(e.Fields) > 0 {
		b, err := json.Marshal(e.Fields)
		if err != nil {
			return err
		}
		s := string(b)
		payload = &s
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO events(ts, run_id, type, handle, tweet_id, payload) VALUES(?,?,?,?,?,?)`,
		e.TS.UnixMilli(), e.RunID, e.Type, e.User, e.TweetID, payload)
	return err
}

// LoadEventsRange returns events in [start, end), oldest first. An empty
// typ matches every type.
func (d *DB) LoadEventsRange(ctx context.Context, start, end time.Time, typ string) ([]Event, error) {
	q := `SELECT ts, run_id, type, handle, tweet_id, payload FROM events WHERE ts>=? AND ts<?`
	args := []any{start.UnixMilli(), end.UnixMilli()}
	if typ != "" {
		q += ` AND type=?`
		args = append(args, typ)
	}
	rows, err := d.sql.QueryContext(ctx, q+` ORDER BY ts, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var ts int64
		var payload sql.NullString
		if err := rows.Scan(&ts, &e.RunID, &e.Type, &e.User, &e.TweetID, &payload); err != nil {
			return nil, err
		}
		e.TS = time.UnixMilli(ts).UTC()
		if payload.Valid {
			_ = json.Unmarshal([]byte(payload.String), &e.Fields)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountByType tallies events at or after since.
func (d *DB) CountByType(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT type, COUNT(*) FROM events WHERE ts>=? GROUP BY type`, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[typ] = n
	}
	return out, rows.Err()
}

// LastEvent returns the most recent event of typ, if any.
func (d *DB) LastEvent(ctx context.Context, typ string) (Event, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT ts, run_id, type, handle, tweet_id, payload FROM events WHERE type=? ORDER BY ts DESC, id DESC LIMIT 1`, typ)
	var e Event
	var ts int64
	var payload sql.NullString
	if err := row.Scan(&ts, &e.RunID, &e.Type, &e.User, &e.TweetID, &payload); err != nil {
		if err == sql.ErrNoRows {
			return Event{}, false, nil
		}
		return Event{}, false, err
	}
	e.TS = time.UnixMilli(ts).UTC()
	if payload.Valid {
		_ = json.Unmarshal([]byte(payload.String), &e.Fields)
	}
	return e, true, nil
}
