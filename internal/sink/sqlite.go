package sink

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
	"github.com/unkn0wn-root/textanchor/internal/errdef"
)

const schema = `
CREATE TABLE IF NOT EXISTS commits (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	comment    TEXT NOT NULL,
	textblock  TEXT NOT NULL,
	start_at   INTEGER NOT NULL,
	end_at     INTEGER NOT NULL,
	text       TEXT NOT NULL,
	marker     TEXT NOT NULL DEFAULT '',
	at         TEXT NOT NULL
)`

// SQLite journals commits into a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the journal at path. ":memory:" works for
// throwaway journals.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeSink, err, "open journal %q", path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errdef.Wrap(errdef.CodeSink, err, "create journal schema")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Emit(ctx context.Context, c Commit) error {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO commits (comment, textblock, start_at, end_at, text, marker, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.CommentKey,
		c.TextblockKey,
		c.Range.Start,
		c.Range.End,
		c.Range.Text,
		c.MarkerID,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errdef.Wrap(errdef.CodeSink, err, "journal commit %q", c.CommentKey)
	}
	return nil
}

// Commits returns journaled commits oldest first, optionally for one comment.
func (s *SQLite) Commits(ctx context.Context, commentKey string) ([]Commit, error) {
	query := `SELECT comment, textblock, start_at, end_at, text, marker, at FROM commits`
	var args []any
	if commentKey != "" {
		query += ` WHERE comment = ?`
		args = append(args, commentKey)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeSink, err, "read journal")
	}
	defer rows.Close()

	var out []Commit
	for rows.Next() {
		var (
			c  Commit
			r  anchor.OffsetRange
			at string
		)
		if err := rows.Scan(&c.CommentKey, &c.TextblockKey, &r.Start, &r.End, &r.Text, &c.MarkerID, &at); err != nil {
			return nil, errdef.Wrap(errdef.CodeSink, err, "scan journal row")
		}
		c.Range = r
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			c.At = ts
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errdef.Wrap(errdef.CodeSink, err, "read journal")
	}
	return out, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
