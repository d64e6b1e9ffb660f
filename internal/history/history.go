// Package history keeps a SQLite log of every like and dislike so the
// "history" and "stats" commands can show how preferences evolved.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultFile is the database name inside the state directory.
const DefaultFile = "history.db"

// timeFormat is fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// ErrClosed is returned by operations on a closed Log.
var ErrClosed = errors.New("history log is closed")

// Event is one recorded feedback call.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Scope     string    `json:"scope,omitempty"`
	Item      string    `json:"item"`
	Liked     bool      `json:"liked"`
	Changed   int       `json:"changed"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemSummary aggregates the events of one item.
type ItemSummary struct {
	Item     string    `json:"item"`
	Likes    int       `json:"likes"`
	Dislikes int       `json:"dislikes"`
	Last     time.Time `json:"last"`
}

// Log is the feedback event log. It is safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Log{db: db, path: path}, nil
}

// Path returns the database file path.
func (l *Log) Path() string {
	return l.path
}

// Record stores ev. Missing ID and CreatedAt are filled in; the stored event
// is returned.
func (l *Log) Record(ctx context.Context, ev Event) (Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	ev.CreatedAt = ev.CreatedAt.UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ev, ErrClosed
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, session_id, mode, scope, item, liked, changed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.Mode, nullString(ev.Scope), ev.Item, ev.Liked, ev.Changed,
		ev.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return ev, fmt.Errorf("failed to record feedback event: %w", err)
	}
	return ev, nil
}

// Recent returns up to limit events, newest first. If item is non-empty only
// that item's events are returned.
func (l *Log) Recent(ctx context.Context, item string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}

	query := `SELECT id, session_id, mode, scope, item, liked, changed, created_at FROM feedback_events`
	args := []any{}
	if item != "" {
		query += ` WHERE item = ?`
		args = append(args, item)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev      Event
			scope   sql.NullString
			created string
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Mode, &scope, &ev.Item, &ev.Liked, &ev.Changed, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		ev.Scope = scope.String
		ev.CreatedAt, _ = time.Parse(timeFormat, created)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Summary returns like and dislike counts per item, most active first.
func (l *Log) Summary(ctx context.Context, limit int) ([]ItemSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT item,
		       SUM(CASE WHEN liked THEN 1 ELSE 0 END),
		       SUM(CASE WHEN liked THEN 0 ELSE 1 END),
		       MAX(created_at)
		FROM feedback_events
		GROUP BY item
		ORDER BY COUNT(*) DESC, item ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize history: %w", err)
	}
	defer rows.Close()

	var out []ItemSummary
	for rows.Next() {
		var (
			s    ItemSummary
			last string
		)
		if err := rows.Scan(&s.Item, &s.Likes, &s.Dislikes, &last); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		s.Last, _ = time.Parse(timeFormat, last)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the total number of recorded events.
func (l *Log) Count(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return 0, ErrClosed
	}

	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// Close closes the database. Safe to call more than once.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
