package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shuttle/internal/config"
	"shuttle/internal/controller"
	"shuttle/internal/logging"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Entry is one queued relocation request.
type Entry struct {
	Hash       controller.ID
	EnqueuedAt time.Time
}

// Summary describes the queue without loading every entry.
type Summary struct {
	Count  int
	Oldest time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the queue database under the state
// directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	dbPath := cfg.QueueDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, logger: logger}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS relocation_queue (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    hash        TEXT    NOT NULL,
    enqueued_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relocation_queue_order
    ON relocation_queue (enqueued_at, id);
`
	if _, err := s.execWithRetry(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Enqueue appends a relocation request. The same hash may be queued more than
// once; drain logic removes all duplicates together.
func (s *Store) Enqueue(ctx context.Context, id controller.ID) error {
	_, err := s.execWithRetry(ctx,
		"INSERT INTO relocation_queue (hash, enqueued_at) VALUES (?, ?)",
		string(id), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", id.Short(), err)
	}
	s.logger.Info("queued relocation",
		logging.String(logging.FieldItemHash, string(id)))
	return nil
}

// List returns all entries oldest first. Rows whose hash no longer parses are
// deleted rather than returned.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, hash, enqueued_at FROM relocation_queue ORDER BY enqueued_at, id")
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var (
		entries []Entry
		corrupt []int64
	)
	for rows.Next() {
		var (
			rowID      int64
			hash       string
			enqueuedAt int64
		)
		if err := rows.Scan(&rowID, &hash, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		id, err := controller.ParseID(hash)
		if err != nil {
			s.logger.Warn("dropping corrupt queue entry",
				logging.String(logging.FieldItemHash, hash), logging.Error(err))
			corrupt = append(corrupt, rowID)
			continue
		}
		entries = append(entries, Entry{
			Hash:       id,
			EnqueuedAt: time.Unix(enqueuedAt, 0),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue rows: %w", err)
	}
	for _, rowID := range corrupt {
		if _, err := s.execWithRetry(ctx,
			"DELETE FROM relocation_queue WHERE id = ?", rowID); err != nil {
			s.logger.Warn("failed to delete corrupt queue entry", logging.Error(err))
		}
	}
	return entries, nil
}

// Summary reports the entry count and the oldest enqueue time.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MIN(enqueued_at), 0) FROM relocation_queue")
	var (
		count  int
		oldest int64
	)
	if err := row.Scan(&count, &oldest); err != nil {
		return Summary{}, fmt.Errorf("summarize queue: %w", err)
	}
	summary := Summary{Count: count}
	if oldest > 0 {
		summary.Oldest = time.Unix(oldest, 0)
	}
	return summary, nil
}

// Remove deletes every entry for the given hash.
func (s *Store) Remove(ctx context.Context, id controller.ID) error {
	if _, err := s.execWithRetry(ctx,
		"DELETE FROM relocation_queue WHERE hash = ?", string(id)); err != nil {
		return fmt.Errorf("remove %s: %w", id.Short(), err)
	}
	return nil
}

// Clear empties the queue.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM relocation_queue")
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}
