// ABOUTME: SQLite-backed store using modernc.org/sqlite
// ABOUTME: Opens the database, enables WAL, and creates the schema

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// QueryStore records and lists query audit entries.
type QueryStore interface {
	AppendQuery(ctx context.Context, rec *QueryRecord) error
	ListQueries(ctx context.Context, f QueryFilter) ([]QueryRecord, error)
	CountQueriesByStatus(ctx context.Context) (map[string]int, error)
	Close() error
}

// SQLiteStore implements QueryStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS query_log (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			status TEXT NOT NULL,
			answer TEXT NOT NULL,
			user_id TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_query_log_created
			ON query_log(created_at);

		CREATE INDEX IF NOT EXISTS idx_query_log_status
			ON query_log(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// formatTime renders a timestamp the way the schema stores it.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
