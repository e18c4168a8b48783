// ABOUTME: Query audit log entity and store methods
// ABOUTME: Records each query's outcome for operations and debugging

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueryRecord is one audited query outcome.
type QueryRecord struct {
	ID         string    // UUID v4
	Question   string    // the caller's question text
	Status     string    // success, not_found, config_error, error
	Answer     string    // answer excerpt (caller truncates)
	UserID     string    // user identity the query ran as
	DurationMS int64     // wall time of the whole query flow
	CreatedAt  time.Time // when the query completed
}

// QueryFilter specifies filtering options for listing query records.
type QueryFilter struct {
	Status *string    // filter by status bucket
	Since  *time.Time // records after this time
	Limit  int        // max results (default 100, max 1000)
}

// AppendQuery appends a record to the query log.
// Generates ID and CreatedAt if not set.
func (s *SQLiteStore) AppendQuery(ctx context.Context, rec *QueryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO query_log (id, question, status, answer, user_id, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Question,
		rec.Status,
		rec.Answer,
		rec.UserID,
		rec.DurationMS,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting query record: %w", err)
	}

	s.logger.Debug("appended query record",
		"id", rec.ID,
		"status", rec.Status,
		"duration_ms", rec.DurationMS,
	)
	return nil
}

// normalizeQueryLimit applies default (100) and cap (1000) to a list limit.
func normalizeQueryLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

const listQueriesSQL = `
	SELECT id, question, status, answer, user_id, duration_ms, created_at
	FROM query_log
	WHERE (? IS NULL OR status = ?)
	  AND (? IS NULL OR created_at >= ?)
	ORDER BY created_at DESC
	LIMIT ?
`

// ListQueries returns query records matching the filter criteria.
// Results are returned newest first.
func (s *SQLiteStore) ListQueries(ctx context.Context, f QueryFilter) ([]QueryRecord, error) {
	limit := normalizeQueryLimit(f.Limit)

	var sinceStr *string
	if f.Since != nil {
		str := formatTime(*f.Since)
		sinceStr = &str
	}

	rows, err := s.db.QueryContext(ctx, listQueriesSQL,
		f.Status, f.Status,
		sinceStr, sinceStr,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying query log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var tsStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.Question,
			&rec.Status,
			&rec.Answer,
			&rec.UserID,
			&rec.DurationMS,
			&tsStr,
		); err != nil {
			return nil, fmt.Errorf("scanning query record: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query records: %w", err)
	}

	if records == nil {
		records = []QueryRecord{}
	}
	return records, nil
}

// CountQueriesByStatus returns the number of recorded queries per status bucket.
func (s *SQLiteStore) CountQueriesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM query_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}
	return counts, nil
}
