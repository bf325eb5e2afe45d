package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"taskbridge/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS creations (
	id TEXT PRIMARY KEY,
	issue_key TEXT NOT NULL,
	project TEXT NOT NULL,
	summary TEXT NOT NULL,
	requested_type TEXT NOT NULL DEFAULT '',
	resolved_type TEXT NOT NULL DEFAULT '',
	requested_priority TEXT NOT NULL DEFAULT '',
	resolved_priority TEXT NOT NULL DEFAULT '',
	requested_assignee TEXT NOT NULL DEFAULT '',
	resolved_assignee TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_creations_created_at ON creations(created_at);
CREATE INDEX IF NOT EXISTS idx_creations_project ON creations(project);
`

// Entry is one recorded issue creation: what the user asked for next to
// what the resolvers actually settled on.
type Entry struct {
	ID                string
	IssueKey          string
	Project           string
	Summary           string
	RequestedType     string
	ResolvedType      string
	RequestedPriority string
	ResolvedPriority  string
	RequestedAssignee string
	ResolvedAssignee  string
	CreatedAt         time.Time
}

// Store is the creation-history ledger, backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one creation to the ledger. A missing ID or CreatedAt
// is filled in.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.IssueKey == "" {
		return fmt.Errorf("issue key is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO creations (
			id, issue_key, project, summary,
			requested_type, resolved_type,
			requested_priority, resolved_priority,
			requested_assignee, resolved_assignee,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.IssueKey, entry.Project, entry.Summary,
		entry.RequestedType, entry.ResolvedType,
		entry.RequestedPriority, entry.ResolvedPriority,
		entry.RequestedAssignee, entry.ResolvedAssignee,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record creation: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. limit <= 0 means
// a default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_key, project, summary,
			requested_type, resolved_type,
			requested_priority, resolved_priority,
			requested_assignee, resolved_assignee,
			created_at
		FROM creations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list creations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.IssueKey, &e.Project, &e.Summary,
			&e.RequestedType, &e.ResolvedType,
			&e.RequestedPriority, &e.ResolvedPriority,
			&e.RequestedAssignee, &e.ResolvedAssignee,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan creation: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries past the retention window, then enforces the
// total row cap oldest-first. Returns the number of rows deleted.
func (s *Store) Prune(ctx context.Context, cfg config.HistoryRetentionConfig) (int64, error) {
	if !cfg.CleanupEnabled {
		return 0, nil
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	var deleted int64
	cutoff := time.Now().UTC().AddDate(0, 0, -cfg.RetentionDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM creations WHERE created_at < ?`, cutoff)
	if err != nil {
		return deleted, fmt.Errorf("failed to prune by age: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += n
	}

	if cfg.MaxEntries > 0 {
		res, err = s.db.ExecContext(ctx, `
			DELETE FROM creations WHERE id NOT IN (
				SELECT id FROM creations ORDER BY created_at DESC, id DESC LIMIT ?
			)`, cfg.MaxEntries)
		if err != nil {
			return deleted, fmt.Errorf("failed to prune by count: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}
	return deleted, nil
}
