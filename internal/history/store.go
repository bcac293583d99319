package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"github.com/aiforedu/sound-trainer/internal/platform"
)

// DefaultLimit is the number of entries Recent returns when limit <= 0
const DefaultLimit = 20

// Entry is one uploaded model
type Entry struct {
	ID         int64
	ModelKey   string
	Labels     []string
	Examples   map[string]int
	Endpoint   string
	UploadedAt time.Time
}

// Store is a SQLite-backed upload history
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is empty")
	}

	dsn := path
	dbPath := path
	if idx := strings.Index(path, "?"); idx != -1 {
		dbPath = path[:idx]
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && !strings.HasPrefix(dbPath, "file:") {
		if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
			return nil, fmt.Errorf("error creating history directory: %w", err)
		}
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		if strings.Contains(dsn, "?") {
			dsn += "&_busy_timeout=5000"
		} else {
			dsn += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening history database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
    CREATE TABLE IF NOT EXISTS uploads (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_key TEXT NOT NULL UNIQUE,
        labels TEXT NOT NULL,
        examples TEXT NOT NULL,
        endpoint TEXT NOT NULL DEFAULT '',
        uploaded_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at);
    `)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores an upload. Recording the same key again updates the entry.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.ModelKey == "" {
		return 0, fmt.Errorf("model key is empty")
	}
	if e.UploadedAt.IsZero() {
		e.UploadedAt = time.Now()
	}
	labels, err := json.Marshal(nonNilLabels(e.Labels))
	if err != nil {
		return 0, fmt.Errorf("error encoding labels: %w", err)
	}
	examples, err := json.Marshal(nonNilCounts(e.Examples))
	if err != nil {
		return 0, fmt.Errorf("error encoding example counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
    INSERT INTO uploads (model_key, labels, examples, endpoint, uploaded_at) VALUES (?, ?, ?, ?, ?)
    ON CONFLICT(model_key) DO UPDATE SET
        labels = excluded.labels,
        examples = excluded.examples,
        endpoint = excluded.endpoint,
        uploaded_at = excluded.uploaded_at`,
		e.ModelKey, string(labels), string(examples), e.Endpoint, e.UploadedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("error recording upload: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM uploads WHERE model_key = ?", e.ModelKey).Scan(&id); err != nil {
		return 0, fmt.Errorf("error reading upload id: %w", err)
	}
	return id, nil
}

// Recent returns the newest uploads first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
    SELECT id, model_key, labels, examples, endpoint, uploaded_at
    FROM uploads ORDER BY uploaded_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying uploads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var labels, examples string
		if err := rows.Scan(&e.ID, &e.ModelKey, &labels, &examples, &e.Endpoint, &e.UploadedAt); err != nil {
			return nil, fmt.Errorf("error scanning upload: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &e.Labels); err != nil {
			return nil, fmt.Errorf("error decoding labels of %s: %w", e.ModelKey, err)
		}
		if err := json.Unmarshal([]byte(examples), &e.Examples); err != nil {
			return nil, fmt.Errorf("error decoding example counts of %s: %w", e.ModelKey, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the newest upload, or false when the history is empty
func (s *Store) Latest(ctx context.Context) (Entry, bool, error) {
	entries, err := s.Recent(ctx, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

func nonNilLabels(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

func nonNilCounts(counts map[string]int) map[string]int {
	if counts == nil {
		return map[string]int{}
	}
	return counts
}
