// Package sendlog records every attempted link delivery in SQLite so a
// grown-up can audit what the assistant sent and when. It stores
// delivery outcomes only, never conversation history.
package sendlog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const entryColumns = "id, identifier, destination, backend, topic, image_url, video_url, delivered, error, created_at"

// Entry is one delivery attempt, successful or not.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	Identifier  string    `json:"identifier"`
	Destination string    `json:"destination,omitempty"`
	Backend     string    `json:"backend"`
	Topic       string    `json:"topic"`
	ImageURL    string    `json:"image_url,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store manages delivery audit persistence in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the audit database at dbPath.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS send_log (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			destination TEXT,
			backend TEXT NOT NULL,
			topic TEXT NOT NULL,
			image_url TEXT,
			video_url TEXT,
			delivered INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_send_log_identifier ON send_log(identifier);
		CREATE INDEX IF NOT EXISTS idx_send_log_created ON send_log(created_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a delivery attempt. A missing ID gets a new UUIDv7.
func (s *Store) Record(e *Entry) error {
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO send_log (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID.String(), e.Identifier, nullStr(e.Destination), e.Backend, e.Topic,
		nullStr(e.ImageURL), nullStr(e.VideoURL), boolInt(e.Delivered),
		nullStr(e.Error), e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first. A non-positive
// limit defaults to 20.
func (s *Store) Recent(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM send_log ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ForIdentifier returns entries for one caller, most recent first.
func (s *Store) ForIdentifier(identifier string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM send_log WHERE identifier = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Stats returns delivery counts for the debug surface.
func (s *Store) Stats() map[string]any {
	var total, delivered int
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM send_log`).Scan(&total)
	_ = s.db.QueryRow(`SELECT COUNT(*) FROM send_log WHERE delivered = 1`).Scan(&delivered)

	return map[string]any{
		"total":     total,
		"delivered": delivered,
		"failed":    total - delivered,
	}
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var e Entry
		var idStr, createdStr string
		var destination, imageURL, videoURL, errStr sql.NullString
		var deliveredInt int

		err := rows.Scan(&idStr, &e.Identifier, &destination, &e.Backend, &e.Topic,
			&imageURL, &videoURL, &deliveredInt, &errStr, &createdStr)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		e.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse entry id: %w", err)
		}
		e.Destination = destination.String
		e.ImageURL = imageURL.String
		e.VideoURL = videoURL.String
		e.Delivered = deliveredInt != 0
		e.Error = errStr.String
		e.CreatedAt, err = time.Parse(time.RFC3339, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
