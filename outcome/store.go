// Package outcome persists the durable audit log of export attempts.
//
// One row per (session, destination) attempt. The log is append-only: an
// export run inserts new rows, it never updates or deletes prior rows for
// the same session/destination pair.
package outcome

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/datasophos/NexusLIMS-sub001/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS export_outcomes (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id         TEXT NOT NULL,
	session_identifier TEXT NOT NULL,
	destination_name   TEXT NOT NULL,
	success            BOOLEAN NOT NULL,
	record_id          TEXT,
	record_url         TEXT,
	error_message      TEXT,
	timestamp          TEXT NOT NULL,
	metadata_json      TEXT
);
CREATE INDEX IF NOT EXISTS idx_outcomes_session ON export_outcomes(session_identifier);
CREATE INDEX IF NOT EXISTS idx_outcomes_destination ON export_outcomes(destination_name);
`

// Row is one persisted export attempt.
type Row struct {
	ID           int64
	AttemptID    string
	SessionID    string
	Destination  string
	Success      bool
	RecordID     *string
	RecordURL    *string
	ErrorMessage *string
	Timestamp    time.Time
	MetadataJSON *string
}

// Store is the SQLite-backed outcome log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the outcome database at path and applies
// the schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create outcome db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open outcome db: %w", err)
	}

	// SQLite supports one writer at a time; keep a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply outcome schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertResult appends one attempt row for the given session. Metadata, when
// present, is serialized to JSON; an empty map leaves the column NULL.
// The result itself is never modified.
func (s *Store) InsertResult(ctx context.Context, sessionID string, r *types.ExportResult) error {
	var metadataJSON *string
	if len(r.Metadata) > 0 {
		encoded, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("serialize result metadata for %s: %w", r.Destination, err)
		}
		v := string(encoded)
		metadataJSON = &v
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_outcomes
			(attempt_id, session_identifier, destination_name, success,
			 record_id, record_url, error_message, timestamp, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		sessionID,
		r.Destination,
		r.Success,
		r.RecordID,
		r.RecordURL,
		r.ErrorMessage,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("insert outcome row for %s/%s: %w", sessionID, r.Destination, err)
	}
	return nil
}

// BySession returns every attempt row for one session, oldest first.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_id, session_identifier, destination_name, success,
		       record_id, record_url, error_message, timestamp, metadata_json
		FROM export_outcomes
		WHERE session_identifier = ?
		ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

// History returns the most recent attempt rows across all sessions,
// newest first, capped at limit.
func (s *Store) History(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_id, session_identifier, destination_name, success,
		       record_id, record_url, error_message, timestamp, metadata_json
		FROM export_outcomes
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcome history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var (
			row Row
			ts  string
		)
		if err := rows.Scan(
			&row.ID, &row.AttemptID, &row.SessionID, &row.Destination,
			&row.Success, &row.RecordID, &row.RecordURL, &row.ErrorMessage,
			&ts, &row.MetadataJSON,
		); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse outcome timestamp %q: %w", ts, err)
		}
		row.Timestamp = parsed
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}
	return out, nil
}
