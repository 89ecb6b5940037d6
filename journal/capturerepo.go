package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/yeti47/motioncam/ccc/db"
)

// CaptureRepository defines the storage operations for the capture journal
type CaptureRepository interface {
	// Add stores a new capture
	Add(ctx context.Context, capture *Capture) error

	// Complete records the end of an open clip
	Complete(ctx context.Context, id string, details ClipDetails) error

	// GetByID retrieves a capture by its ID, nil if it doesn't exist
	GetByID(ctx context.Context, id string) (*Capture, error)

	// Query retrieves captures matching query and the total count before pagination
	Query(ctx context.Context, query CaptureQuery) ([]*Capture, int, error)

	// GetLatest returns the newest capture of kind, nil if there is none
	GetLatest(ctx context.Context, kind CaptureKind) (*Capture, error)

	// CloseOpenClips marks every open clip as ended at the given time, returning how many were closed
	CloseOpenClips(ctx context.Context, endedAt time.Time, stopTrigger string) (int, error)
}

// SQLiteCaptureRepository implements CaptureRepository using SQLite
type SQLiteCaptureRepository struct {
	db *sql.DB
}

// NewSQLiteCaptureRepository creates a new SQLite-based CaptureRepository
func NewSQLiteCaptureRepository(db *sql.DB) (*SQLiteCaptureRepository, error) {
	repo := &SQLiteCaptureRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return repo, nil
}

func (r *SQLiteCaptureRepository) createTables() error {
	createCapturesTable := `
	CREATE TABLE IF NOT EXISTS captures (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		start_trigger TEXT NOT NULL,
		stop_trigger TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		ended_at TEXT,
		duration INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		codec TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_captures_kind_started ON captures (kind, started_at);`

	_, err := r.db.Exec(createCapturesTable)
	return err
}

const captureColumns = `id, kind, path, mime_type, start_trigger, stop_trigger, started_at, ended_at, duration, width, height, codec`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(row rowScanner) (*Capture, error) {
	capture := &Capture{}
	var kind, startedAt string
	var endedAt sql.NullString
	var durationNanos int64

	err := row.Scan(
		&capture.ID, &kind, &capture.Path, &capture.MimeType, &capture.Trigger, &capture.StopTrigger,
		&startedAt, &endedAt, &durationNanos, &capture.Width, &capture.Height, &capture.Codec,
	)
	if err != nil {
		return nil, err
	}

	capture.Kind = CaptureKind(kind)
	capture.Duration = time.Duration(durationNanos)

	if capture.StartedAt, err = db.StringToTime(startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if capture.EndedAt, err = db.NullStringToTimePtr(endedAt); err != nil {
		return nil, fmt.Errorf("failed to parse ended_at: %w", err)
	}
	return capture, nil
}

// Add stores a new capture
func (r *SQLiteCaptureRepository) Add(ctx context.Context, capture *Capture) error {
	query := `INSERT INTO captures (` + captureColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		capture.ID, string(capture.Kind), capture.Path, capture.MimeType, capture.Trigger, capture.StopTrigger,
		db.TimeToString(capture.StartedAt), db.TimePtrToString(capture.EndedAt), int64(capture.Duration),
		capture.Width, capture.Height, capture.Codec,
	)
	if err != nil {
		return fmt.Errorf("failed to add capture: %w", err)
	}
	return nil
}

// Complete records the end of an open clip
func (r *SQLiteCaptureRepository) Complete(ctx context.Context, id string, details ClipDetails) error {
	query := `
	UPDATE captures
	SET ended_at = ?, stop_trigger = ?, duration = ?, width = ?, height = ?, codec = ?
	WHERE id = ? AND kind = ?`

	result, err := r.db.ExecContext(ctx, query,
		db.TimeToString(details.EndedAt), details.StopTrigger, int64(details.Duration),
		details.Width, details.Height, details.Codec, id, string(KindClip),
	)
	if err != nil {
		return fmt.Errorf("failed to complete clip: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete clip: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("clip not found: %s", id)
	}
	return nil
}

// GetByID retrieves a capture by its ID
func (r *SQLiteCaptureRepository) GetByID(ctx context.Context, id string) (*Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = ?`

	capture, err := scanCapture(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get capture by ID: %w", err)
	}
	return capture, nil
}

// GetLatest returns the newest capture of kind
func (r *SQLiteCaptureRepository) GetLatest(ctx context.Context, kind CaptureKind) (*Capture, error) {
	captures, _, err := r.Query(ctx, CaptureQuery{Kind: kind, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(captures) == 0 {
		return nil, nil
	}
	return captures[0], nil
}

// Query retrieves captures based on the provided query parameters
func (r *SQLiteCaptureRepository) Query(ctx context.Context, query CaptureQuery) ([]*Capture, int, error) {
	where, args := buildConditions(query)

	var totalCount int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM captures"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	sqlQuery := `SELECT ` + captureColumns + ` FROM captures` + where + ` ORDER BY started_at DESC`
	if query.Limit > 0 {
		sqlQuery += " LIMIT ? OFFSET ?"
		args = append(args, query.Limit, query.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		capture, err := scanCapture(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, capture)
	}

	return captures, totalCount, rows.Err()
}

// buildConditions builds the WHERE clause and arguments for query
func buildConditions(query CaptureQuery) (string, []any) {
	var conditions []string
	var args []any

	if query.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(query.Kind))
	}
	if query.StartTime != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, db.TimeToString(*query.StartTime))
	}
	if query.EndTime != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, db.TimeToString(*query.EndTime))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// CloseOpenClips marks clips left open by an unclean shutdown as ended
func (r *SQLiteCaptureRepository) CloseOpenClips(ctx context.Context, endedAt time.Time, stopTrigger string) (int, error) {
	query := `UPDATE captures SET ended_at = ?, stop_trigger = ? WHERE kind = ? AND ended_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, db.TimeToString(endedAt), stopTrigger, string(KindClip))
	if err != nil {
		return 0, fmt.Errorf("failed to close open clips: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to close open clips: %w", err)
	}
	return int(affected), nil
}
