package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is RFC3339 with a fixed-width fraction so stored UTC values sort chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// TimeToString converts a time.Time to a UTC RFC3339 string for database storage
func TimeToString(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// StringToTime converts an RFC3339Nano string from database to time.Time
func StringToTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// TimePtrToString converts a *time.Time to string for database storage
// Returns nil if the pointer is nil, otherwise converts the time value
func TimePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	result := TimeToString(*t)
	return &result
}

// NullStringToTimePtr converts a nullable column back into a *time.Time
func NullStringToTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := StringToTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Open opens the SQLite database at path. The journal is written by the control loop and read
// by the status endpoint, so WAL mode is enabled to keep readers from blocking the writer.
func Open(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := database.Exec("PRAGMA journal_mode = WAL"); err != nil {
		database.Close()
		return nil, err
	}

	return database, nil
}

// NewInMemoryDB creates a new in-memory SQLite database for testing
func NewInMemoryDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}

	// every pooled connection would otherwise get its own empty in-memory database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
