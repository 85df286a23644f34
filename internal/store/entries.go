package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Known mood values for journal entries.
const (
	MoodGreat    = "GREAT"
	MoodGood     = "GOOD"
	MoodNeutral  = "NEUTRAL"
	MoodStressed = "STRESSED"
	MoodBad      = "BAD"
)

// Entry is a single journal entry. Entries are the extraction source for the
// memory graph and the signal window for energy assessment.
type Entry struct {
	ID          string
	Date        time.Time
	Content     string
	Mood        string
	ExtractedAt *int64
	CreatedAt   int64
}

// NewEntryID generates a ULID for a journal entry. ULIDs sort by creation
// time, which keeps entry listings cheap.
func NewEntryID() string {
	return ulid.Make().String()
}

// CreateEntry inserts a journal entry. A zero date defaults to now.
func (db *DB) CreateEntry(e *Entry) error {
	if e.ID == "" {
		e.ID = NewEntryID()
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	now := time.Now().UnixMilli()

	_, err := db.Exec(`
		INSERT INTO entries (id, date, content, mood, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Date.UnixMilli(), e.Content, e.Mood, now)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	e.CreatedAt = now
	return nil
}

// GetEntry returns an entry by ID, or nil if not found.
func (db *DB) GetEntry(id string) (*Entry, error) {
	var e Entry
	var dateMs int64
	var extractedAt sql.NullInt64
	err := db.QueryRow(`
		SELECT id, date, content, mood, extracted_at, created_at
		FROM entries WHERE id = ?
	`, id).Scan(&e.ID, &dateMs, &e.Content, &e.Mood, &extractedAt, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	e.Date = time.UnixMilli(dateMs)
	if extractedAt.Valid {
		e.ExtractedAt = &extractedAt.Int64
	}
	return &e, nil
}

// RecentEntries returns the most recent entries ordered by date DESC.
func (db *DB) RecentEntries(limit int) ([]Entry, error) {
	rows, err := db.Query(`
		SELECT id, date, content, mood, extracted_at, created_at
		FROM entries ORDER BY date DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var dateMs int64
		var extractedAt sql.NullInt64
		if err := rows.Scan(&e.ID, &dateMs, &e.Content, &e.Mood, &extractedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Date = time.UnixMilli(dateMs)
		if extractedAt.Valid {
			e.ExtractedAt = &extractedAt.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkExtracted sets extracted_at for an entry, preventing duplicate extraction.
func (db *DB) MarkExtracted(entryID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE entries SET extracted_at = ? WHERE id = ?`, now, entryID)
	if err != nil {
		return fmt.Errorf("mark extracted: %w", err)
	}
	return nil
}
