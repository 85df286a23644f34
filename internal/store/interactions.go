package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Interaction links one entity to one source journal entry. Records are
// created once per extraction and never mutated; they disappear only when a
// parent entity or entry cascades away.
type Interaction struct {
	ID        int64
	EntityID  int64
	EntryID   string
	Snippet   string
	Sentiment float64
	CreatedAt int64
}

func createInteractionTx(tx *sql.Tx, entityID int64, entryID, snippet string, sentiment float64) error {
	now := time.Now().UnixMilli()
	_, err := tx.Exec(`
		INSERT INTO interactions (entity_id, entry_id, snippet, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entityID, entryID, snippet, sentiment, now)
	if err != nil {
		return fmt.Errorf("create interaction: %w", err)
	}
	return nil
}

// GetInteractions returns all interactions for an entity, oldest first.
func (db *DB) GetInteractions(entityID int64) ([]Interaction, error) {
	rows, err := db.Query(`
		SELECT id, entity_id, entry_id, snippet, sentiment, created_at
		FROM interactions WHERE entity_id = ? ORDER BY created_at
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("get interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// GetEntryInteractions returns all interactions sourced from one entry.
func (db *DB) GetEntryInteractions(entryID string) ([]Interaction, error) {
	rows, err := db.Query(`
		SELECT id, entity_id, entry_id, snippet, sentiment, created_at
		FROM interactions WHERE entry_id = ? ORDER BY created_at
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry interactions: %w", err)
	}
	defer rows.Close()

	return scanInteractions(rows)
}

// CountInteractions returns the total number of interaction records.
func (db *DB) CountInteractions() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM interactions").Scan(&count)
	return count, err
}

func scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	var recs []Interaction
	for rows.Next() {
		var r Interaction
		if err := rows.Scan(&r.ID, &r.EntityID, &r.EntryID, &r.Snippet, &r.Sentiment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
