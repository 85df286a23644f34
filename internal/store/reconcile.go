package store

import (
	"context"
	"fmt"
	"time"
)

// EntityUpsert is one planned write within an extraction batch: find or
// create the entity, optionally append a dated context line, and record the
// interaction against the source entry.
type EntityUpsert struct {
	Kind        string
	Name        string
	SeedContext string // initial accumulated_context when the entity is new
	ContextLine string // appended when the entity already exists; empty skips
	Snippet     string
	Sentiment   float64
}

// ApplyExtraction commits a whole extraction batch in a single transaction
// and stamps the source entry's extracted_at in that same transaction.
// Either every upsert lands (entity created or merged, interaction recorded)
// and the entry is stamped, or none of it happens. A failure anywhere rolls
// back everything, so retrying a failed extraction never leaves duplicate
// partial state behind, and a committed graph is never left restampable.
func (db *DB) ApplyExtraction(ctx context.Context, entryID string, upserts []EntityUpsert) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin extraction tx: %w", err)
	}
	defer tx.Rollback()

	for _, u := range upserts {
		fold := FoldName(u.Name)

		entity, err := getEntityByFold(tx, u.Kind, fold)
		if err != nil {
			return err
		}

		if entity == nil {
			entity, _, err = createEntityTx(tx, u.Kind, u.Name, fold, u.SeedContext)
			if err != nil {
				return err
			}
		} else if u.ContextLine != "" {
			if err := appendContextTx(tx, entity.ID, u.ContextLine); err != nil {
				return err
			}
		}

		if err := createInteractionTx(tx, entity.ID, entryID, u.Snippet, u.Sentiment); err != nil {
			return err
		}
	}

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`UPDATE entries SET extracted_at = ? WHERE id = ?`, now, entryID); err != nil {
		return fmt.Errorf("mark extracted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit extraction tx: %w", err)
	}
	return nil
}
