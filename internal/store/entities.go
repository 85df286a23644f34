package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Entity kinds.
const (
	KindPerson  = "PERSON"
	KindEvent   = "EVENT"
	KindFeeling = "FEELING"
)

// Entity is a long-lived memory node for a recurring person, event, or
// feeling. At most one entity exists per (kind, case-folded name); later
// mentions merge into the first writer's row.
type Entity struct {
	ID                 int64
	Kind               string
	Name               string
	AccumulatedContext string
	CreatedAt          int64
	UpdatedAt          int64
}

// FoldName derives the case-insensitive identity key for an entity name.
// Unicode case folding rather than ASCII lowering, so "Éva" and "éva" do not
// fragment into two entities.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// GetEntityByName returns the entity for (kind, name) using case-folded
// matching, or nil if not found.
func (db *DB) GetEntityByName(kind, name string) (*Entity, error) {
	return getEntityByFold(db.DB, kind, FoldName(name))
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func getEntityByFold(q querier, kind, fold string) (*Entity, error) {
	var e Entity
	err := q.QueryRow(`
		SELECT id, kind, name, accumulated_context, created_at, updated_at
		FROM entities WHERE kind = ? AND name_fold = ?
	`, kind, fold).Scan(&e.ID, &e.Kind, &e.Name, &e.AccumulatedContext, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity by name: %w", err)
	}
	return &e, nil
}

// GetEntity returns an entity by ID, or nil if not found.
func (db *DB) GetEntity(id int64) (*Entity, error) {
	var e Entity
	err := db.QueryRow(`
		SELECT id, kind, name, accumulated_context, created_at, updated_at
		FROM entities WHERE id = ?
	`, id).Scan(&e.ID, &e.Kind, &e.Name, &e.AccumulatedContext, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &e, nil
}

// ListEntities returns entities, optionally filtered by kind, most recently
// updated first.
func (db *DB) ListEntities(kind string) ([]Entity, error) {
	query := `
		SELECT id, kind, name, accumulated_context, created_at, updated_at
		FROM entities ORDER BY updated_at DESC`
	args := []any{}
	if kind != "" {
		query = `
		SELECT id, kind, name, accumulated_context, created_at, updated_at
		FROM entities WHERE kind = ? ORDER BY updated_at DESC`
		args = append(args, kind)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Kind, &e.Name, &e.AccumulatedContext, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// CountEntities returns the total number of entities.
func (db *DB) CountEntities() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM entities").Scan(&count)
	return count, err
}

// createEntityTx inserts a new entity inside a transaction. On a (kind,
// name_fold) conflict the insert is a no-op and the existing row is returned
// instead, so racing writers converge on the first writer's entity.
func createEntityTx(tx *sql.Tx, kind, name, fold, seedContext string) (*Entity, bool, error) {
	now := time.Now().UnixMilli()
	result, err := tx.Exec(`
		INSERT INTO entities (kind, name, name_fold, accumulated_context, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, name_fold) DO NOTHING
	`, kind, name, fold, seedContext, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("create entity: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("create entity rows: %w", err)
	}
	if n == 0 {
		existing, err := getEntityByFold(tx, kind, fold)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("entity %s/%s vanished after conflict", kind, fold)
		}
		return existing, false, nil
	}

	id, _ := result.LastInsertId()
	return &Entity{
		ID:                 id,
		Kind:               kind,
		Name:               name,
		AccumulatedContext: seedContext,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, true, nil
}

// appendContextTx appends a dated line to an entity's accumulated context.
// The append happens in SQL against the current row value, so the
// read-modify-write is atomic under the enclosing transaction.
func appendContextTx(tx *sql.Tx, entityID int64, line string) error {
	now := time.Now().UnixMilli()
	_, err := tx.Exec(`
		UPDATE entities SET accumulated_context = accumulated_context || ?, updated_at = ?
		WHERE id = ?
	`, line, now, entityID)
	if err != nil {
		return fmt.Errorf("append context: %w", err)
	}
	return nil
}
