package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "entries: journal entries",
		SQL: `
CREATE TABLE entries (
    id           TEXT PRIMARY KEY,
    date         INTEGER NOT NULL,
    content      TEXT NOT NULL,
    mood         TEXT NOT NULL CHECK (mood IN ('GREAT', 'GOOD', 'NEUTRAL', 'STRESSED', 'BAD')),
    extracted_at INTEGER,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_entries_date ON entries(date DESC);
`,
	},
	{
		Version:     2,
		Description: "entities: long-lived memory entities",
		SQL: `
CREATE TABLE entities (
    id                  INTEGER PRIMARY KEY,
    kind                TEXT NOT NULL CHECK (kind IN ('PERSON', 'EVENT', 'FEELING')),
    name                TEXT NOT NULL,
    name_fold           TEXT NOT NULL,
    accumulated_context TEXT NOT NULL DEFAULT '',
    created_at          INTEGER NOT NULL,
    updated_at          INTEGER NOT NULL,

    UNIQUE (kind, name_fold)
);

CREATE INDEX idx_entities_kind ON entities(kind);
`,
	},
	{
		Version:     3,
		Description: "interactions: per-entry interaction records",
		SQL: `
CREATE TABLE interactions (
    id         INTEGER PRIMARY KEY,
    entity_id  INTEGER NOT NULL,
    entry_id   TEXT NOT NULL,
    snippet    TEXT NOT NULL,
    sentiment  REAL NOT NULL DEFAULT 0.5,
    created_at INTEGER NOT NULL,

    FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE,
    FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
);

CREATE INDEX idx_interactions_entity ON interactions(entity_id);
CREATE INDEX idx_interactions_entry  ON interactions(entry_id);
`,
	},
	{
		Version:     4,
		Description: "tasks: scoreable work items",
		SQL: `
CREATE TABLE tasks (
    id                INTEGER PRIMARY KEY,
    title             TEXT NOT NULL,
    completed         INTEGER NOT NULL DEFAULT 0,
    due_at            INTEGER,
    priority          TEXT NOT NULL DEFAULT 'MEDIUM' CHECK (priority IN ('LOW', 'MEDIUM', 'HIGH')),
    context           TEXT NOT NULL DEFAULT 'PERSONAL' CHECK (context IN ('PERSONAL', 'PROFESSIONAL', 'MIXED')),
    energy_level      TEXT NOT NULL DEFAULT 'MEDIUM' CHECK (energy_level IN ('LOW', 'MEDIUM', 'HIGH')),
    category          TEXT NOT NULL DEFAULT '',
    tags              TEXT NOT NULL DEFAULT '[]',
    subtasks          TEXT NOT NULL DEFAULT '[]',
    estimated_minutes INTEGER,
    created_at        INTEGER NOT NULL
);

CREATE INDEX idx_tasks_completed ON tasks(completed);
CREATE INDEX idx_tasks_due       ON tasks(due_at);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
