// Package store persists runtime additions. Definition files remain the
// primary source of entries; the journal only records what arrived through
// the add operations so a restart replays them in their original order.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snow-ghost/rewriter/core"
)

// Journal is a SQLite-backed append-only log of added snippets and mutation
// collections.
type Journal struct {
	db *sql.DB
}

// NewJournal opens (or creates) the journal database at dbPath.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal tables: %w", err)
	}
	return j, nil
}

func (j *Journal) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS snippets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		description TEXT NOT NULL,
		language TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		description TEXT NOT NULL,
		language TEXT NOT NULL,
		rules TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := j.db.Exec(query)
	return err
}

// RecordSnippet appends a snippet to the journal.
func (j *Journal) RecordSnippet(s core.Snippet) error {
	_, err := j.db.Exec(
		`INSERT INTO snippets (description, language, body) VALUES (?, ?, ?)`,
		s.Description, s.Language, s.Body,
	)
	if err != nil {
		return fmt.Errorf("record snippet: %w", err)
	}
	return nil
}

// RecordCollection appends a mutation collection to the journal. Rules are
// stored as a JSON column; they are already validated by the caller.
func (j *Journal) RecordCollection(c core.MutationCollection) error {
	rules, err := json.Marshal(c.Rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	_, err = j.db.Exec(
		`INSERT INTO collections (description, language, rules) VALUES (?, ?, ?)`,
		c.Description, c.Language, string(rules),
	)
	if err != nil {
		return fmt.Errorf("record collection: %w", err)
	}
	return nil
}

// Snippets returns every journaled snippet in insertion order.
func (j *Journal) Snippets() ([]core.Snippet, error) {
	rows, err := j.db.Query(`SELECT description, language, body FROM snippets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query snippets: %w", err)
	}
	defer rows.Close()

	var out []core.Snippet
	for rows.Next() {
		var s core.Snippet
		if err := rows.Scan(&s.Description, &s.Language, &s.Body); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Collections returns every journaled collection in insertion order.
func (j *Journal) Collections() ([]core.MutationCollection, error) {
	rows, err := j.db.Query(`SELECT description, language, rules FROM collections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	var out []core.MutationCollection
	for rows.Next() {
		var c core.MutationCollection
		var rules string
		if err := rows.Scan(&c.Description, &c.Language, &rules); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		if err := json.Unmarshal([]byte(rules), &c.Rules); err != nil {
			return nil, fmt.Errorf("decode rules: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (j *Journal) Close() error { return j.db.Close() }
