package storage

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS authors (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		affiliation TEXT NOT NULL DEFAULT '',
		sources     JSONB NOT NULL DEFAULT '[]'::jsonb,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS camps (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		domain_id INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS camp_authors (
		camp_id          TEXT NOT NULL REFERENCES camps(id) ON DELETE CASCADE,
		author_id        TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
		relevance        TEXT NOT NULL,
		position_summary TEXT NOT NULL DEFAULT '',
		quote            TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (camp_id, author_id)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS authors (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		affiliation TEXT NOT NULL DEFAULT '',
		sources     TEXT NOT NULL DEFAULT '[]',
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS camps (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		domain_id INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS camp_authors (
		camp_id          TEXT NOT NULL REFERENCES camps(id) ON DELETE CASCADE,
		author_id        TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
		relevance        TEXT NOT NULL,
		position_summary TEXT NOT NULL DEFAULT '',
		quote            TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (camp_id, author_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_camp_authors_author ON camp_authors(author_id)`,
}

// EnsureSchema creates the canon tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := sqliteSchema
	if r.driver == DriverPostgres {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
