// ABOUTME: Schema and migration manager for the notes table.
// ABOUTME: Creates the table or additively adds missing columns and indexes.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

const notesTable = "notes"

// indexAttempts bounds retries for a single index before it is skipped.
const indexAttempts = 3

type column struct {
	name string
	decl string
}

// schemaColumns is the current notes shape. Every non-key column carries a
// default so ALTER TABLE ADD COLUMN keeps existing rows valid.
var schemaColumns = []column{
	{"id", "TEXT PRIMARY KEY"},
	{"title", "TEXT NOT NULL DEFAULT ''"},
	{"content", "TEXT NOT NULL DEFAULT ''"},
	{"plain_text", "TEXT NOT NULL DEFAULT ''"},
	{"word_count", "INTEGER NOT NULL DEFAULT 0"},
	{"created_at", "TEXT NOT NULL DEFAULT ''"},
	{"updated_at", "TEXT NOT NULL DEFAULT ''"},
	{"folder_id", "TEXT"},
	{"tags", "TEXT NOT NULL DEFAULT '[]'"},
	{"reading_time", "INTEGER NOT NULL DEFAULT 1"},
	{"last_edit_position", "INTEGER NOT NULL DEFAULT 0"},
	{"is_pinned", "INTEGER NOT NULL DEFAULT 0"},
	{"is_favorite", "INTEGER NOT NULL DEFAULT 0"},
	{"is_deleted", "INTEGER NOT NULL DEFAULT 0"},
	{"metadata", "TEXT NOT NULL DEFAULT '{}'"},
}

var schemaIndexes = []struct {
	name   string
	column string
}{
	{"idx_notes_updated_at", "updated_at"},
	{"idx_notes_is_deleted", "is_deleted"},
	{"idx_notes_folder_id", "folder_id"},
	{"idx_notes_plain_text", "plain_text"},
}

// EnsureSchema makes the notes table match schemaColumns. It never drops or
// renames columns. Index failures are logged and do not fail the call.
func EnsureSchema(ctx context.Context, db *sql.DB, logger *log.Logger) error {
	existing, err := tableColumns(ctx, db, notesTable)
	if err != nil {
		return fmt.Errorf("inspect table: %w", err)
	}

	if len(existing) == 0 {
		if _, err := db.ExecContext(ctx, createTableSQL()); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		logger.Debug("created notes table")
	} else {
		for _, col := range schemaColumns {
			if _, ok := existing[col.name]; ok {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", notesTable, col.name, col.decl)
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s: %w", col.name, err)
			}
			logger.Info("added missing column", "table", notesTable, "column", col.name)
		}
	}

	ensureIndexes(ctx, db, logger)
	return nil
}

func createTableSQL() string {
	defs := make([]string, len(schemaColumns))
	for i, col := range schemaColumns {
		defs[i] = "    " + col.name + " " + col.decl
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", notesTable, strings.Join(defs, ",\n"))
}

// tableColumns returns the column names of table, empty if it does not exist.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}

func ensureIndexes(ctx context.Context, db *sql.DB, logger *log.Logger) {
	for _, idx := range schemaIndexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.name, notesTable, idx.column)
		var err error
		for attempt := 1; attempt <= indexAttempts; attempt++ {
			if _, err = db.ExecContext(ctx, stmt); err == nil {
				break
			}
			logger.Warn("index creation failed", "index", idx.name, "attempt", attempt, "err", err)
		}
		if err != nil {
			logger.Error("skipping index", "index", idx.name, "err", err)
		}
	}
}
