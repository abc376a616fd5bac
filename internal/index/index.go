// Package index writes an evaluated project into a SQLite database so tasks
// and field values, computed ones included, can be queried with SQL.
//
// The database is derived data. Every [Rebuild] drops and recreates the
// schema inside one transaction; the catalog file stays the source of truth.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/jamsmac/MYDON-sub006/internal/project"
	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// SchemaVersion is stored in PRAGMA user_version.
const SchemaVersion = 1

// busyTimeout is how long SQLite waits on a locked database, in milliseconds.
const busyTimeout = 10000

// Open opens (creating if needed) the index database at path.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("open sqlite: path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
	`, busyTimeout))
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return db, nil
}

// StoredVersion reads PRAGMA user_version.
func StoredVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int

	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}

	return version, nil
}

func recreateSchema(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		"DROP TABLE IF EXISTS field_values",
		"DROP TABLE IF EXISTS fields",
		"DROP TABLE IF EXISTS tasks",
		`CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			parent TEXT,
			title TEXT NOT NULL,
			status TEXT,
			priority TEXT,
			deadline_ms INTEGER,
			progress REAL
		) WITHOUT ROWID`,
		`CREATE TABLE fields (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			formula TEXT,
			rollup_source TEXT,
			rollup_aggregation TEXT
		) WITHOUT ROWID`,
		`CREATE TABLE field_values (
			task_id TEXT NOT NULL,
			field_id TEXT NOT NULL,
			display TEXT NOT NULL,
			text_value TEXT,
			number_value REAL,
			date_ms INTEGER,
			bool_value INTEGER,
			list_json TEXT,
			error_code TEXT,
			PRIMARY KEY (task_id, field_id)
		) WITHOUT ROWID`,
		"CREATE INDEX idx_tasks_parent ON tasks(parent)",
		"CREATE INDEX idx_values_field ON field_values(field_id, number_value)",
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}

	return nil
}

// Rebuild replaces the contents of db with the evaluated rows. It returns
// the number of field values written; empty values are skipped.
func Rebuild(ctx context.Context, db *sql.DB, defs []fields.FieldDefinition, rows []project.Row) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rebuild txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := recreateSchema(ctx, tx); err != nil {
		return 0, err
	}

	for _, def := range defs {
		var source, agg sql.NullString
		if def.Rollup != nil {
			source = sql.NullString{String: def.Rollup.SourceField, Valid: true}
			agg = sql.NullString{String: def.Rollup.Aggregation, Valid: true}
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO fields (id, name, type, formula, rollup_source, rollup_aggregation) VALUES (?, ?, ?, ?, ?, ?)",
			def.ID, def.Name, string(def.Type), nullString(def.Formula), source, agg)
		if err != nil {
			return 0, fmt.Errorf("insert field %s: %w", def.Name, err)
		}
	}

	insertTask, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, parent, title, status, priority, deadline_ms, progress)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare task insert: %w", err)
	}

	defer func() { _ = insertTask.Close() }()

	insertValue, err := tx.PrepareContext(ctx, `
		INSERT INTO field_values (
			task_id, field_id, display, text_value, number_value, date_ms, bool_value, list_json, error_code
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare value insert: %w", err)
	}

	defer func() { _ = insertValue.Close() }()

	written := 0

	for _, row := range rows {
		t := row.Task

		var deadline sql.NullInt64
		if t.Deadline != nil {
			deadline = sql.NullInt64{Int64: t.Deadline.UnixMilli(), Valid: true}
		}

		var progress sql.NullFloat64
		if t.Progress != nil {
			progress = sql.NullFloat64{Float64: *t.Progress, Valid: true}
		}

		_, err := insertTask.ExecContext(ctx, t.ID, nullString(t.Parent), t.Title,
			nullString(t.Status), nullString(t.Priority), deadline, progress)
		if err != nil {
			return 0, fmt.Errorf("insert task %s: %w", t.ID, err)
		}

		for _, cell := range row.Cells {
			cols, ok, err := columnsOf(cell)
			if err != nil {
				return 0, fmt.Errorf("encode %s on %s: %w", cell.Field.Name, t.ID, err)
			}

			if !ok {
				continue
			}

			_, err = insertValue.ExecContext(ctx, t.ID, cell.Field.ID, cell.Display(),
				cols.text, cols.number, cols.date, cols.boolean, cols.list, cols.errorCode)
			if err != nil {
				return 0, fmt.Errorf("insert value %s on %s: %w", cell.Field.Name, t.ID, err)
			}

			written++
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return 0, fmt.Errorf("set user_version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild txn: %w", err)
	}

	committed = true

	return written, nil
}

type columns struct {
	text      sql.NullString
	number    sql.NullFloat64
	date      sql.NullInt64
	boolean   sql.NullBool
	list      sql.NullString
	errorCode sql.NullString
}

// columnsOf spreads a cell's value over the typed columns. ok is false for
// an empty value, which gets no row.
func columnsOf(cell project.Cell) (columns, bool, error) {
	var cols columns

	v := cell.Result.Value

	if !cell.Result.OK {
		cols.errorCode = sql.NullString{String: string(cell.Result.ErrorCode), Valid: true}

		return cols, true, nil
	}

	if v.IsEmpty() {
		return cols, false, nil
	}

	switch v.Kind() {
	case fields.KindString:
		s, _ := v.Str()
		cols.text = sql.NullString{String: s, Valid: true}
	case fields.KindNumber:
		n, _ := v.Num()
		cols.number = sql.NullFloat64{Float64: n, Valid: true}
	case fields.KindTimestamp:
		ms, _ := v.Millis()
		cols.date = sql.NullInt64{Int64: ms, Valid: true}
	case fields.KindBoolean:
		b, _ := v.Boolean()
		cols.boolean = sql.NullBool{Bool: b, Valid: true}
	case fields.KindList:
		items, _ := v.Items()

		data, err := json.Marshal(items)
		if err != nil {
			return cols, false, err
		}

		cols.list = sql.NullString{String: string(data), Valid: true}
	}

	return cols, true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
