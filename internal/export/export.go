package export

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/refcache/refcache/internal/cache"
	"github.com/refcache/refcache/internal/policy"
	"github.com/refcache/refcache/internal/value"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (entities + fields).
const currentSchemaVersion = 1

// DB wraps the SQLite file an export writes into.
type DB struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// the export schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// WriteSnapshot replaces the export's contents with the given composed
// entity table. Runs in one transaction; a failed export leaves the
// previous contents intact.
func (d *DB) WriteSnapshot(ctx context.Context, snapshot cache.EntityMap, set *policy.Set) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fields`); err != nil {
		return fmt.Errorf("reset fields: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return fmt.Errorf("reset entities: %w", err)
	}

	for id, rec := range snapshot {
		if err := exportEntity(ctx, tx, id, rec, set); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

func exportEntity(ctx context.Context, tx *sql.Tx, id cache.EntityID, rec cache.Record, set *policy.Set) error {
	recordJSON, err := value.MarshalCanonical(value.Object(rec))
	if err != nil {
		return fmt.Errorf("entity %s: %w", id, err)
	}

	typename := ""
	if tn, ok := rec[set.TypenameField()].(value.String); ok {
		typename = string(tn)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entities (id, typename, record) VALUES (?, ?, ?)
	`, string(id), typename, string(recordJSON)); err != nil {
		return fmt.Errorf("insert entity %s: %w", id, err)
	}

	for name, v := range rec {
		fieldJSON, err := value.MarshalCanonical(v)
		if err != nil {
			return fmt.Errorf("entity %s field %s: %w", id, name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fields (entity_id, name, kind, value) VALUES (?, ?, ?, ?)
		`, string(id), name, fieldKind(v), string(fieldJSON)); err != nil {
			return fmt.Errorf("insert field %s.%s: %w", id, name, err)
		}
	}
	return nil
}

// fieldKind tags the stored variant for SQL-side filtering.
func fieldKind(v value.Value) string {
	switch v.(type) {
	case value.Ref:
		return "ref"
	case value.List:
		return "list"
	case value.Object:
		return "object"
	case value.Null:
		return "null"
	default:
		return "scalar"
	}
}

// CountEntities returns the number of exported entities. Used for
// post-export reporting.
func (d *DB) CountEntities(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
