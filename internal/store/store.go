package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Expression index on body.eventId for event-id queries
const currentSchemaVersion = 1

// SQLite stores documents in a single SQLite file. Databases are namespaces
// inside that file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// Use ":memory:" for a private in-memory database; the pool is limited to one
// connection so every caller sees the same data.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
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

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB. The blob store shares it in tests.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Database returns the namespace called name.
func (s *SQLite) Database(name string) Database {
	return &sqliteDatabase{db: s.db, name: name}
}

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

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes the event id, the secondary key cleanup queries on.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_event_id
		ON documents(container, json_extract(body, '$.eventId'))
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

type sqliteDatabase struct {
	db   *sql.DB
	name string
}

func (d *sqliteDatabase) Container(name string) Container {
	return &sqliteContainer{db: d.db, name: name, qualified: d.name + "/" + name}
}

type sqliteContainer struct {
	db        *sql.DB
	name      string
	qualified string
}

func (c *sqliteContainer) Name() string {
	return c.name
}

func (c *sqliteContainer) Create(ctx context.Context, id, partitionKey string, doc any) (WriteResult, error) {
	if err := checkID("create", c.name, id); err != nil {
		return WriteResult{}, err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return WriteResult{}, &Error{Kind: KindInvalid, Op: "create", Container: c.name, ID: id, Err: err}
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO documents (container, id, partition_key, body) VALUES (?, ?, ?, ?)`,
		c.qualified, id, partitionKey, string(body))
	if err != nil {
		if isUniqueViolation(err) {
			return WriteResult{}, &Error{Kind: KindConflict, Op: "create", Container: c.name, ID: id}
		}
		return WriteResult{}, &Error{Kind: KindBackend, Op: "create", Container: c.name, ID: id, Err: err}
	}

	return created(id), nil
}

func (c *sqliteContainer) Read(ctx context.Context, id, partitionKey string, out any) error {
	var body string
	err := c.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE container = ? AND id = ? AND partition_key = ?`,
		c.qualified, id, partitionKey).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Op: "read", Container: c.name, ID: id}
	}
	if err != nil {
		return &Error{Kind: KindBackend, Op: "read", Container: c.name, ID: id, Err: err}
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &Error{Kind: KindInvalid, Op: "read", Container: c.name, ID: id, Err: err}
	}
	return nil
}

func (c *sqliteContainer) Delete(ctx context.Context, id, partitionKey string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM documents WHERE container = ? AND id = ? AND partition_key = ?`,
		c.qualified, id, partitionKey)
	if err != nil {
		return &Error{Kind: KindBackend, Op: "delete", Container: c.name, ID: id, Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &Error{Kind: KindBackend, Op: "delete", Container: c.name, ID: id, Err: err}
	}
	if n == 0 {
		return &Error{Kind: KindNotFound, Op: "delete", Container: c.name, ID: id}
	}
	return nil
}

func (c *sqliteContainer) QueryIDs(ctx context.Context, field, value string) ([]Key, error) {
	if err := checkField("query", c.name, field); err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, partition_key FROM documents
		 WHERE container = ? AND json_extract(body, ?) = ?
		 ORDER BY seq ASC`,
		c.qualified, "$."+field, value)
	if err != nil {
		return nil, &Error{Kind: KindBackend, Op: "query", Container: c.name, Err: err}
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ID, &k.PartitionKey); err != nil {
			return nil, &Error{Kind: KindBackend, Op: "query", Container: c.name, Err: err}
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Kind: KindBackend, Op: "query", Container: c.name, Err: err}
	}
	return keys, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
