package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	_ "github.com/mattn/go-sqlite3"
)

const blobSchema = `
CREATE TABLE IF NOT EXISTS blobs (
    container TEXT NOT NULL,
    name      TEXT NOT NULL,
    version   INTEGER NOT NULL,
    data      BLOB NOT NULL,
    PRIMARY KEY (container, name, version)
);`

// SQLite keeps every uploaded version of a blob as a row; the highest version
// is the current content and the rest are snapshots.
type SQLite struct {
	db        *sql.DB
	container string
	owned     bool
}

// OpenSQLite opens (or creates) a blob database at path and scopes it to
// container.
func OpenSQLite(path, container string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(db, container)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLite uses an existing connection, such as the document store's. Close
// leaves a borrowed connection open.
func NewSQLite(db *sql.DB, container string) (*SQLite, error) {
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to configure blob database: %w", err)
	}
	if _, err := db.Exec(blobSchema); err != nil {
		return nil, fmt.Errorf("failed to apply blob schema: %w", err)
	}
	return &SQLite{db: db, container: container}, nil
}

func (s *SQLite) Upload(ctx context.Context, name string, r io.Reader) (UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to read blob %s: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to begin upload of %s: %w", name, err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM blobs WHERE container = ? AND name = ?`,
		s.container, name).Scan(&version)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to version blob %s: %w", name, err)
	}

	// Empty files are legal uploads; store a zero-length blob, not NULL.
	if data == nil {
		data = []byte{}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO blobs (container, name, version, data) VALUES (?, ?, ?, ?)`,
		s.container, name, version, data)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return UploadResult{}, fmt.Errorf("failed to commit blob %s: %w", name, err)
	}
	return uploaded(name, version), nil
}

func (s *SQLite) Download(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM blobs WHERE container = ? AND name = ? ORDER BY version DESC LIMIT 1`,
		s.container, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download blob %s: %w", name, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *SQLite) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.Snapshots(ctx, name)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) DeleteIfExists(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM blobs WHERE container = ? AND name = ?`, s.container, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	return n > 0, nil
}

// Snapshots returns the number of stored versions of name, current included.
func (s *SQLite) Snapshots(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blobs WHERE container = ? AND name = ?`,
		s.container, name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to stat blob %s: %w", name, err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
