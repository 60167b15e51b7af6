package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/bikinibottom/spongeplay/internal/storage"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS documents (
    name       TEXT PRIMARY KEY,
    body       BLOB NOT NULL,
    version    INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLite is a storage.Backend in a single embedded database file.
type SQLite struct {
	db      *sql.DB
	queries documentQueries
}

var _ storage.Backend = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db, queries: documentQueries{ph: sq.Question}}, nil
}

func (s *SQLite) Read(ctx context.Context, name string) (storage.Document, error) {
	query, args, err := s.queries.read(name)
	if err != nil {
		return storage.Document{}, fmt.Errorf("build read query: %w", err)
	}

	var body []byte
	var version int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&body, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Document{}, storage.ErrNotFound
		}
		return storage.Document{}, fmt.Errorf("read document %s: %w", name, err)
	}
	return storage.Document{Data: body, Version: formatVersion(version)}, nil
}

func (s *SQLite) Write(ctx context.Context, name string, data []byte, match storage.Version) (storage.Version, error) {
	query, args, err := s.queries.write(name, data, match)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("build write query: %w", err)
	}

	var version int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrConflict
		}
		return "", fmt.Errorf("write document %s: %w", name, err)
	}
	return formatVersion(version), nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
