package database

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/bikinibottom/spongeplay/internal/storage"
	"github.com/jackc/pgx/v5"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Documents is a storage.Backend on the Postgres documents table. Versions
// are the integer revision column.
type Documents struct {
	db      DBTX
	pinger  Pinger
	queries documentQueries
}

var _ storage.Backend = (*Documents)(nil)

func NewDocuments(db DBTX, pinger Pinger) *Documents {
	return &Documents{db: db, pinger: pinger, queries: documentQueries{ph: sq.Dollar}}
}

func (d *Documents) Read(ctx context.Context, name string) (storage.Document, error) {
	query, args, err := d.queries.read(name)
	if err != nil {
		return storage.Document{}, fmt.Errorf("build read query: %w", err)
	}

	var body []byte
	var version int64
	if err := d.db.QueryRow(ctx, query, args...).Scan(&body, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Document{}, storage.ErrNotFound
		}
		return storage.Document{}, fmt.Errorf("read document %s: %w", name, err)
	}
	return storage.Document{Data: body, Version: formatVersion(version)}, nil
}

func (d *Documents) Write(ctx context.Context, name string, data []byte, match storage.Version) (storage.Version, error) {
	query, args, err := d.queries.write(name, data, match)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("build write query: %w", err)
	}

	var version int64
	if err := d.db.QueryRow(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrConflict
		}
		return "", fmt.Errorf("write document %s: %w", name, err)
	}
	return formatVersion(version), nil
}

func (d *Documents) Ping(ctx context.Context) error {
	if d.pinger == nil {
		return nil
	}
	return d.pinger.Ping(ctx)
}
