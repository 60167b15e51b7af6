package database

import (
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/bikinibottom/spongeplay/internal/storage"
)

const documentsTable = "documents"

// documentQueries builds the document SQL shared by the Postgres and SQLite stores.
type documentQueries struct {
	ph sq.PlaceholderFormat
}

func (q documentQueries) read(name string) (string, []any, error) {
	return sq.Select("body", "version").
		From(documentsTable).
		Where(sq.Eq{"name": name}).
		PlaceholderFormat(q.ph).
		ToSql()
}

// write returns a statement that yields the new version as its only row, or
// no row when match does not hold.
func (q documentQueries) write(name string, data []byte, match storage.Version) (string, []any, error) {
	switch match {
	case storage.Any:
		return sq.Insert(documentsTable).
			Columns("name", "body", "version").
			Values(name, data, 1).
			Suffix("ON CONFLICT (name) DO UPDATE SET body = excluded.body, version = " + documentsTable + ".version + 1, updated_at = CURRENT_TIMESTAMP RETURNING version").
			PlaceholderFormat(q.ph).
			ToSql()
	case storage.Absent:
		return sq.Insert(documentsTable).
			Columns("name", "body", "version").
			Values(name, data, 1).
			Suffix("ON CONFLICT (name) DO NOTHING RETURNING version").
			PlaceholderFormat(q.ph).
			ToSql()
	}

	version, err := parseVersion(match)
	if err != nil {
		return "", nil, err
	}
	return sq.Update(documentsTable).
		Set("body", data).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"name": name, "version": version}).
		Suffix("RETURNING version").
		PlaceholderFormat(q.ph).
		ToSql()
}

func parseVersion(v storage.Version) (int64, error) {
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, storage.ErrConflict
	}
	return n, nil
}

func formatVersion(n int64) storage.Version {
	return storage.Version(strconv.FormatInt(n, 10))
}
