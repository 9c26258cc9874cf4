package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and applies the cache migration.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	namespace  TEXT NOT NULL,
	address    TEXT NOT NULL,
	lat        REAL,
	lon        REAL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (namespace, address)
);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Get(ctx context.Context, address string) (*geocode.Coord, bool, error) {
	var lat, lon sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon FROM geocode_cache WHERE namespace = ? AND address = ?`,
		Namespace, address,
	).Scan(&lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get cache entry")
	}

	if !lat.Valid || !lon.Valid {
		return nil, true, nil // cached miss
	}
	return &geocode.Coord{Lat: lat.Float64, Lon: lon.Float64}, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, address string, coord *geocode.Coord) error {
	var lat, lon any
	if coord != nil {
		lat, lon = coord.Lat, coord.Lon
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (namespace, address, lat, lon, cached_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT (namespace, address) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			cached_at = datetime('now')`,
		Namespace, address, lat, lon,
	)
	return eris.Wrap(err, "sqlite: put cache entry")
}

func (s *SQLiteStore) Export(ctx context.Context) (map[string]*geocode.Coord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, lat, lon FROM geocode_cache WHERE namespace = ?`,
		Namespace,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: export cache")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]*geocode.Coord)
	for rows.Next() {
		var address string
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&address, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cache row")
		}
		if lat.Valid && lon.Valid {
			out[address] = &geocode.Coord{Lat: lat.Float64, Lon: lon.Float64}
		} else {
			out[address] = nil
		}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate cache rows")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
