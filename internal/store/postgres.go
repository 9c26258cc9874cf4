package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

// Pool is the subset of pgxpool.Pool the Postgres store uses; pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to Postgres and applies the cache migration.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresWithPool wraps an existing pool without migrating; used in tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			namespace  TEXT NOT NULL,
			address    TEXT NOT NULL,
			lat        DOUBLE PRECISION,
			lon        DOUBLE PRECISION,
			cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, address)
		)`)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Get(ctx context.Context, address string) (*geocode.Coord, bool, error) {
	var lat, lon *float64
	err := s.pool.QueryRow(ctx,
		`SELECT lat, lon FROM geocode_cache WHERE namespace = $1 AND address = $2`,
		Namespace, address,
	).Scan(&lat, &lon)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: get cache entry")
	}

	if lat == nil || lon == nil {
		return nil, true, nil // cached miss
	}
	return &geocode.Coord{Lat: *lat, Lon: *lon}, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, address string, coord *geocode.Coord) error {
	var lat, lon any
	if coord != nil {
		lat, lon = coord.Lat, coord.Lon
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO geocode_cache (namespace, address, lat, lon, cached_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (namespace, address) DO UPDATE SET
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			cached_at = now()`,
		Namespace, address, lat, lon,
	)
	return eris.Wrap(err, "postgres: put cache entry")
}

func (s *PostgresStore) Export(ctx context.Context) (map[string]*geocode.Coord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, lat, lon FROM geocode_cache WHERE namespace = $1`,
		Namespace,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: export cache")
	}
	defer rows.Close()

	out := make(map[string]*geocode.Coord)
	for rows.Next() {
		var address string
		var lat, lon *float64
		if err := rows.Scan(&address, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cache row")
		}
		if lat != nil && lon != nil {
			out[address] = &geocode.Coord{Lat: *lat, Lon: *lon}
		} else {
			out[address] = nil
		}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate cache rows")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
