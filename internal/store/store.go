// Package store persists the geocode cache across process lifetimes. Entries
// are keyed by the exact constructed address string; explicit misses are
// stored as null coordinates so a known-unmatchable address never triggers a
// second network lookup.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

// Namespace isolates this application's cache entries in a shared database.
const Namespace = "hazard_atlas_geocode_cache_v1"

// Store is the persistent geocode cache.
type Store interface {
	// Get returns the cached coordinate for an address. found distinguishes
	// "never looked up" from a cached miss (nil coord, found=true).
	Get(ctx context.Context, address string) (coord *geocode.Coord, found bool, err error)

	// Put stores a lookup outcome. A nil coord records an explicit miss.
	Put(ctx context.Context, address string, coord *geocode.Coord) error

	// Export returns the whole cache as address -> coord-or-nil, the shape
	// served by GET /api/geocache.
	Export(ctx context.Context) (map[string]*geocode.Coord, error)

	Close() error
}

// New opens a Store for the configured driver.
func New(driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(context.Background(), dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
