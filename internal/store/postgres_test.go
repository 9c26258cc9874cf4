package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

func fptr(v float64) *float64 { return &v }

func TestPostgres_GetHit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT lat, lon FROM geocode_cache").
		WithArgs(Namespace, "addr").
		WillReturnRows(pgxmock.NewRows([]string{"lat", "lon"}).AddRow(fptr(39.78), fptr(-89.65)))

	s := NewPostgresWithPool(mock)
	coord, found, err := s.Get(context.Background(), "addr")
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, coord)
	assert.Equal(t, geocode.Coord{Lat: 39.78, Lon: -89.65}, *coord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetCachedMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT lat, lon FROM geocode_cache").
		WithArgs(Namespace, "addr").
		WillReturnRows(pgxmock.NewRows([]string{"lat", "lon"}).AddRow((*float64)(nil), (*float64)(nil)))

	s := NewPostgresWithPool(mock)
	coord, found, err := s.Get(context.Background(), "addr")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, coord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT lat, lon FROM geocode_cache").
		WithArgs(Namespace, "addr").
		WillReturnRows(pgxmock.NewRows([]string{"lat", "lon"}))

	s := NewPostgresWithPool(mock)
	coord, found, err := s.Get(context.Background(), "addr")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, coord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO geocode_cache").
		WithArgs(Namespace, "addr", 1.5, 2.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Put(context.Background(), "addr", &geocode.Coord{Lat: 1.5, Lon: 2.5}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PutMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO geocode_cache").
		WithArgs(Namespace, "addr", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Put(context.Background(), "addr", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Export(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT address, lat, lon FROM geocode_cache").
		WithArgs(Namespace).
		WillReturnRows(pgxmock.NewRows([]string{"address", "lat", "lon"}).
			AddRow("a", fptr(1.0), fptr(2.0)).
			AddRow("b", (*float64)(nil), (*float64)(nil)))

	s := NewPostgresWithPool(mock)
	out, err := s.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, &geocode.Coord{Lat: 1, Lon: 2}, out["a"])
	assert.Nil(t, out["b"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
