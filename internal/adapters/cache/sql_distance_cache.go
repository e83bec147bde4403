package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"logistics-route-service/internal/platform/obs"
	"logistics-route-service/internal/ports"
)

// SQLDistanceCache is a Postgres-backed cache of measured route distances.
type SQLDistanceCache struct {
	DB *sql.DB
}

var _ ports.DistanceCache = (*SQLDistanceCache)(nil)

func NewSQLDistanceCache(db *sql.DB) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db}
}

// Fetch a cached distance in meters.
func (s *SQLDistanceCache) Get(ctx context.Context, key string) (_ float64, _ bool, err error) {
	defer obs.Time(ctx, "distance.cache.Get")(&err)

	if s.DB == nil {
		return 0, false, errors.New("distance cache: db is nil")
	}
	if key == "" {
		return 0, false, errors.New("get distance cache: key must not be empty")
	}

	q := `
	SELECT distance_meters
	FROM route_distance_cache
	WHERE cache_key = $1;
	`

	var meters float64
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&meters)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get distance cache: query route_distance_cache table: %w", err)
	}

	return meters, true, nil
}

// Store a measured distance, replacing any previous value for the key.
func (s *SQLDistanceCache) Put(ctx context.Context, key string, meters float64) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}
	if key == "" {
		return errors.New("insert distance cache: key must not be empty")
	}

	q := `
	INSERT INTO route_distance_cache (cache_key, distance_meters, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (cache_key) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		updated_at = EXCLUDED.updated_at;
	`

	if _, err := s.DB.ExecContext(ctx, q, key, meters); err != nil {
		return fmt.Errorf("insert distance cache key=%q: %w", key, err)
	}

	return nil
}
