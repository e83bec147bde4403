package ports

import (
	"context"
	"logistics-route-service/internal/domain"
)

// Contract for measuring a truck route through ordered points.
type DistanceProvider interface {
	// Return the travel distance in meters through all points in order.
	RouteDistance(ctx context.Context, points []domain.Coordinates) (float64, error)
}

// DistanceCache keeps previously measured routes.
type DistanceCache interface {
	Get(ctx context.Context, key string) (meters float64, ok bool, err error)
	Put(ctx context.Context, key string, meters float64) error
}
