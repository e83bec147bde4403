package services

import (
	"context"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"

	"go.uber.org/zap"
)

// DistanceEstimator measures a waypoint sequence in kilometers.
// It never fails: anything that goes wrong yields 0 and a warning.
type DistanceEstimator struct {
	Provider ports.DistanceProvider
	Cache    ports.DistanceCache
	Profile  string
	Log      *zap.Logger
}

func NewDistanceEstimator(provider ports.DistanceProvider, cache ports.DistanceCache, profile string, logger *zap.Logger) *DistanceEstimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistanceEstimator{Provider: provider, Cache: cache, Profile: profile, Log: logger}
}

// EstimateKm returns the travel distance through the usable waypoints in order.
func (e *DistanceEstimator) EstimateKm(ctx context.Context, waypoints []domain.Waypoint) float64 {
	points := make([]domain.Coordinates, 0, len(waypoints))
	for _, w := range waypoints {
		if c := w.Coordinates(); c.Usable() {
			points = append(points, c)
		}
	}
	if len(points) < 2 || e.Provider == nil {
		return 0
	}

	key := domain.RouteKey(e.Profile, points)

	if e.Cache != nil {
		meters, ok, err := e.Cache.Get(ctx, key)
		if err != nil {
			e.Log.Warn("distance cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return meters / 1000
		}
	}

	meters, err := e.Provider.RouteDistance(ctx, points)
	if err != nil {
		e.Log.Warn("route distance unavailable", zap.Int("points", len(points)), zap.Error(err))
		return 0
	}
	if meters <= 0 {
		return 0
	}

	if e.Cache != nil {
		if err := e.Cache.Put(ctx, key, meters); err != nil {
			e.Log.Warn("distance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return meters / 1000
}
