package services

import (
	"logistics-route-service/internal/adapters/distance"
	"logistics-route-service/internal/adapters/odoo/odootest"
	"logistics-route-service/internal/adapters/repositories"
	"logistics-route-service/internal/domain"
	"testing"

	"go.uber.org/zap"
)

const (
	routeModel   = "logistics.route"
	loadModel    = "logistics.load"
	partnerModel = "res.partner"
	orderModel   = "purchase.order"
	lineModel    = "purchase.order.line"
	productModel = "product.product"
)

type fixture struct {
	primary   *odootest.Registry
	secondary *odootest.Registry
	provider  *distance.MockDistanceProvider
	resolver  *PartnerResolver
	sequencer *WaypointSequencer
	estimator *DistanceEstimator
	routes    *RouteService
}

func newFixture(t *testing.T, mock []distance.MockRoute) *fixture {
	t.Helper()

	primary := odootest.New()
	secondary := odootest.New()
	provider := distance.NewMockDistanceProvider(mock)
	logger := zap.NewNop()

	resolver := NewPartnerResolver(
		repositories.NewRegistryPartnerRepository(primary),
		repositories.NewRegistryPartnerRepository(secondary),
	)
	loads := repositories.NewRegistryLoadRepository(primary)
	sequencer := NewWaypointSequencer(loads, resolver, logger)
	estimator := NewDistanceEstimator(provider, nil, "truck", logger)
	routes := NewRouteService(
		repositories.NewRegistryRouteRepository(primary),
		loads,
		resolver,
		sequencer,
		estimator,
		logger,
	)

	return &fixture{
		primary:   primary,
		secondary: secondary,
		provider:  provider,
		resolver:  resolver,
		sequencer: sequencer,
		estimator: estimator,
		routes:    routes,
	}
}

func (f *fixture) partner(id int, name string, lat, lon float64) {
	f.primary.Seed(partnerModel, id, map[string]any{"name": name, "latitude": lat, "longitude": lon})
}

func (f *fixture) load(id int, name string, vendorID int, state domain.LoadState) {
	f.primary.Seed(loadModel, id, map[string]any{
		"name":      name,
		"vendor_id": []any{vendorID, "Vendor " + name},
		"state":     string(state),
	})
}

func (f *fixture) loadState(id int) string {
	rec := f.primary.Record(loadModel, id)
	if rec == nil {
		return ""
	}
	s, _ := rec["state"].(string)
	return s
}

func intPtr(v int) *int { return &v }

func pt(lat, lon float64) domain.Coordinates { return domain.Coordinates{Lat: lat, Lon: lon} }
