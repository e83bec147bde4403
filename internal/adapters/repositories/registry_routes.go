package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"logistics-route-service/internal/adapters/odoo"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
	"strings"

	"go.uber.org/zap"
)

const routeModel = "logistics.route"

var routeFields = []string{
	"id", "name", "status", "vehicle_id", "driver_id", "carrier_id",
	"total_distance_km", "total_cost", "waypoints", "load_ids", "lines_oc", "last_recalc",
}

// reconcileFields is all the reconciler reads from a route.
var reconcileFields = []string{"id", "name", "status", "carrier_id", "total_distance_km", "lines_oc"}

// RegistryRouteRepository implements RouteRepository on the primary registry.
type RegistryRouteRepository struct {
	Registry ports.Registry
	// Log receives warnings about undecodable records; zap.L() when nil.
	Log *zap.Logger
}

var _ ports.RouteRepository = (*RegistryRouteRepository)(nil)

func NewRegistryRouteRepository(registry ports.Registry) *RegistryRouteRepository {
	return &RegistryRouteRepository{Registry: registry}
}

type routeRecord struct {
	ID              int             `json:"id"`
	Name            odoo.String     `json:"name"`
	Status          odoo.String     `json:"status"`
	VehicleID       domain.Ref      `json:"vehicle_id"`
	DriverID        domain.Ref      `json:"driver_id"`
	CarrierID       domain.Ref      `json:"carrier_id"`
	TotalDistanceKm odoo.Float      `json:"total_distance_km"`
	TotalCost       odoo.NullFloat  `json:"total_cost"`
	Waypoints       storedWaypoints `json:"waypoints"`
	LoadIDs         odoo.IDs        `json:"load_ids"`
	LinesOC         bool            `json:"lines_oc"`
	LastRecalc      odoo.Time       `json:"last_recalc"`
}

// storedWaypoints decodes the waypoint list, which the registry keeps as a
// JSON document inside a text field. Text that is not a waypoint list leaves
// the list empty and is reported through err instead of failing the record.
type storedWaypoints struct {
	list []domain.Waypoint
	err  error
}

func (w *storedWaypoints) UnmarshalJSON(b []byte) error {
	*w = storedWaypoints{}

	var text odoo.String
	if err := json.Unmarshal(b, &text); err == nil {
		s := strings.TrimSpace(string(text))
		if s == "" || s == "null" {
			return nil
		}
		b = []byte(s)
	}

	var list []domain.Waypoint
	if err := json.Unmarshal(b, &list); err != nil {
		w.err = fmt.Errorf("decode waypoints: %w", err)
		return nil
	}
	w.list = list
	return nil
}

func (r routeRecord) toDomain() domain.Route {
	return domain.Route{
		ID:              r.ID,
		Name:            string(r.Name),
		Status:          domain.RouteStatus(r.Status).Normalize(),
		Vehicle:         r.VehicleID,
		Driver:          r.DriverID,
		Carrier:         r.CarrierID,
		Waypoints:       r.Waypoints.list,
		TotalDistanceKm: float64(r.TotalDistanceKm),
		TotalCost:       r.TotalCost.Ptr(),
		LoadIDs:         []int(r.LoadIDs),
		LinesOC:         r.LinesOC,
		LastRecalc:      r.LastRecalc.Ptr(),
	}
}

func (s *RegistryRouteRepository) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.L()
}

func (s *RegistryRouteRepository) search(
	ctx context.Context,
	domainFilter ports.Domain,
	fields []string,
	limit int,
) ([]domain.Route, error) {
	if s.Registry == nil {
		return nil, errors.New("route repository: registry is nil")
	}

	var records []routeRecord
	if err := s.Registry.SearchRead(ctx, routeModel, domainFilter, fields, limit, &records); err != nil {
		return nil, err
	}

	routes := make([]domain.Route, 0, len(records))
	for _, rec := range records {
		if rec.Waypoints.err != nil {
			s.logger().Warn("route waypoints unreadable; treating as empty",
				zap.Int("route_id", rec.ID), zap.Error(rec.Waypoints.err))
		}
		routes = append(routes, rec.toDomain())
	}
	return routes, nil
}

func (s *RegistryRouteRepository) List(ctx context.Context) ([]domain.Route, error) {
	routes, err := s.search(ctx, nil, routeFields, 0)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

func (s *RegistryRouteRepository) Get(ctx context.Context, id int) (*domain.Route, error) {
	routes, err := s.search(ctx, ports.Domain{ports.Eq("id", id)}, routeFields, 1)
	if err != nil {
		return nil, fmt.Errorf("get route id=%d: %w", id, err)
	}
	if len(routes) == 0 {
		return nil, nil
	}
	return &routes[0], nil
}

func (s *RegistryRouteRepository) Create(ctx context.Context, name string, vehicleID *int) (int, error) {
	if s.Registry == nil {
		return 0, errors.New("route repository: registry is nil")
	}

	values := map[string]any{"name": name}
	if vehicleID != nil && *vehicleID > 0 {
		values["vehicle_id"] = *vehicleID
	}

	id, err := s.Registry.Create(ctx, routeModel, values)
	if err != nil {
		return 0, fmt.Errorf("create route %q: %w", name, err)
	}
	return id, nil
}

func (s *RegistryRouteRepository) Update(ctx context.Context, id int, changes domain.RouteChanges) error {
	if s.Registry == nil {
		return errors.New("route repository: registry is nil")
	}
	if changes.Empty() {
		return nil
	}

	values, err := routeValues(changes)
	if err != nil {
		return fmt.Errorf("update route id=%d: %w", id, err)
	}
	if err := s.Registry.Write(ctx, routeModel, []int{id}, values); err != nil {
		return fmt.Errorf("update route id=%d: %w", id, err)
	}
	return nil
}

func (s *RegistryRouteRepository) Delete(ctx context.Context, id int) error {
	if s.Registry == nil {
		return errors.New("route repository: registry is nil")
	}
	if err := s.Registry.Unlink(ctx, routeModel, []int{id}); err != nil {
		return fmt.Errorf("delete route id=%d: %w", id, err)
	}
	return nil
}

func (s *RegistryRouteRepository) FindByVehicle(ctx context.Context, vehicleID, excludeRouteID int) (*domain.Route, error) {
	routes, err := s.search(ctx, ports.Domain{
		ports.Eq("vehicle_id", vehicleID),
		ports.NotEq("id", excludeRouteID),
	}, routeFields, 1)
	if err != nil {
		return nil, fmt.Errorf("find route by vehicle id=%d: %w", vehicleID, err)
	}
	if len(routes) == 0 {
		return nil, nil
	}
	return &routes[0], nil
}

func (s *RegistryRouteRepository) ListPendingReconciliation(ctx context.Context) ([]domain.Route, error) {
	routes, err := s.search(ctx, ports.Domain{
		ports.Eq("status", string(domain.RouteDone)),
		ports.Eq("lines_oc", false),
	}, reconcileFields, 0)
	if err != nil {
		return nil, fmt.Errorf("list routes pending reconciliation: %w", err)
	}
	return routes, nil
}

// routeValues maps a change set onto registry field values.
func routeValues(c domain.RouteChanges) (map[string]any, error) {
	values := map[string]any{}

	if c.Name != nil {
		values["name"] = *c.Name
	}
	if c.Status != nil {
		values["status"] = string(*c.Status)
	}
	if c.VehicleID != nil {
		values["vehicle_id"] = refValue(*c.VehicleID)
	}
	if c.DriverID != nil {
		values["driver_id"] = refValue(*c.DriverID)
	}
	if c.Waypoints != nil {
		wps := *c.Waypoints
		if wps == nil {
			wps = []domain.Waypoint{}
		}
		b, err := json.Marshal(wps)
		if err != nil {
			return nil, fmt.Errorf("encode waypoints: %w", err)
		}
		values["waypoints"] = string(b)
	}
	if c.TotalDistanceKm != nil {
		values["total_distance_km"] = *c.TotalDistanceKm
	}
	if c.ClearTotalCost {
		values["total_cost"] = false
	} else if c.TotalCost != nil {
		values["total_cost"] = *c.TotalCost
	}
	if c.LoadIDs != nil {
		ids := *c.LoadIDs
		if ids == nil {
			ids = []int{}
		}
		values["load_ids"] = ids
	}
	if c.LinesOC != nil {
		values["lines_oc"] = *c.LinesOC
	}
	if c.LastRecalc != nil {
		values["last_recalc"] = odoo.FormatTime(*c.LastRecalc)
	}

	return values, nil
}

// refValue writes false for a cleared reference.
func refValue(id int) any {
	if id <= 0 {
		return false
	}
	return id
}
