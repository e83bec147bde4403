package services

import (
	"context"
	"errors"
	"fmt"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultRouteName = "New route"

// RouteService owns every write to routes and the load states they drive.
type RouteService struct {
	Routes    ports.RouteRepository
	Loads     ports.LoadRepository
	Resolver  *PartnerResolver
	Sequencer *WaypointSequencer
	Estimator *DistanceEstimator
	Log       *zap.Logger
	Now       func() time.Time
}

func NewRouteService(
	routes ports.RouteRepository,
	loads ports.LoadRepository,
	resolver *PartnerResolver,
	sequencer *WaypointSequencer,
	estimator *DistanceEstimator,
	logger *zap.Logger,
) *RouteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteService{
		Routes:    routes,
		Loads:     loads,
		Resolver:  resolver,
		Sequencer: sequencer,
		Estimator: estimator,
		Log:       logger,
		Now:       time.Now,
	}
}

// AssignInput is the caller's intent for a route. Nil pointers mean "keep".
type AssignInput struct {
	LoadIDs       []int
	VehicleID     *int
	OriginID      *int
	DestinationID *int
	TotalCost     *float64
}

type AssignResult struct {
	RouteID         int
	Waypoints       []domain.Waypoint
	TotalDistanceKm float64
}

// LoadDetail is a load of a route together with its resolved vendor.
type LoadDetail struct {
	domain.Load
	Partner *domain.Partner
}

type RouteDetail struct {
	domain.Route
	Loads []LoadDetail
}

func (s *RouteService) requireRoute(ctx context.Context, id int) (*domain.Route, error) {
	r, err := s.Routes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("route id=%d: %w", id, ErrRouteNotFound)
	}
	return r, nil
}

func (s *RouteService) Create(ctx context.Context, name string, vehicleID *int) (*domain.Route, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultRouteName
	}
	if vehicleID != nil && *vehicleID <= 0 {
		vehicleID = nil
	}

	id, err := s.Routes.Create(ctx, name, vehicleID)
	if err != nil {
		return nil, err
	}

	r := &domain.Route{ID: id, Name: name, Status: domain.RouteDraft}
	if vehicleID != nil {
		r.Vehicle = domain.RefTo(*vehicleID)
	}
	return r, nil
}

func (s *RouteService) List(ctx context.Context) ([]domain.Route, error) {
	return s.Routes.List(ctx)
}

// Get returns the route with its loads in route order, each with the
// partner its stop is placed at. Partner lookups that fail leave Partner nil.
func (s *RouteService) Get(ctx context.Context, id int) (*RouteDetail, error) {
	r, err := s.requireRoute(ctx, id)
	if err != nil {
		return nil, err
	}

	loads, err := s.Loads.GetMany(ctx, r.LoadIDs)
	if err != nil {
		return nil, fmt.Errorf("get route id=%d: %w", id, err)
	}

	detail := &RouteDetail{Route: *r, Loads: make([]LoadDetail, 0, len(loads))}
	for _, l := range loads {
		p, err := s.Resolver.Resolve(ctx, l.Vendor, l.VendorName)
		if err != nil {
			s.Log.Warn("cannot resolve load vendor", zap.Int("route_id", id), zap.Int("load_id", l.ID), zap.Error(err))
			p = nil
		}
		detail.Loads = append(detail.Loads, LoadDetail{Load: l, Partner: p})
	}
	return detail, nil
}

func hasIntent(loadIDs []int, originID, destinationID *int) bool {
	return len(loadIDs) > 0 || originID != nil || destinationID != nil
}

// plan is shared by Assign and Preview so both always compute the same thing.
func (s *RouteService) plan(
	ctx context.Context,
	r *domain.Route,
	loadIDs []int,
	originID, destinationID *int,
) (*AssignResult, error) {
	if !hasIntent(loadIDs, originID, destinationID) {
		return &AssignResult{RouteID: r.ID, Waypoints: r.Waypoints, TotalDistanceKm: r.TotalDistanceKm}, nil
	}

	wps, err := s.Sequencer.Build(ctx, r.Waypoints, loadIDs, originID, destinationID)
	if err != nil {
		return nil, err
	}
	km := s.Estimator.EstimateKm(ctx, wps)

	return &AssignResult{RouteID: r.ID, Waypoints: wps, TotalDistanceKm: km}, nil
}

type PreviewInput struct {
	LoadIDs       []int
	OriginID      *int
	DestinationID *int
}

// Preview computes what Assign would persist, without writing anything.
func (s *RouteService) Preview(ctx context.Context, routeID int, in PreviewInput) (*AssignResult, error) {
	r, err := s.requireRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	res, err := s.plan(ctx, r, in.LoadIDs, in.OriginID, in.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("preview route id=%d: %w", routeID, err)
	}
	return res, nil
}

// Assign sequences and measures the route, persists it and marks its loads
// as assigned. If a load cannot be updated, loads already updated are put
// back in their previous state and the route fields are restored.
func (s *RouteService) Assign(ctx context.Context, routeID int, in AssignInput) (*AssignResult, error) {
	r, err := s.requireRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	res, err := s.plan(ctx, r, in.LoadIDs, in.OriginID, in.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("assign route id=%d: %w", routeID, err)
	}
	if !hasIntent(in.LoadIDs, in.OriginID, in.DestinationID) {
		return res, nil
	}

	previousStates, err := s.loadStates(ctx, in.LoadIDs)
	if err != nil {
		return nil, fmt.Errorf("assign route id=%d: %w", routeID, err)
	}

	changes, undo := assignChanges(r, res, in)
	if err := s.Routes.Update(ctx, routeID, changes); err != nil {
		return nil, fmt.Errorf("assign route id=%d: %w", routeID, err)
	}

	if done, err := s.setLoadStates(ctx, in.LoadIDs, domain.LoadAssigned); err != nil {
		s.restoreLoads(ctx, done, previousStates)
		if uerr := s.Routes.Update(ctx, routeID, undo); uerr != nil {
			s.Log.Error("cannot restore route after failed assignment",
				zap.Int("route_id", routeID), zap.Error(uerr))
		}
		return nil, fmt.Errorf("assign route id=%d: %w", routeID, err)
	}

	return res, nil
}

// assignChanges returns the write for an assignment and the write that undoes it.
func assignChanges(r *domain.Route, res *AssignResult, in AssignInput) (changes, undo domain.RouteChanges) {
	wps := res.Waypoints
	km := res.TotalDistanceKm
	changes = domain.RouteChanges{Waypoints: &wps, TotalDistanceKm: &km}

	oldWps := r.Waypoints
	oldKm := r.TotalDistanceKm
	undo = domain.RouteChanges{Waypoints: &oldWps, TotalDistanceKm: &oldKm}

	if len(in.LoadIDs) > 0 {
		ids := in.LoadIDs
		oldIDs := r.LoadIDs
		changes.LoadIDs = &ids
		undo.LoadIDs = &oldIDs
	}
	if in.VehicleID != nil && *in.VehicleID > 0 {
		changes.VehicleID = in.VehicleID
		oldVehicle := r.Vehicle.ID
		undo.VehicleID = &oldVehicle
	}
	if in.TotalCost != nil {
		changes.TotalCost = in.TotalCost
		if r.TotalCost != nil {
			oldCost := *r.TotalCost
			undo.TotalCost = &oldCost
		} else {
			undo.ClearTotalCost = true
		}
	}
	return changes, undo
}

// Remove resets every load of the route to draft, then deletes the route.
// If the delete fails the loads get their previous state back.
func (s *RouteService) Remove(ctx context.Context, routeID int) error {
	r, err := s.requireRoute(ctx, routeID)
	if err != nil {
		return err
	}

	previousStates, err := s.loadStates(ctx, r.LoadIDs)
	if err != nil {
		return fmt.Errorf("remove route id=%d: %w", routeID, err)
	}

	done, err := s.setLoadStates(ctx, r.LoadIDs, domain.LoadDraft)
	if err != nil {
		s.restoreLoads(ctx, done, previousStates)
		return fmt.Errorf("remove route id=%d: %w", routeID, err)
	}

	if err := s.Routes.Delete(ctx, routeID); err != nil {
		s.restoreLoads(ctx, done, previousStates)
		return fmt.Errorf("remove route id=%d: %w", routeID, err)
	}
	return nil
}

// Update renames the route and/or moves its status. Both values are
// validated before anything is written.
func (s *RouteService) Update(ctx context.Context, routeID int, name, status *string) (*domain.Route, error) {
	if name == nil && status == nil {
		return nil, validationError("name or status required")
	}

	var changes domain.RouteChanges
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, validationError("name must not be empty")
		}
		changes.Name = &n
	}

	var next domain.RouteStatus
	if status != nil {
		parsed, err := domain.ParseRouteStatus(*status)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
		}
		next = parsed
		changes.Status = &next
	}

	r, err := s.requireRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if status != nil && !r.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}

	if err := s.Routes.Update(ctx, routeID, changes); err != nil {
		return nil, err
	}

	if changes.Name != nil {
		r.Name = *changes.Name
	}
	if changes.Status != nil {
		r.Status = next
	}
	return r, nil
}

func (s *RouteService) Rename(ctx context.Context, routeID int, name string) (*domain.Route, error) {
	return s.Update(ctx, routeID, &name, nil)
}

func (s *RouteService) SetStatus(ctx context.Context, routeID int, status string) (*domain.Route, error) {
	return s.Update(ctx, routeID, nil, &status)
}

// SetVehicle assigns a vehicle unless another route already holds it.
func (s *RouteService) SetVehicle(ctx context.Context, routeID, vehicleID int) error {
	if vehicleID <= 0 {
		return validationError("vehicle_id required")
	}
	if _, err := s.requireRoute(ctx, routeID); err != nil {
		return err
	}

	other, err := s.Routes.FindByVehicle(ctx, vehicleID, routeID)
	if err != nil {
		return err
	}
	if other != nil {
		return &VehicleConflictError{VehicleID: vehicleID, RouteID: other.ID, RouteName: other.Name}
	}

	return s.Routes.Update(ctx, routeID, domain.RouteChanges{VehicleID: &vehicleID})
}

func (s *RouteService) SetDriver(ctx context.Context, routeID, driverID int) error {
	if driverID <= 0 {
		return validationError("driver_id required")
	}
	if _, err := s.requireRoute(ctx, routeID); err != nil {
		return err
	}
	return s.Routes.Update(ctx, routeID, domain.RouteChanges{DriverID: &driverID})
}

// SetDistance overrides the measured distance and stamps the recalculation time.
func (s *RouteService) SetDistance(ctx context.Context, routeID int, km float64) error {
	if km < 0 {
		return validationError("distance_km must not be negative")
	}
	if _, err := s.requireRoute(ctx, routeID); err != nil {
		return err
	}

	now := s.Now().UTC()
	return s.Routes.Update(ctx, routeID, domain.RouteChanges{TotalDistanceKm: &km, LastRecalc: &now})
}

// loadStates records the current state of each load; unknown loads count as draft.
func (s *RouteService) loadStates(ctx context.Context, ids []int) (map[int]domain.LoadState, error) {
	states := make(map[int]domain.LoadState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}

	loads, err := s.Loads.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		states[id] = domain.LoadDraft
	}
	for _, l := range loads {
		states[l.ID] = l.State
	}
	return states, nil
}

// setLoadStates writes loads one at a time and returns the ids written so far.
func (s *RouteService) setLoadStates(ctx context.Context, ids []int, state domain.LoadState) ([]int, error) {
	done := make([]int, 0, len(ids))
	for _, id := range ids {
		if err := s.Loads.SetState(ctx, []int{id}, state); err != nil {
			return done, err
		}
		done = append(done, id)
	}
	return done, nil
}

// restoreLoads puts loads back into their recorded states. Failures are
// logged; the caller already reports the original error.
func (s *RouteService) restoreLoads(ctx context.Context, ids []int, previous map[int]domain.LoadState) {
	byState := map[domain.LoadState][]int{}
	for _, id := range ids {
		st, ok := previous[id]
		if !ok {
			st = domain.LoadDraft
		}
		byState[st] = append(byState[st], id)
	}

	for st, group := range byState {
		if err := s.Loads.SetState(ctx, group, st); err != nil {
			s.Log.Error("cannot restore load states",
				zap.Ints("load_ids", group), zap.String("state", string(st)), zap.Error(err))
		}
	}
}

// IsNotFound reports whether err means the route does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRouteNotFound)
}
