package services

import (
	"context"
	"encoding/json"
	"errors"
	"logistics-route-service/internal/adapters/distance"
	"logistics-route-service/internal/adapters/odoo/odootest"
	"logistics-route-service/internal/domain"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignmentFixture(t *testing.T) *fixture {
	t.Helper()

	f := newFixture(t, []distance.MockRoute{
		{Points: []domain.Coordinates{pt(-33, -70), pt(-34, -71), pt(-35, -72), pt(-36, -73)}, Meters: 250000},
		{Points: []domain.Coordinates{pt(-33, -70), pt(-35, -72), pt(-34, -71), pt(-36, -73)}, Meters: 310500},
	})
	seedSequencerData(f)
	f.primary.Seed(routeModel, 1, map[string]any{"name": "R1", "status": "draft"})
	return f
}

func storedWaypoints(t *testing.T, f *fixture, routeID int) []domain.Waypoint {
	t.Helper()
	raw, ok := f.primary.Record(routeModel, routeID)["waypoints"].(string)
	require.True(t, ok, "waypoints must be stored as text")
	var wps []domain.Waypoint
	require.NoError(t, json.Unmarshal([]byte(raw), &wps))
	return wps
}

func TestAssignPersistsRouteAndAssignsLoads(t *testing.T) {
	f := newAssignmentFixture(t)
	cost := 150000.0

	res, err := f.routes.Assign(context.Background(), 1, AssignInput{
		LoadIDs:       []int{101, 102},
		VehicleID:     intPtr(4),
		OriginID:      intPtr(1),
		DestinationID: intPtr(2),
		TotalCost:     &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, 250.0, res.TotalDistanceKm)
	require.Len(t, res.Waypoints, 4)

	rec := f.primary.Record(routeModel, 1)
	assert.Equal(t, 250.0, rec["total_distance_km"])
	assert.Equal(t, float64(4), rec["vehicle_id"])
	assert.Equal(t, cost, rec["total_cost"])
	assert.Equal(t, []any{float64(101), float64(102)}, rec["load_ids"])
	assert.Equal(t, res.Waypoints, storedWaypoints(t, f, 1))

	assert.Equal(t, "assigned", f.loadState(101))
	assert.Equal(t, "assigned", f.loadState(102))
	assert.Equal(t, "draft", f.loadState(103))
}

func TestAssignOnlyOverwritesSuppliedFields(t *testing.T) {
	f := newAssignmentFixture(t)
	f.primary.Seed(routeModel, 1, map[string]any{"name": "R1", "vehicle_id": 9, "total_cost": 777.0})

	_, err := f.routes.Assign(context.Background(), 1, AssignInput{LoadIDs: []int{101}})
	require.NoError(t, err)

	rec := f.primary.Record(routeModel, 1)
	assert.Equal(t, float64(9), rec["vehicle_id"])
	assert.Equal(t, 777.0, rec["total_cost"])
}

func TestAssignWithoutIntentIsNoop(t *testing.T) {
	f := newAssignmentFixture(t)
	existing := `[{"lat":-33,"lon":-70,"label":"Depot"}]`
	f.primary.Seed(routeModel, 1, map[string]any{"name": "R1", "waypoints": existing, "total_distance_km": 12.0})

	res, err := f.routes.Assign(context.Background(), 1, AssignInput{VehicleID: intPtr(4)})
	require.NoError(t, err)
	require.Len(t, res.Waypoints, 1)
	assert.Equal(t, "Depot", res.Waypoints[0].Label)
	assert.Equal(t, 12.0, res.TotalDistanceKm)
	assert.Empty(t, f.primary.Mutations())
	assert.Zero(t, f.provider.Calls())
}

func TestAssignUnknownRoute(t *testing.T) {
	f := newAssignmentFixture(t)

	_, err := f.routes.Assign(context.Background(), 42, AssignInput{LoadIDs: []int{101}})
	assert.ErrorIs(t, err, ErrRouteNotFound)
	assert.True(t, IsNotFound(err))
}

func TestPreviewMatchesAssignWithoutWriting(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	preview, err := f.routes.Preview(ctx, 1, PreviewInput{
		LoadIDs:       []int{102, 101},
		OriginID:      intPtr(1),
		DestinationID: intPtr(2),
	})
	require.NoError(t, err)
	assert.Empty(t, f.primary.Mutations())
	assert.Equal(t, 310.5, preview.TotalDistanceKm)

	assigned, err := f.routes.Assign(ctx, 1, AssignInput{
		LoadIDs:       []int{102, 101},
		OriginID:      intPtr(1),
		DestinationID: intPtr(2),
	})
	require.NoError(t, err)

	wantJSON, err := json.Marshal(assigned.Waypoints)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(preview.Waypoints)
	require.NoError(t, err)
	assert.Equal(t, string(wantJSON), string(gotJSON))
	assert.Equal(t, assigned.TotalDistanceKm, preview.TotalDistanceKm)
}

func TestAssignRestoresStateWhenLoadWriteFails(t *testing.T) {
	f := newAssignmentFixture(t)
	f.load(102, "L-102", 12, domain.LoadDone)
	boom := errors.New("write rejected")
	f.primary.Hook = func(c odootest.Call) error {
		if c.Model == loadModel && c.Method == "write" && c.Values["state"] == "assigned" && slices.Contains(c.IDs, 102) {
			return boom
		}
		return nil
	}

	_, err := f.routes.Assign(context.Background(), 1, AssignInput{
		LoadIDs:  []int{101, 102},
		OriginID: intPtr(1),
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, "draft", f.loadState(101))
	assert.Equal(t, "done", f.loadState(102))

	rec := f.primary.Record(routeModel, 1)
	assert.Equal(t, 0.0, rec["total_distance_km"])
	assert.Equal(t, []any{}, rec["load_ids"])
	assert.Empty(t, storedWaypoints(t, f, 1))
}

func TestRemoveResetsLoadsThenDeletes(t *testing.T) {
	f := newAssignmentFixture(t)
	f.load(101, "L-101", 11, domain.LoadAssigned)
	f.load(102, "L-102", 12, domain.LoadAssigned)
	f.primary.Seed(routeModel, 1, map[string]any{"name": "R1", "load_ids": []int{101, 102}})

	require.NoError(t, f.routes.Remove(context.Background(), 1))

	assert.Equal(t, "draft", f.loadState(101))
	assert.Equal(t, "draft", f.loadState(102))
	assert.Nil(t, f.primary.Record(routeModel, 1))

	muts := f.primary.Mutations()
	require.NotEmpty(t, muts)
	assert.Equal(t, "unlink", muts[len(muts)-1].Method)
}

func TestRemoveWithoutLoads(t *testing.T) {
	f := newAssignmentFixture(t)

	require.NoError(t, f.routes.Remove(context.Background(), 1))
	assert.Nil(t, f.primary.Record(routeModel, 1))
	assert.Empty(t, f.primary.Calls("write"))
}

func TestRemoveRestoresLoadsWhenDeleteFails(t *testing.T) {
	f := newAssignmentFixture(t)
	f.load(101, "L-101", 11, domain.LoadAssigned)
	f.primary.Seed(routeModel, 1, map[string]any{"name": "R1", "load_ids": []int{101}})
	f.primary.Hook = func(c odootest.Call) error {
		if c.Method == "unlink" {
			return errors.New("access denied")
		}
		return nil
	}

	err := f.routes.Remove(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "assigned", f.loadState(101))
	assert.NotNil(t, f.primary.Record(routeModel, 1))
}

func TestRemoveUnknownRoute(t *testing.T) {
	f := newAssignmentFixture(t)
	assert.ErrorIs(t, f.routes.Remove(context.Background(), 42), ErrRouteNotFound)
}

func TestUpdateRenamesAndMovesStatusForward(t *testing.T) {
	f := newAssignmentFixture(t)
	name, status := "  R-100 ", "assigned"

	r, err := f.routes.Update(context.Background(), 1, &name, &status)
	require.NoError(t, err)
	assert.Equal(t, "R-100", r.Name)
	assert.Equal(t, domain.RouteAssigned, r.Status)

	rec := f.primary.Record(routeModel, 1)
	assert.Equal(t, "R-100", rec["name"])
	assert.Equal(t, "assigned", rec["status"])
	assert.Len(t, f.primary.Calls("write"), 1)
}

func TestUpdateRejectsBeforeWriting(t *testing.T) {
	f := newAssignmentFixture(t)
	f.primary.Seed(routeModel, 2, map[string]any{"name": "R2", "status": "done"})
	ctx := context.Background()

	_, err := f.routes.Update(ctx, 1, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)

	blank := "  "
	_, err = f.routes.Update(ctx, 1, &blank, nil)
	assert.ErrorIs(t, err, ErrValidation)

	bogus := "shipped"
	_, err = f.routes.SetStatus(ctx, 1, bogus)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.routes.SetStatus(ctx, 2, "assigned")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.routes.Rename(ctx, 42, "R42")
	assert.ErrorIs(t, err, ErrRouteNotFound)

	assert.Empty(t, f.primary.Mutations())
}

func TestSetStatusSameStateAllowed(t *testing.T) {
	f := newAssignmentFixture(t)
	f.primary.Seed(routeModel, 2, map[string]any{"name": "R2", "status": "done"})

	r, err := f.routes.SetStatus(context.Background(), 2, "done")
	require.NoError(t, err)
	assert.Equal(t, domain.RouteDone, r.Status)
}

func TestSetVehicleConflict(t *testing.T) {
	f := newAssignmentFixture(t)
	f.primary.Seed(routeModel, 2, map[string]any{"name": "R2", "vehicle_id": []any{4, "Truck 4"}})
	ctx := context.Background()

	err := f.routes.SetVehicle(ctx, 1, 4)
	var conflict *VehicleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.RouteID)
	assert.Equal(t, "R2", conflict.RouteName)
	assert.Empty(t, f.primary.Mutations())

	require.NoError(t, f.routes.SetVehicle(ctx, 2, 4))
	require.NoError(t, f.routes.SetVehicle(ctx, 1, 5))
	assert.Equal(t, float64(5), f.primary.Record(routeModel, 1)["vehicle_id"])

	assert.ErrorIs(t, f.routes.SetVehicle(ctx, 1, 0), ErrValidation)
}

func TestSetDriver(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.routes.SetDriver(ctx, 1, 0), ErrValidation)
	require.NoError(t, f.routes.SetDriver(ctx, 1, 8))
	assert.Equal(t, float64(8), f.primary.Record(routeModel, 1)["driver_id"])
}

func TestSetDistanceStampsRecalculation(t *testing.T) {
	f := newAssignmentFixture(t)
	f.routes.Now = func() time.Time { return time.Date(2026, 3, 2, 11, 5, 0, 0, time.FixedZone("CLT", -3*3600)) }
	ctx := context.Background()

	assert.ErrorIs(t, f.routes.SetDistance(ctx, 1, -1), ErrValidation)
	require.NoError(t, f.routes.SetDistance(ctx, 1, 97.25))

	rec := f.primary.Record(routeModel, 1)
	assert.Equal(t, 97.25, rec["total_distance_km"])
	assert.Equal(t, "2026-03-02 14:05:00", rec["last_recalc"])
}

func TestCreateAndGet(t *testing.T) {
	f := newAssignmentFixture(t)
	ctx := context.Background()

	created, err := f.routes.Create(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "New route", created.Name)
	assert.Equal(t, domain.RouteDraft, created.Status)

	f.primary.Seed(routeModel, 5, map[string]any{"name": "R5", "load_ids": []int{102, 999, 101}})
	detail, err := f.routes.Get(ctx, 5)
	require.NoError(t, err)
	require.Len(t, detail.Loads, 2)
	assert.Equal(t, 102, detail.Loads[0].ID)
	require.NotNil(t, detail.Loads[0].Partner)
	assert.Equal(t, 12, detail.Loads[0].Partner.ID)
	assert.Equal(t, 101, detail.Loads[1].ID)

	_, err = f.routes.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrRouteNotFound)

	routes, err := f.routes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, routes, 3)
}
