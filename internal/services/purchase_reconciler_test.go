package services

import (
	"context"
	"errors"
	"logistics-route-service/internal/adapters/lock"
	"logistics-route-service/internal/adapters/odoo/odootest"
	"logistics-route-service/internal/adapters/repositories"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reconcileFixture struct {
	primary    *odootest.Registry
	secondary  *odootest.Registry
	locker     ports.RouteLocker
	reconciler *PurchaseReconciler
}

func newReconcileFixture(t *testing.T, locker ports.RouteLocker) *reconcileFixture {
	t.Helper()

	primary := odootest.New()
	secondary := odootest.New()
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}

	primary.Seed(routeModel, 1, map[string]any{
		"name":              "R-100",
		"status":            "done",
		"lines_oc":          false,
		"carrier_id":        []any{42, "Transportes Sur"},
		"total_distance_km": 83.4,
	})
	secondary.Seed(orderModel, 7, map[string]any{
		"name":       "PO7",
		"partner_id": []any{42, "Transportes Sur"},
		"notes":      "Flete ruta R-100 temporada",
	})
	secondary.Seed(productModel, 873, map[string]any{"name": "SERVICIO DE FLETE"})

	r := NewPurchaseReconciler(
		repositories.NewRegistryRouteRepository(primary),
		repositories.NewRegistryPurchaseRepository(secondary),
		locker,
		nil,
		ReconcilerConfig{
			FreightProductID:   873,
			FreightProductName: "SERVICIO DE FLETE",
			PriceUnit:          decimal.NewFromInt(1000),
			LockTTL:            time.Minute,
		},
		zap.NewNop(),
	)

	return &reconcileFixture{primary: primary, secondary: secondary, locker: locker, reconciler: r}
}

func (f *reconcileFixture) linesOC(routeID int) any {
	return f.primary.Record(routeModel, routeID)["lines_oc"]
}

func onlyOutcome(t *testing.T, report *domain.ReconcileReport) domain.ReconcileOutcome {
	t.Helper()
	require.NotNil(t, report)
	require.Len(t, report.Processed, 1)
	return report.Processed[0]
}

func TestReconcilerCreatesLineThenMarksExisting(t *testing.T) {
	f := newReconcileFixture(t, nil)
	ctx := context.Background()

	report, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRoutes)
	assert.NotEmpty(t, report.RunID)

	out := onlyOutcome(t, report)
	assert.Equal(t, domain.ActionCreatedLine, out.Action)
	assert.Equal(t, 1, out.RouteID)
	assert.Equal(t, "R-100", out.RouteName)
	require.NotNil(t, out.CarrierID)
	assert.Equal(t, 42, *out.CarrierID)
	require.NotNil(t, out.PurchaseOrderID)
	assert.Equal(t, 7, *out.PurchaseOrderID)
	require.NotNil(t, out.PurchaseLineID)

	line := f.secondary.Record(lineModel, *out.PurchaseLineID)
	require.NotNil(t, line)
	assert.Equal(t, 83.4, line["product_qty"])
	assert.Equal(t, 1000.0, line["price_unit"])
	assert.Equal(t, float64(7), line["order_id"])
	assert.Equal(t, float64(873), line["product_id"])
	assert.Equal(t, "SERVICIO DE FLETE", line["name"])
	assert.Equal(t, true, f.linesOC(1))

	// A route flagged again as pending must not get a second line.
	require.NoError(t, f.primary.Write(ctx, routeModel, []int{1}, map[string]any{"lines_oc": false}))

	report, err = f.reconciler.Run(ctx)
	require.NoError(t, err)
	out = onlyOutcome(t, report)
	assert.Equal(t, domain.ActionMarkedExistingLine, out.Action)
	assert.Equal(t, 1, f.secondary.Count(lineModel))
	assert.Equal(t, true, f.linesOC(1))
}

func TestReconcilerSecondRunIsNoop(t *testing.T) {
	f := newReconcileFixture(t, nil)
	ctx := context.Background()

	_, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	before := len(f.secondary.Mutations())

	report, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.TotalRoutes)
	assert.Empty(t, report.Processed)
	assert.Len(t, f.secondary.Mutations(), before)
	assert.Equal(t, 1, f.secondary.Count(lineModel))
}

func TestReconcilerRoundsQuantity(t *testing.T) {
	f := newReconcileFixture(t, nil)
	f.primary.Seed(routeModel, 1, map[string]any{
		"name":              "R-100",
		"status":            "done",
		"carrier_id":        []any{42, "Transportes Sur"},
		"total_distance_km": 83.4567,
	})

	report, err := f.reconciler.Run(context.Background())
	require.NoError(t, err)
	out := onlyOutcome(t, report)
	require.Equal(t, domain.ActionCreatedLine, out.Action)
	assert.Equal(t, 83.46, f.secondary.Record(lineModel, *out.PurchaseLineID)["product_qty"])
}

func TestReconcilerNoMutationWithoutSingleOrder(t *testing.T) {
	t.Run("no order", func(t *testing.T) {
		f := newReconcileFixture(t, nil)
		f.secondary.Seed(orderModel, 7, map[string]any{"name": "PO7", "partner_id": []any{42, "Transportes Sur"}, "notes": "other route"})

		report, err := f.reconciler.Run(context.Background())
		require.NoError(t, err)
		out := onlyOutcome(t, report)
		assert.Equal(t, domain.ActionNoOrderFound, out.Action)
		assert.Nil(t, out.PurchaseOrderID)
		assert.Empty(t, f.primary.Mutations())
		assert.Empty(t, f.secondary.Mutations())
	})

	t.Run("multiple orders", func(t *testing.T) {
		f := newReconcileFixture(t, nil)
		f.secondary.Seed(orderModel, 8, map[string]any{"name": "PO8", "partner_id": []any{42, "Transportes Sur"}, "notes": "r-100 extra"})

		report, err := f.reconciler.Run(context.Background())
		require.NoError(t, err)
		out := onlyOutcome(t, report)
		assert.Equal(t, domain.ActionMultipleOrdersFound, out.Action)
		assert.Empty(t, f.primary.Mutations())
		assert.Empty(t, f.secondary.Mutations())
	})

	t.Run("order of another carrier", func(t *testing.T) {
		f := newReconcileFixture(t, nil)
		f.secondary.Seed(orderModel, 7, map[string]any{"name": "PO7", "partner_id": []any{43, "Otro"}, "notes": "R-100"})

		report, err := f.reconciler.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.ActionNoOrderFound, onlyOutcome(t, report).Action)
	})
}

func TestReconcilerSkipsRouteWithoutCarrier(t *testing.T) {
	f := newReconcileFixture(t, nil)
	f.primary.Seed(routeModel, 1, map[string]any{"name": "R-100", "status": "done", "carrier_id": false})

	report, err := f.reconciler.Run(context.Background())
	require.NoError(t, err)
	out := onlyOutcome(t, report)
	assert.Equal(t, domain.ActionSkipped, out.Action)
	assert.Nil(t, out.CarrierID)
	assert.Empty(t, f.secondary.Calls())
}

func TestReconcilerSkipsLockedRoute(t *testing.T) {
	f := newReconcileFixture(t, nil)
	ctx := context.Background()

	unlock, ok, err := f.locker.TryLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	out := onlyOutcome(t, report)
	assert.Equal(t, domain.ActionSkipped, out.Action)
	assert.Equal(t, "locked", out.Error)
	assert.Empty(t, f.secondary.Mutations())

	require.NoError(t, unlock(ctx))
	report, err = f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCreatedLine, onlyOutcome(t, report).Action)
}

type failingLocker struct{ err error }

func (l failingLocker) TryLock(context.Context, int, time.Duration) (ports.UnlockFunc, bool, error) {
	return nil, false, l.err
}

func TestReconcilerLockFailureIsRecorded(t *testing.T) {
	f := newReconcileFixture(t, failingLocker{err: errors.New("redis: connection refused")})

	report, err := f.reconciler.Run(context.Background())
	require.NoError(t, err)
	out := onlyOutcome(t, report)
	assert.Equal(t, domain.ActionError, out.Action)
	assert.Contains(t, out.Error, "acquire lock")
	assert.Contains(t, out.Error, "connection refused")
}

func TestReconcilerIsolatesRouteFailures(t *testing.T) {
	f := newReconcileFixture(t, nil)
	f.primary.Seed(routeModel, 2, map[string]any{
		"name":              "R-200",
		"status":            "done",
		"carrier_id":        []any{43, "Fletes Norte"},
		"total_distance_km": 10.0,
	})
	f.secondary.Seed(orderModel, 8, map[string]any{"name": "PO8", "partner_id": []any{43, "Fletes Norte"}, "notes": "R-200"})
	f.secondary.Hook = func(c odootest.Call) error {
		if c.Method == "create" && c.Values["order_id"] == 7 {
			return errors.New("ValidationError: order is locked")
		}
		return nil
	}

	report, err := f.reconciler.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Processed, 2)

	failed, succeeded := report.Processed[0], report.Processed[1]
	assert.Equal(t, domain.ActionError, failed.Action)
	assert.Contains(t, failed.Error, `route id=1 name="R-100"`)
	assert.Contains(t, failed.Error, "order is locked")
	assert.Equal(t, false, f.linesOC(1))

	assert.Equal(t, domain.ActionCreatedLine, succeeded.Action)
	assert.Equal(t, true, f.linesOC(2))
	assert.Equal(t, 1, report.Count(domain.ActionError))
}

func TestReconcilerConcurrentRunsCreateOneLine(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f := newReconcileFixture(t, lock.NewRedisLocker(client, ""))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reconciler.Run(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.secondary.Count(lineModel))
	assert.Equal(t, true, f.linesOC(1))
}

func TestReconcilerFreightProductFallbacks(t *testing.T) {
	t.Run("configured id", func(t *testing.T) {
		f := newReconcileFixture(t, nil)
		f.secondary.Seed(productModel, 873, map[string]any{"name": "Flete camion"})

		report, err := f.reconciler.Run(context.Background())
		require.NoError(t, err)
		out := onlyOutcome(t, report)
		require.Equal(t, domain.ActionCreatedLine, out.Action)
		assert.Equal(t, float64(873), f.secondary.Record(lineModel, *out.PurchaseLineID)["product_id"])
	})

	t.Run("substring match", func(t *testing.T) {
		f := newReconcileFixture(t, nil)
		f.secondary.Seed(productModel, 873, map[string]any{"name": "Otro producto"})
		f.reconciler.Config.FreightProductID = 0
		f.secondary.Seed(productModel, 900, map[string]any{"name": "SERVICIO DE FLETE REFRIGERADO"})

		report, err := f.reconciler.Run(context.Background())
		require.NoError(t, err)
		out := onlyOutcome(t, report)
		require.Equal(t, domain.ActionCreatedLine, out.Action)
		assert.Equal(t, float64(900), f.secondary.Record(lineModel, *out.PurchaseLineID)["product_id"])
	})

	t.Run("none", func(t *testing.T) {
		f := newReconcileFixture(t, nil)
		f.secondary.Seed(productModel, 873, map[string]any{"name": "Otro producto"})
		f.reconciler.Config.FreightProductID = 0

		report, err := f.reconciler.Run(context.Background())
		require.NoError(t, err)
		out := onlyOutcome(t, report)
		assert.Equal(t, domain.ActionError, out.Action)
		assert.Contains(t, out.Error, "no freight product found")
		assert.Equal(t, false, f.linesOC(1))
	})
}

type memoryAudit struct {
	mu       sync.Mutex
	runID    string
	outcomes []domain.ReconcileOutcome
}

func (a *memoryAudit) Append(_ context.Context, runID string, outcomes []domain.ReconcileOutcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runID = runID
	a.outcomes = append(a.outcomes, outcomes...)
	return nil
}

func (a *memoryAudit) Recent(context.Context, int) ([]ports.LoggedOutcome, error) {
	return nil, nil
}

func TestReconcilerRecordsOutcomes(t *testing.T) {
	f := newReconcileFixture(t, nil)
	audit := &memoryAudit{}
	f.reconciler.Audit = audit

	report, err := f.reconciler.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.RunID, audit.runID)
	assert.Equal(t, report.Processed, audit.outcomes)
}

func TestReconcilerListFailure(t *testing.T) {
	f := newReconcileFixture(t, nil)
	f.primary.Hook = func(odootest.Call) error { return errors.New("session expired") }

	_, err := f.reconciler.Run(context.Background())
	assert.ErrorContains(t, err, "list pending routes")
}

func TestReconcilerUnreadableWaypointsDoNotStopBatch(t *testing.T) {
	f := newReconcileFixture(t, nil)
	f.primary.Seed(routeModel, 2, map[string]any{
		"name":              "R-200",
		"status":            "done",
		"lines_oc":          false,
		"carrier_id":        []any{43, "Fletes Norte"},
		"total_distance_km": 12.0,
		"waypoints":         "legacy: not json",
	})

	report, err := f.reconciler.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Processed, 2)
	assert.Equal(t, 2, report.TotalRoutes)

	byRoute := map[int]domain.ReconcileAction{}
	for _, o := range report.Processed {
		byRoute[o.RouteID] = o.Action
	}
	assert.Equal(t, domain.ActionCreatedLine, byRoute[1])
	assert.Equal(t, domain.ActionNoOrderFound, byRoute[2])
	assert.Equal(t, true, f.linesOC(1))
}

func TestReconcilerInterruptedRunAccountsForEveryRoute(t *testing.T) {
	f := newReconcileFixture(t, nil)
	f.primary.Seed(routeModel, 2, map[string]any{
		"name": "R-200", "status": "done", "lines_oc": false, "carrier_id": []any{43, "Fletes Norte"},
	})
	f.primary.Seed(routeModel, 3, map[string]any{
		"name": "R-300", "status": "done", "lines_oc": false, "carrier_id": []any{44, "Carga Sur"},
	})
	audit := &memoryAudit{}
	f.reconciler.Audit = audit

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Cancel once the first route is marked reconciled.
	f.primary.Hook = func(c odootest.Call) error {
		if c.Model == routeModel && c.Method == "write" {
			cancel()
		}
		return nil
	}

	report, err := f.reconciler.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalRoutes)
	require.Len(t, report.Processed, 3)

	assert.Equal(t, domain.ActionCreatedLine, report.Processed[0].Action)
	for _, o := range report.Processed[1:] {
		assert.Equal(t, domain.ActionSkipped, o.Action)
		assert.Equal(t, "interrupted", o.Error)
		require.NotNil(t, o.CarrierID)
	}
	assert.Equal(t, report.Processed, audit.outcomes)
}
