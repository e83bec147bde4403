package services

import (
	"context"
	"errors"
	"fmt"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errNoFreightProduct = errors.New("no freight product found")

// ReconcilerConfig fixes the freight line every completed route is billed with.
type ReconcilerConfig struct {
	FreightProductID   int
	FreightProductName string
	PriceUnit          decimal.Decimal
	LockTTL            time.Duration
}

// PurchaseReconciler makes sure every completed route has exactly one freight
// line on its purchase order in the secondary registry.
type PurchaseReconciler struct {
	Routes    ports.RouteRepository
	Purchases ports.PurchaseRepository
	Locker    ports.RouteLocker
	Audit     ports.ReconciliationLog
	Config    ReconcilerConfig
	Log       *zap.Logger
	Now       func() time.Time
}

func NewPurchaseReconciler(
	routes ports.RouteRepository,
	purchases ports.PurchaseRepository,
	locker ports.RouteLocker,
	audit ports.ReconciliationLog,
	cfg ReconcilerConfig,
	logger *zap.Logger,
) *PurchaseReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &PurchaseReconciler{
		Routes:    routes,
		Purchases: purchases,
		Locker:    locker,
		Audit:     audit,
		Config:    cfg,
		Log:       logger,
		Now:       time.Now,
	}
}

// run holds what is resolved once per reconciliation run.
type run struct {
	id      string
	product *domain.Product
}

// Run reconciles every done route not yet linked to a freight line. Routes
// are processed one after another; a failing route is recorded and the
// batch continues. Only failing to list the routes is returned as an error.
func (r *PurchaseReconciler) Run(ctx context.Context) (*domain.ReconcileReport, error) {
	state := &run{id: uuid.NewString()}
	log := r.Log.With(zap.String("run_id", state.id))

	report := &domain.ReconcileReport{
		RunID:     state.id,
		StartedAt: r.Now().UTC(),
		Processed: []domain.ReconcileOutcome{},
	}

	routes, err := r.Routes.ListPendingReconciliation(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list pending routes: %w", err)
	}
	report.TotalRoutes = len(routes)
	log.Info("reconciliation started", zap.Int("routes", len(routes)))

	for i, route := range routes {
		if err := ctx.Err(); err != nil {
			log.Warn("reconciliation interrupted", zap.Error(err), zap.Int("remaining", len(routes)-i))
			for _, rest := range routes[i:] {
				report.Processed = append(report.Processed, domain.ReconcileOutcome{
					RouteID:   rest.ID,
					RouteName: rest.Name,
					CarrierID: rest.Carrier.IDPtr(),
					Action:    domain.ActionSkipped,
					Error:     "interrupted",
				})
			}
			break
		}

		outcome := r.reconcileRoute(ctx, state, route)
		report.Processed = append(report.Processed, outcome)

		fields := []zap.Field{
			zap.Int("route_id", outcome.RouteID),
			zap.String("route_name", outcome.RouteName),
			zap.String("action", string(outcome.Action)),
		}
		if outcome.Action == domain.ActionError {
			log.Error("route reconciliation failed", append(fields, zap.String("error", outcome.Error))...)
		} else {
			log.Info("route reconciled", fields...)
		}
	}

	if r.Audit != nil && len(report.Processed) > 0 {
		if err := r.Audit.Append(context.WithoutCancel(ctx), state.id, report.Processed); err != nil {
			log.Warn("cannot record reconciliation outcomes", zap.Error(err))
		}
	}

	log.Info("reconciliation finished",
		zap.Int("created", report.Count(domain.ActionCreatedLine)),
		zap.Int("marked", report.Count(domain.ActionMarkedExistingLine)),
		zap.Int("errors", report.Count(domain.ActionError)),
	)
	return report, nil
}

func (r *PurchaseReconciler) reconcileRoute(ctx context.Context, state *run, route domain.Route) (out domain.ReconcileOutcome) {
	out = domain.ReconcileOutcome{
		RouteID:   route.ID,
		RouteName: route.Name,
		CarrierID: route.Carrier.IDPtr(),
	}

	defer func() {
		if p := recover(); p != nil {
			out.Action = domain.ActionError
			out.Error = fmt.Sprintf("reconcile route id=%d name=%q: panic: %v", route.ID, route.Name, p)
		}
	}()

	name := strings.TrimSpace(route.Name)
	if !route.Carrier.Valid() || name == "" {
		out.Action = domain.ActionSkipped
		out.Error = "route has no carrier or name"
		return out
	}

	fail := func(step string, err error) domain.ReconcileOutcome {
		out.Action = domain.ActionError
		out.Error = fmt.Errorf("reconcile route id=%d name=%q: %s: %w", route.ID, name, step, err).Error()
		return out
	}

	if r.Locker != nil {
		unlock, ok, err := r.Locker.TryLock(ctx, route.ID, r.Config.LockTTL)
		if err != nil {
			return fail("acquire lock", err)
		}
		if !ok {
			out.Action = domain.ActionSkipped
			out.Error = "locked"
			return out
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.Log.Warn("cannot release route lock", zap.Int("route_id", route.ID), zap.Error(err))
			}
		}()
	}

	// Another run may have finished this route between listing and locking.
	current, err := r.Routes.Get(ctx, route.ID)
	if err != nil {
		return fail("reload route", err)
	}
	if current == nil || current.LinesOC {
		out.Action = domain.ActionSkipped
		out.Error = "already reconciled"
		return out
	}

	orders, err := r.Purchases.FindOrders(ctx, route.Carrier.ID, name, 2)
	if err != nil {
		return fail("search purchase orders", err)
	}
	switch {
	case len(orders) == 0:
		out.Action = domain.ActionNoOrderFound
		return out
	case len(orders) > 1:
		out.Action = domain.ActionMultipleOrdersFound
		return out
	}

	order := orders[0]
	orderID := order.ID
	out.PurchaseOrderID = &orderID

	product, err := r.freightProduct(ctx, state)
	if err != nil {
		return fail(fmt.Sprintf("order id=%d: resolve freight product", orderID), err)
	}

	line, err := r.Purchases.FindLine(ctx, orderID, product.ID)
	if err != nil {
		return fail(fmt.Sprintf("order id=%d: search freight line", orderID), err)
	}

	if line != nil {
		lineID := line.ID
		out.PurchaseLineID = &lineID
		if err := r.markReconciled(ctx, route.ID); err != nil {
			return fail(fmt.Sprintf("order id=%d line id=%d: mark route", orderID, lineID), err)
		}
		out.Action = domain.ActionMarkedExistingLine
		return out
	}

	qty := decimal.NewFromFloat(current.TotalDistanceKm).Round(2)
	lineID, err := r.Purchases.CreateLine(ctx, domain.NewPurchaseOrderLine{
		OrderID:   orderID,
		ProductID: product.ID,
		Name:      freightLineName(product, r.Config.FreightProductName),
		Quantity:  qty.InexactFloat64(),
		PriceUnit: r.Config.PriceUnit.InexactFloat64(),
	})
	if err != nil {
		return fail(fmt.Sprintf("order id=%d: create freight line", orderID), err)
	}
	out.PurchaseLineID = &lineID

	if err := r.markReconciled(ctx, route.ID); err != nil {
		return fail(fmt.Sprintf("order id=%d line id=%d: mark route", orderID, lineID), err)
	}
	out.Action = domain.ActionCreatedLine
	return out
}

func (r *PurchaseReconciler) markReconciled(ctx context.Context, routeID int) error {
	done := true
	return r.Routes.Update(ctx, routeID, domain.RouteChanges{LinesOC: &done})
}

// freightProduct resolves the freight product once per run: exact name first,
// then the configured id, then the best substring match.
func (r *PurchaseReconciler) freightProduct(ctx context.Context, state *run) (*domain.Product, error) {
	if state.product != nil {
		return state.product, nil
	}

	name := strings.TrimSpace(r.Config.FreightProductName)

	if name != "" {
		exact, err := r.Purchases.FindProducts(ctx, name, true, 1)
		if err != nil {
			r.Log.Warn("exact freight product lookup failed", zap.String("name", name), zap.Error(err))
		} else if len(exact) > 0 {
			state.product = &exact[0]
			return state.product, nil
		}
	}

	if r.Config.FreightProductID > 0 {
		p, err := r.Purchases.GetProduct(ctx, r.Config.FreightProductID)
		if err != nil {
			r.Log.Warn("configured freight product lookup failed", zap.Int("product_id", r.Config.FreightProductID), zap.Error(err))
		} else if p != nil {
			state.product = p
			return state.product, nil
		}
	}

	if name == "" {
		return nil, errNoFreightProduct
	}

	candidates, err := r.Purchases.FindProducts(ctx, name, false, 5)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", errNoFreightProduct, name)
	}

	state.product = &candidates[0]
	for i := range candidates {
		n := strings.ToLower(candidates[i].Name)
		if strings.Contains(n, "servicio") || strings.Contains(n, "flete") {
			state.product = &candidates[i]
			break
		}
	}
	return state.product, nil
}

func freightLineName(p *domain.Product, configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	return p.Name
}
