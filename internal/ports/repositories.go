package ports

import (
	"context"
	"logistics-route-service/internal/domain"
)

// RouteRepository stores routes in the primary registry.
type RouteRepository interface {
	List(ctx context.Context) ([]domain.Route, error)
	// Get returns nil, nil when the route does not exist.
	Get(ctx context.Context, id int) (*domain.Route, error)
	Create(ctx context.Context, name string, vehicleID *int) (int, error)
	Update(ctx context.Context, id int, changes domain.RouteChanges) error
	Delete(ctx context.Context, id int) error
	// FindByVehicle returns a route other than excludeRouteID holding the vehicle, or nil.
	FindByVehicle(ctx context.Context, vehicleID, excludeRouteID int) (*domain.Route, error)
	// ListPendingReconciliation returns done routes whose freight line is not yet recorded.
	ListPendingReconciliation(ctx context.Context) ([]domain.Route, error)
}

// LoadRepository reads loads and flips their state.
type LoadRepository interface {
	// GetMany returns the loads in ids order, skipping unknown ids.
	GetMany(ctx context.Context, ids []int) ([]domain.Load, error)
	SetState(ctx context.Context, ids []int, state domain.LoadState) error
}

// PartnerRepository looks partners up in one registry.
type PartnerRepository interface {
	// GetByID returns nil, nil when the partner does not exist.
	GetByID(ctx context.Context, id int) (*domain.Partner, error)
	// SearchByName matches name case-insensitively as a substring.
	SearchByName(ctx context.Context, name string, limit int) ([]domain.Partner, error)
}

// PurchaseRepository covers the purchasing records of the secondary registry.
type PurchaseRepository interface {
	FindOrders(ctx context.Context, partnerID int, notesLike string, limit int) ([]domain.PurchaseOrder, error)
	// FindLine returns nil, nil when the order has no line for the product.
	FindLine(ctx context.Context, orderID, productID int) (*domain.PurchaseOrderLine, error)
	CreateLine(ctx context.Context, line domain.NewPurchaseOrderLine) (int, error)
	FindProducts(ctx context.Context, name string, exact bool, limit int) ([]domain.Product, error)
	// GetProduct returns nil, nil when the product does not exist.
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
}
