package repositories

import (
	"context"
	"errors"
	"fmt"
	"logistics-route-service/internal/adapters/odoo"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
)

const (
	purchaseOrderModel = "purchase.order"
	purchaseLineModel  = "purchase.order.line"
	productModel       = "product.product"
)

// RegistryPurchaseRepository implements PurchaseRepository on the secondary registry.
type RegistryPurchaseRepository struct {
	Registry ports.Registry
}

var _ ports.PurchaseRepository = (*RegistryPurchaseRepository)(nil)

func NewRegistryPurchaseRepository(registry ports.Registry) *RegistryPurchaseRepository {
	return &RegistryPurchaseRepository{Registry: registry}
}

type purchaseOrderRecord struct {
	ID        int         `json:"id"`
	Name      odoo.String `json:"name"`
	PartnerID domain.Ref  `json:"partner_id"`
	Notes     odoo.String `json:"notes"`
}

type purchaseLineRecord struct {
	ID         int         `json:"id"`
	OrderID    domain.Ref  `json:"order_id"`
	ProductID  domain.Ref  `json:"product_id"`
	Name       odoo.String `json:"name"`
	ProductQty odoo.Float  `json:"product_qty"`
	PriceUnit  odoo.Float  `json:"price_unit"`
}

type productRecord struct {
	ID   int         `json:"id"`
	Name odoo.String `json:"name"`
}

func (s *RegistryPurchaseRepository) check() error {
	if s.Registry == nil {
		return errors.New("purchase repository: registry is nil")
	}
	return nil
}

func (s *RegistryPurchaseRepository) FindOrders(
	ctx context.Context,
	partnerID int,
	notesLike string,
	limit int,
) ([]domain.PurchaseOrder, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var records []purchaseOrderRecord
	err := s.Registry.SearchRead(ctx, purchaseOrderModel, ports.Domain{
		ports.Eq("partner_id", partnerID),
		ports.ILike("notes", notesLike),
	}, []string{"id", "name", "partner_id", "notes"}, limit, &records)
	if err != nil {
		return nil, fmt.Errorf("find purchase orders partner=%d notes~%q: %w", partnerID, notesLike, err)
	}

	orders := make([]domain.PurchaseOrder, 0, len(records))
	for _, rec := range records {
		orders = append(orders, domain.PurchaseOrder{
			ID:      rec.ID,
			Name:    string(rec.Name),
			Partner: rec.PartnerID,
			Notes:   string(rec.Notes),
		})
	}
	return orders, nil
}

func (s *RegistryPurchaseRepository) FindLine(ctx context.Context, orderID, productID int) (*domain.PurchaseOrderLine, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var records []purchaseLineRecord
	err := s.Registry.SearchRead(ctx, purchaseLineModel, ports.Domain{
		ports.Eq("order_id", orderID),
		ports.Eq("product_id", productID),
	}, []string{"id", "order_id", "product_id", "name", "product_qty", "price_unit"}, 1, &records)
	if err != nil {
		return nil, fmt.Errorf("find purchase line order=%d product=%d: %w", orderID, productID, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rec := records[0]
	return &domain.PurchaseOrderLine{
		ID:        rec.ID,
		OrderID:   rec.OrderID.ID,
		Product:   rec.ProductID,
		Name:      string(rec.Name),
		Quantity:  float64(rec.ProductQty),
		PriceUnit: float64(rec.PriceUnit),
	}, nil
}

func (s *RegistryPurchaseRepository) CreateLine(ctx context.Context, line domain.NewPurchaseOrderLine) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	id, err := s.Registry.Create(ctx, purchaseLineModel, map[string]any{
		"name":        line.Name,
		"order_id":    line.OrderID,
		"product_id":  line.ProductID,
		"product_qty": line.Quantity,
		"price_unit":  line.PriceUnit,
	})
	if err != nil {
		return 0, fmt.Errorf("create purchase line order=%d product=%d: %w", line.OrderID, line.ProductID, err)
	}
	return id, nil
}

func (s *RegistryPurchaseRepository) FindProducts(ctx context.Context, name string, exact bool, limit int) ([]domain.Product, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	cond := ports.ILike("name", name)
	if exact {
		cond = ports.Eq("name", name)
	}

	var records []productRecord
	if err := s.Registry.SearchRead(ctx, productModel, ports.Domain{cond}, []string{"id", "name"}, limit, &records); err != nil {
		return nil, fmt.Errorf("find products name=%q: %w", name, err)
	}

	products := make([]domain.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, domain.Product{ID: rec.ID, Name: string(rec.Name)})
	}
	return products, nil
}

func (s *RegistryPurchaseRepository) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var records []productRecord
	if err := s.Registry.SearchRead(ctx, productModel, ports.Domain{ports.Eq("id", id)}, []string{"id", "name"}, 1, &records); err != nil {
		return nil, fmt.Errorf("get product id=%d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &domain.Product{ID: records[0].ID, Name: string(records[0].Name)}, nil
}
