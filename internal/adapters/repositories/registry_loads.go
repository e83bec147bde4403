package repositories

import (
	"context"
	"errors"
	"fmt"
	"logistics-route-service/internal/adapters/odoo"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
)

const loadModel = "logistics.load"

var loadFields = []string{"id", "name", "vendor_id", "vendor_name", "total_quantity", "total_pallets", "state"}

// RegistryLoadRepository implements LoadRepository on the primary registry.
type RegistryLoadRepository struct {
	Registry ports.Registry
}

var _ ports.LoadRepository = (*RegistryLoadRepository)(nil)

func NewRegistryLoadRepository(registry ports.Registry) *RegistryLoadRepository {
	return &RegistryLoadRepository{Registry: registry}
}

type loadRecord struct {
	ID         int         `json:"id"`
	Name       odoo.String `json:"name"`
	VendorID   domain.Ref  `json:"vendor_id"`
	VendorName odoo.String `json:"vendor_name"`
	Quantity   odoo.Float  `json:"total_quantity"`
	Pallets    odoo.Float  `json:"total_pallets"`
	State      odoo.String `json:"state"`
}

func (s *RegistryLoadRepository) GetMany(ctx context.Context, ids []int) ([]domain.Load, error) {
	if s.Registry == nil {
		return nil, errors.New("load repository: registry is nil")
	}
	if len(ids) == 0 {
		return []domain.Load{}, nil
	}

	var records []loadRecord
	if err := s.Registry.SearchRead(ctx, loadModel, ports.Domain{ports.In("id", ids)}, loadFields, 0, &records); err != nil {
		return nil, fmt.Errorf("get loads %v: %w", ids, err)
	}

	byID := make(map[int]loadRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	// Preserve the caller's order; the registry returns its own.
	loads := make([]domain.Load, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		state := domain.LoadState(rec.State)
		if state == "" {
			state = domain.LoadDraft
		}
		loads = append(loads, domain.Load{
			ID:         rec.ID,
			Name:       string(rec.Name),
			Vendor:     rec.VendorID,
			VendorName: string(rec.VendorName),
			Quantity:   float64(rec.Quantity),
			Pallets:    float64(rec.Pallets),
			State:      state,
		})
	}
	return loads, nil
}

func (s *RegistryLoadRepository) SetState(ctx context.Context, ids []int, state domain.LoadState) error {
	if s.Registry == nil {
		return errors.New("load repository: registry is nil")
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.Registry.Write(ctx, loadModel, ids, map[string]any{"state": string(state)}); err != nil {
		return fmt.Errorf("set loads %v state=%s: %w", ids, state, err)
	}
	return nil
}
