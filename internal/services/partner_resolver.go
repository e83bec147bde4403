package services

import (
	"context"
	"fmt"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
	"strings"
)

// PartnerResolver finds a placeable partner for a reference, consulting the
// primary registry first and the secondary registry by name second.
type PartnerResolver struct {
	Primary   ports.PartnerRepository
	Secondary ports.PartnerRepository
}

func NewPartnerResolver(primary, secondary ports.PartnerRepository) *PartnerResolver {
	return &PartnerResolver{Primary: primary, Secondary: secondary}
}

// Resolve returns the first partner with usable coordinates. When neither
// registry has one it returns the primary record as found (possibly without
// coordinates), or nil. Only registry failures are reported as errors.
func (r *PartnerResolver) Resolve(ctx context.Context, ref domain.Ref, fallbackName string) (*domain.Partner, error) {
	var primary *domain.Partner

	if ref.Valid() && r.Primary != nil {
		p, err := r.Primary.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve partner id=%d: primary registry: %w", ref.ID, err)
		}
		if p.HasCoordinates() {
			return p, nil
		}
		primary = p
	}

	name := firstNonEmpty(fallbackName, ref.Name)
	if name == "" && primary != nil {
		name = primary.Name
	}
	if name == "" || r.Secondary == nil {
		return primary, nil
	}

	found, err := r.Secondary.SearchByName(ctx, name, 1)
	if err != nil {
		return nil, fmt.Errorf("resolve partner name=%q: secondary registry: %w", name, err)
	}
	if len(found) > 0 && found[0].HasCoordinates() {
		return &found[0], nil
	}

	return primary, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
