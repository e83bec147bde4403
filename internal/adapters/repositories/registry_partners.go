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
)

const partnerModel = "res.partner"

// RegistryPartnerRepository implements PartnerRepository on either registry.
// The coordinate field names differ between installations, so they are
// configurable and default to latitude/longitude.
type RegistryPartnerRepository struct {
	Registry ports.Registry
	LatField string
	LonField string
}

var _ ports.PartnerRepository = (*RegistryPartnerRepository)(nil)

func NewRegistryPartnerRepository(registry ports.Registry) *RegistryPartnerRepository {
	return &RegistryPartnerRepository{
		Registry: registry,
		LatField: "latitude",
		LonField: "longitude",
	}
}

type partnerRecord struct {
	ID     int         `json:"id"`
	Name   odoo.String `json:"name"`
	Street odoo.String `json:"street"`
}

func (s *RegistryPartnerRepository) fields() []string {
	return []string{"id", "name", "street", s.LatField, s.LonField}
}

func (s *RegistryPartnerRepository) search(ctx context.Context, domainFilter ports.Domain, limit int) ([]domain.Partner, error) {
	if s.Registry == nil {
		return nil, errors.New("partner repository: registry is nil")
	}

	var raw []rawRecord
	if err := s.Registry.SearchRead(ctx, partnerModel, domainFilter, s.fields(), limit, &raw); err != nil {
		return nil, err
	}

	partners := make([]domain.Partner, 0, len(raw))
	for _, rec := range raw {
		p, err := s.decode(rec)
		if err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	return partners, nil
}

func (s *RegistryPartnerRepository) decode(rec rawRecord) (domain.Partner, error) {
	var base partnerRecord
	if err := rec.into(&base); err != nil {
		return domain.Partner{}, fmt.Errorf("decode partner: %w", err)
	}

	var lat, lon odoo.NullFloat
	if err := rec.field(s.LatField, &lat); err != nil {
		return domain.Partner{}, fmt.Errorf("decode partner id=%d %s: %w", base.ID, s.LatField, err)
	}
	if err := rec.field(s.LonField, &lon); err != nil {
		return domain.Partner{}, fmt.Errorf("decode partner id=%d %s: %w", base.ID, s.LonField, err)
	}

	return domain.Partner{
		ID:     base.ID,
		Name:   string(base.Name),
		Street: string(base.Street),
		Lat:    lat.Ptr(),
		Lon:    lon.Ptr(),
	}, nil
}

func (s *RegistryPartnerRepository) GetByID(ctx context.Context, id int) (*domain.Partner, error) {
	partners, err := s.search(ctx, ports.Domain{ports.Eq("id", id)}, 1)
	if err != nil {
		return nil, fmt.Errorf("get partner id=%d: %w", id, err)
	}
	if len(partners) == 0 {
		return nil, nil
	}
	return &partners[0], nil
}

func (s *RegistryPartnerRepository) SearchByName(ctx context.Context, name string, limit int) ([]domain.Partner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []domain.Partner{}, nil
	}

	partners, err := s.search(ctx, ports.Domain{ports.ILike("name", name)}, limit)
	if err != nil {
		return nil, fmt.Errorf("search partners name=%q: %w", name, err)
	}
	return partners, nil
}

// rawRecord keeps record fields undecoded, for models whose field names are
// only known at runtime.
type rawRecord map[string]json.RawMessage

func (r rawRecord) into(v any) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// field decodes one field; a missing field leaves v untouched.
func (r rawRecord) field(name string, v any) error {
	raw, ok := r[name]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, v)
}
