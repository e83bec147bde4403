package services

import (
	"context"
	"fmt"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"

	"go.uber.org/zap"
)

// WaypointSequencer builds the ordered stop list of a route:
// origin, one stop per placeable load, destination.
type WaypointSequencer struct {
	Loads    ports.LoadRepository
	Resolver *PartnerResolver
	Log      *zap.Logger
}

func NewWaypointSequencer(loads ports.LoadRepository, resolver *PartnerResolver, logger *zap.Logger) *WaypointSequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaypointSequencer{Loads: loads, Resolver: resolver, Log: logger}
}

// Build computes the waypoint list from the persisted sequence and the
// caller's intent. A non-empty loadIDs replaces every previous stop; a nil
// origin or destination id keeps the persisted one.
//
// Loads whose vendor cannot be placed are skipped, including when the
// registries fail while resolving it. Failing to read the loads themselves
// is returned.
func (s *WaypointSequencer) Build(
	ctx context.Context,
	existing []domain.Waypoint,
	loadIDs []int,
	originID *int,
	destinationID *int,
) ([]domain.Waypoint, error) {
	existingOrigin, existingDestination := classifyEnds(existing)

	out := make([]domain.Waypoint, 0, len(loadIDs)+2)

	if originID != nil {
		if wp, ok := s.endpoint(ctx, *originID, domain.WaypointOrigin, "Origin: "); ok {
			out = append(out, wp)
		}
	} else if existingOrigin != nil {
		out = append(out, *existingOrigin)
	}

	if len(loadIDs) > 0 {
		stops, err := s.stops(ctx, loadIDs)
		if err != nil {
			return nil, err
		}
		out = append(out, stops...)
	} else {
		for _, w := range existing {
			if w.HasLoad() {
				out = append(out, w)
			}
		}
	}

	if destinationID != nil {
		if wp, ok := s.endpoint(ctx, *destinationID, domain.WaypointDestination, "Destination: "); ok {
			out = append(out, wp)
		}
	} else if existingDestination != nil {
		out = append(out, *existingDestination)
	}

	return out, nil
}

func (s *WaypointSequencer) endpoint(
	ctx context.Context,
	partnerID int,
	kind domain.WaypointType,
	labelPrefix string,
) (domain.Waypoint, bool) {
	p, err := s.Resolver.Resolve(ctx, domain.RefTo(partnerID), "")
	if err != nil {
		s.Log.Warn("cannot resolve route endpoint",
			zap.String("type", string(kind)), zap.Int("partner_id", partnerID), zap.Error(err))
		return domain.Waypoint{}, false
	}
	if !p.HasCoordinates() {
		s.Log.Info("route endpoint has no usable coordinates",
			zap.String("type", string(kind)), zap.Int("partner_id", partnerID))
		return domain.Waypoint{}, false
	}

	c := p.Coordinates()
	pid := p.ID
	return domain.Waypoint{
		Lat:       c.Lat,
		Lon:       c.Lon,
		Label:     labelPrefix + p.Name,
		Type:      kind,
		PartnerID: &pid,
	}, true
}

func (s *WaypointSequencer) stops(ctx context.Context, loadIDs []int) ([]domain.Waypoint, error) {
	loads, err := s.Loads.GetMany(ctx, loadIDs)
	if err != nil {
		return nil, fmt.Errorf("sequence waypoints: %w", err)
	}

	out := make([]domain.Waypoint, 0, len(loads))
	for _, l := range loads {
		p, err := s.Resolver.Resolve(ctx, l.Vendor, l.VendorName)
		if err != nil {
			s.Log.Warn("cannot resolve load vendor, skipping stop",
				zap.Int("load_id", l.ID), zap.Int("vendor_id", l.Vendor.ID), zap.Error(err))
			continue
		}
		if !p.HasCoordinates() {
			s.Log.Info("load vendor has no usable coordinates, skipping stop",
				zap.Int("load_id", l.ID), zap.Int("vendor_id", l.Vendor.ID))
			continue
		}

		c := p.Coordinates()
		loadID, partnerID := l.ID, p.ID
		out = append(out, domain.Waypoint{
			Lat:       c.Lat,
			Lon:       c.Lon,
			Label:     firstNonEmpty(l.Name, l.VendorName, l.Vendor.Name, p.Name),
			Type:      domain.WaypointStop,
			LoadID:    &loadID,
			PartnerID: &partnerID,
		})
	}
	return out, nil
}

// classifyEnds finds the persisted origin and destination. Explicit type
// markers win; untyped waypoints without a load count as endpoints by
// position. A lone untyped endpoint is taken as the origin.
func classifyEnds(wps []domain.Waypoint) (origin, destination *domain.Waypoint) {
	if len(wps) == 0 {
		return nil, nil
	}

	isEnd := func(w domain.Waypoint, kind domain.WaypointType) bool {
		if w.Type != "" {
			return w.Type == kind
		}
		return !w.HasLoad()
	}

	first := wps[0]
	if len(wps) == 1 {
		if first.Type == domain.WaypointDestination {
			return nil, &first
		}
		if isEnd(first, domain.WaypointOrigin) {
			return &first, nil
		}
		return nil, nil
	}

	if isEnd(first, domain.WaypointOrigin) {
		origin = &first
	}
	last := wps[len(wps)-1]
	if isEnd(last, domain.WaypointDestination) {
		destination = &last
	}
	return origin, destination
}
