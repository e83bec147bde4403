package dto

import (
	"logistics-route-service/internal/domain"
	"time"

	"github.com/shopspring/decimal"
)

type RouteResponse struct {
	ID              int               `json:"id"`
	Name            string            `json:"name"`
	Status          string            `json:"status"`
	VehicleID       *int              `json:"vehicle_id"`
	VehicleName     string            `json:"vehicle_name,omitempty"`
	DriverID        *int              `json:"driver_id"`
	DriverName      string            `json:"driver_name,omitempty"`
	CarrierID       *int              `json:"carrier_id"`
	CarrierName     string            `json:"carrier_name,omitempty"`
	TotalDistanceKm float64           `json:"total_distance_km"`
	TotalCost       *float64          `json:"total_cost"`
	Waypoints       []domain.Waypoint `json:"waypoints"`
	LoadIDs         []int             `json:"load_ids"`
	LinesOC         bool              `json:"lines_oc"`
	LastRecalc      *time.Time        `json:"last_recalc"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

type PartnerResponse struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Street string   `json:"street,omitempty"`
}

type LoadResponse struct {
	ID         int              `json:"id"`
	Name       string           `json:"name"`
	VendorID   *int             `json:"vendor_id"`
	VendorName string           `json:"vendor_name"`
	Quantity   float64          `json:"total_quantity"`
	Pallets    float64          `json:"total_pallets"`
	State      string           `json:"state"`
	Partner    *PartnerResponse `json:"partner"`
}

type RouteDetailResponse struct {
	RouteResponse
	Loads []LoadResponse `json:"loads"`
}

type CreateRouteRequest struct {
	Name      string `json:"name"`
	VehicleID *int   `json:"vehicle_id"`
}

type AssignRequest struct {
	LoadIDs       []int    `json:"load_ids"`
	VehicleID     *int     `json:"vehicle_id"`
	OriginID      *int     `json:"origin_id"`
	DestinationID *int     `json:"destination_id"`
	TotalCost     *float64 `json:"total_cost"`
}

type PreviewRequest struct {
	LoadIDs       []int `json:"load_ids"`
	OriginID      *int  `json:"origin_id"`
	DestinationID *int  `json:"destination_id"`
}

type AssignResponse struct {
	RouteID         int               `json:"route_id"`
	Waypoints       []domain.Waypoint `json:"waypoints"`
	TotalDistanceKm float64           `json:"total_distance_km"`
}

type UpdateRouteRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

type VehicleRequest struct {
	VehicleID *int `json:"vehicle_id"`
}

type DriverRequest struct {
	DriverID *int `json:"driver_id"`
}

type DistanceRequest struct {
	DistanceKm *float64 `json:"distance_km"`
}

type DeviationRequest struct {
	KmOriginal *decimal.Decimal `json:"km_original"`
	KmNew      *decimal.Decimal `json:"km_new"`
	KgOriginal *decimal.Decimal `json:"kg_original"`
	KgNew      *decimal.Decimal `json:"kg_new"`
	CostPerKm  *decimal.Decimal `json:"cost_per_km"`
}

type DeviationResponse struct {
	OriginalCostPerKg decimal.Decimal `json:"original_cost_per_kg"`
	NewCostPerKg      decimal.Decimal `json:"new_cost_per_kg"`
	Worthwhile        bool            `json:"worthwhile"`
}

type ReconciliationEntry struct {
	RunID      string    `json:"run_id"`
	RecordedAt time.Time `json:"recorded_at"`
	domain.ReconcileOutcome
}

type ListReconciliationsResponse struct {
	Outcomes []ReconciliationEntry `json:"outcomes"`
}

// FromRoute maps a domain route onto its JSON shape.
func FromRoute(r domain.Route) RouteResponse {
	wps := r.Waypoints
	if wps == nil {
		wps = []domain.Waypoint{}
	}
	ids := r.LoadIDs
	if ids == nil {
		ids = []int{}
	}
	return RouteResponse{
		ID:              r.ID,
		Name:            r.Name,
		Status:          string(r.Status),
		VehicleID:       r.Vehicle.IDPtr(),
		VehicleName:     r.Vehicle.Name,
		DriverID:        r.Driver.IDPtr(),
		DriverName:      r.Driver.Name,
		CarrierID:       r.Carrier.IDPtr(),
		CarrierName:     r.Carrier.Name,
		TotalDistanceKm: r.TotalDistanceKm,
		TotalCost:       r.TotalCost,
		Waypoints:       wps,
		LoadIDs:         ids,
		LinesOC:         r.LinesOC,
		LastRecalc:      r.LastRecalc,
	}
}

func FromPartner(p *domain.Partner) *PartnerResponse {
	if p == nil {
		return nil
	}
	return &PartnerResponse{ID: p.ID, Name: p.Name, Lat: p.Lat, Lon: p.Lon, Street: p.Street}
}
