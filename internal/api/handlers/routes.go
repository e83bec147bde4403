package handlers

import (
	"context"
	"logistics-route-service/internal/api/dto"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/services"
	"net/http"
)

// RouteService is what the route endpoints need from the service layer.
type RouteService interface {
	List(ctx context.Context) ([]domain.Route, error)
	Get(ctx context.Context, id int) (*services.RouteDetail, error)
	Create(ctx context.Context, name string, vehicleID *int) (*domain.Route, error)
	Remove(ctx context.Context, id int) error
	Assign(ctx context.Context, id int, in services.AssignInput) (*services.AssignResult, error)
	Preview(ctx context.Context, id int, in services.PreviewInput) (*services.AssignResult, error)
	Update(ctx context.Context, id int, name, status *string) (*domain.Route, error)
	SetVehicle(ctx context.Context, id, vehicleID int) error
	SetDriver(ctx context.Context, id, driverID int) error
	SetDistance(ctx context.Context, id int, km float64) error
}

// RouteHandler exposes route planning endpoints to the map UI.
type RouteHandler struct {
	Service RouteService
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	routes, err := h.Service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for _, rt := range routes {
		res.Routes = append(res.Routes, dto.FromRoute(rt))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.RouteDetailResponse{
		RouteResponse: dto.FromRoute(detail.Route),
		Loads:         make([]dto.LoadResponse, 0, len(detail.Loads)),
	}
	for _, l := range detail.Loads {
		res.Loads = append(res.Loads, dto.LoadResponse{
			ID:         l.ID,
			Name:       l.Name,
			VendorID:   l.Vendor.IDPtr(),
			VendorName: l.VendorName,
			Quantity:   l.Quantity,
			Pallets:    l.Pallets,
			State:      string(l.State),
			Partner:    dto.FromPartner(l.Partner),
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Service.Create(r.Context(), req.Name, req.VehicleID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromRoute(*route))
}

func (h *RouteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Remove(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (h *RouteHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	var req dto.AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Service.Assign(r.Context(), id, services.AssignInput{
		LoadIDs:       req.LoadIDs,
		VehicleID:     req.VehicleID,
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
		TotalCost:     req.TotalCost,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, assignResponse(res))
}

// Preview answers what Assign would store, for interactive reordering.
func (h *RouteHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	var req dto.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Service.Preview(r.Context(), id, services.PreviewInput{
		LoadIDs:       req.LoadIDs,
		OriginID:      req.OriginID,
		DestinationID: req.DestinationID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, assignResponse(res))
}

func (h *RouteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	var req dto.UpdateRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Service.Update(r.Context(), id, req.Name, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromRoute(*route))
}

func (h *RouteHandler) SetVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	var req dto.VehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VehicleID == nil || *req.VehicleID <= 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "vehicle_id required")
		return
	}

	if err := h.Service.SetVehicle(r.Context(), id, *req.VehicleID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"id": id, "vehicle_id": *req.VehicleID})
}

func (h *RouteHandler) SetDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	var req dto.DriverRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DriverID == nil || *req.DriverID <= 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "driver_id required")
		return
	}

	if err := h.Service.SetDriver(r.Context(), id, *req.DriverID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"id": id, "driver_id": *req.DriverID})
}

func (h *RouteHandler) SetDistance(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	var req dto.DistanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DistanceKm == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "distance_km required")
		return
	}

	if err := h.Service.SetDistance(r.Context(), id, *req.DistanceKm); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"id": id, "total_distance_km": *req.DistanceKm})
}

// Deviation compares the cost per kilogram of a planned and a re-routed trip.
func (h *RouteHandler) Deviation(w http.ResponseWriter, r *http.Request) {
	var req dto.DeviationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.KmOriginal == nil || req.KmNew == nil || req.KgOriginal == nil || req.KgNew == nil || req.CostPerKm == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "km_original, km_new, kg_original, kg_new and cost_per_km required")
		return
	}

	res, err := services.EvaluateDeviation(services.DeviationInput{
		OriginalKm: *req.KmOriginal,
		NewKm:      *req.KmNew,
		OriginalKg: *req.KgOriginal,
		NewKg:      *req.KgNew,
		CostPerKm:  *req.CostPerKm,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.DeviationResponse{
		OriginalCostPerKg: res.OriginalCostPerKg.Round(4),
		NewCostPerKg:      res.NewCostPerKg.Round(4),
		Worthwhile:        res.Worthwhile,
	})
}

func assignResponse(res *services.AssignResult) dto.AssignResponse {
	wps := res.Waypoints
	if wps == nil {
		wps = []domain.Waypoint{}
	}
	return dto.AssignResponse{RouteID: res.RouteID, Waypoints: wps, TotalDistanceKm: res.TotalDistanceKm}
}
