package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"logistics-route-service/internal/services"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeServiceError translates service errors into status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *services.VehicleConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, r, http.StatusConflict, map[string]any{
			"error":      "vehicle is already assigned to another route",
			"route_id":   conflict.RouteID,
			"route_name": conflict.RouteName,
		})
	case errors.Is(err, services.ErrRouteNotFound):
		writeError(w, r, http.StatusNotFound, "route not found")
	case errors.Is(err, services.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrValidation):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads exactly one JSON object from the body. It writes the
// error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, r, http.StatusBadRequest, "request body is empty")
			return false
		}
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// routeID parses the {id} path segment. Anything that is not a positive
// integer cannot name a route.
func routeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusNotFound, "route not found")
		return 0, false
	}
	return id, true
}
