package services

import (
	"errors"
	"fmt"
)

var (
	ErrRouteNotFound     = errors.New("route not found")
	ErrInvalidStatus     = errors.New("invalid route status")
	ErrInvalidTransition = errors.New("route status cannot move backwards")
	ErrValidation        = errors.New("validation failed")
)

// VehicleConflictError is returned when a vehicle already serves another route.
type VehicleConflictError struct {
	VehicleID int
	RouteID   int
	RouteName string
}

func (e *VehicleConflictError) Error() string {
	return fmt.Sprintf("vehicle %d is already assigned to route %d (%s)", e.VehicleID, e.RouteID, e.RouteName)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
