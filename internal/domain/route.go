package domain

import (
	"fmt"
	"strings"
	"time"
)

type RouteStatus string

const (
	RouteDraft    RouteStatus = "draft"
	RouteAssigned RouteStatus = "assigned"
	RouteDone     RouteStatus = "done"
)

var statusRank = map[RouteStatus]int{
	RouteDraft:    0,
	RouteAssigned: 1,
	RouteDone:     2,
}

// ParseRouteStatus validates a status value coming from outside.
func ParseRouteStatus(s string) (RouteStatus, error) {
	status := RouteStatus(strings.TrimSpace(s))
	if _, ok := statusRank[status]; !ok {
		return "", fmt.Errorf("unknown route status %q", s)
	}
	return status, nil
}

// Normalize maps an empty status from legacy records to draft.
func (s RouteStatus) Normalize() RouteStatus {
	if s == "" {
		return RouteDraft
	}
	return s
}

// CanTransitionTo reports whether a route may move from s to next.
// Status only moves forward (draft -> assigned -> done); rewriting the
// current status is allowed.
func (s RouteStatus) CanTransitionTo(next RouteStatus) bool {
	from, ok := statusRank[s.Normalize()]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Represents a truck route as stored in the primary registry.
// Waypoints are ordered origin, load stops, destination. LinesOC is set once
// the route has a freight line in the purchasing registry and is never reset.
type Route struct {
	ID              int
	Name            string
	Status          RouteStatus
	Vehicle         Ref
	Driver          Ref
	Carrier         Ref
	Waypoints       []Waypoint
	TotalDistanceKm float64
	TotalCost       *float64
	LoadIDs         []int
	LinesOC         bool
	LastRecalc      *time.Time
}

// RouteChanges lists the fields a write touches. Nil fields are left alone.
// A zero id in VehicleID or DriverID clears the reference.
type RouteChanges struct {
	Name            *string
	Status          *RouteStatus
	VehicleID       *int
	DriverID        *int
	Waypoints       *[]Waypoint
	TotalDistanceKm *float64
	TotalCost       *float64
	ClearTotalCost  bool
	LoadIDs         *[]int
	LinesOC         *bool
	LastRecalc      *time.Time
}

// Empty reports whether the change set writes nothing.
func (c RouteChanges) Empty() bool {
	return c.Name == nil && c.Status == nil && c.VehicleID == nil && c.DriverID == nil &&
		c.Waypoints == nil && c.TotalDistanceKm == nil && c.TotalCost == nil && !c.ClearTotalCost &&
		c.LoadIDs == nil && c.LinesOC == nil && c.LastRecalc == nil
}
