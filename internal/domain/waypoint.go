package domain

// WaypointType marks the role of a waypoint inside a route.
// Load-carrying stops leave it empty.
type WaypointType string

const (
	WaypointOrigin      WaypointType = "origin"
	WaypointDestination WaypointType = "destination"
	WaypointStop        WaypointType = ""
)

// Represents a single geographic point of a route path.
// A stop always carries LoadID; origin and destination never do.
type Waypoint struct {
	Lat       float64      `json:"lat"`
	Lon       float64      `json:"lon"`
	Label     string       `json:"label"`
	Type      WaypointType `json:"type,omitempty"`
	LoadID    *int         `json:"load_id,omitempty"`
	PartnerID *int         `json:"partner_id,omitempty"`
}

func (w Waypoint) Coordinates() Coordinates {
	return Coordinates{Lat: w.Lat, Lon: w.Lon}
}

// HasLoad reports whether the waypoint is a load stop.
func (w Waypoint) HasLoad() bool {
	return w.LoadID != nil && *w.LoadID > 0
}
