package domain

// Partner is a vendor, carrier or site record from either registry.
// Lat/Lon are nil when the registry has no value for them.
type Partner struct {
	ID     int
	Name   string
	Lat    *float64
	Lon    *float64
	Street string
}

// HasCoordinates reports whether the partner can be placed on a route.
func (p *Partner) HasCoordinates() bool {
	if p == nil || p.Lat == nil || p.Lon == nil {
		return false
	}
	return Coordinates{Lat: *p.Lat, Lon: *p.Lon}.Usable()
}

// Coordinates returns the partner position. Callers check HasCoordinates first.
func (p *Partner) Coordinates() Coordinates {
	if p == nil || p.Lat == nil || p.Lon == nil {
		return Coordinates{}
	}
	return Coordinates{Lat: *p.Lat, Lon: *p.Lon}
}
