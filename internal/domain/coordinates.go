package domain

import (
	"fmt"
	"strings"
)

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64
	Lon float64
}

// Usable reports whether the pair can be placed on a map.
// Registries store "no coordinates" as zero, so a zero component is treated as absent.
func (c Coordinates) Usable() bool {
	return c.Lat != 0 && c.Lon != 0
}

// Return coordinates as "lat,lon" for routing provider query parameters.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// RouteKey identifies a routing profile plus an ordered point list.
// Points are rounded to six decimals so equal routes share a key.
func RouteKey(profile string, points []Coordinates) string {
	parts := make([]string, 0, len(points)+1)
	parts = append(parts, strings.TrimSpace(profile))
	for _, p := range points {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, "|")
}
