// Package geo provides geodesic math on a spherical Earth model:
// great-circle distance, initial bearing, and destination-point projection.
package geo

import (
	"fmt"
	"math"
)

// Mean Earth radius in kilometers (IUGG).
const earthRadiusKm = 6371.0088

// Coordinates is an immutable latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinates are within geographic bounds.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("geo: latitude %.6f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("geo: longitude %.6f out of range [-180, 180]", c.Lon)
	}
	return nil
}

// Distance returns the great-circle distance between two points in kilometers
// (haversine formula).
func Distance(a, b Coordinates) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bearing returns the initial bearing from a to b in degrees, normalized to
// [0, 360).
func Bearing(a, b Coordinates) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// Move projects a point by the given distance (km) along the given bearing
// (degrees) and returns the destination point.
func Move(from Coordinates, distanceKm, bearingDeg float64) Coordinates {
	lat1 := radians(from.Lat)
	lon1 := radians(from.Lon)
	brng := radians(bearingDeg)
	d := distanceKm / earthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)

	// Normalize longitude to [-180, 180].
	lonDeg := math.Mod(degrees(lon2)+540, 360) - 180

	return Coordinates{Lat: degrees(lat2), Lon: lonDeg}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
