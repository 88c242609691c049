// Package geo implements the great-circle arithmetic behind the geofence.
package geo

import (
	"math"

	"checkpoint/internal/checkin/models"
)

// EarthRadiusM is the mean Earth radius used for haversine distances.
const EarthRadiusM = 6_371_000.0

// DistanceM returns the haversine distance between a and b in meters.
func DistanceM(a, b models.Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Within reports whether p lies within radiusM+bufferM of center, along with
// the computed distance.
func Within(p, center models.Point, radiusM, bufferM float64) (bool, float64) {
	d := DistanceM(p, center)
	return d <= radiusM+bufferM, d
}

// Valid reports whether p is a finite coordinate inside WGS84 bounds.
func Valid(p models.Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
