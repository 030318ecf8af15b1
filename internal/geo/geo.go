package geo

import "math"

const earthRadiusMeters = 6371000

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineMeters returns the great-circle distance between two
// coordinates. Good to ~0.5% which is plenty for movement thresholds
// in the tens of meters.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// PerpendicularDistance returns the distance from p to the segment
// [a, b] in degree space. The projection parameter is clamped to the
// segment endpoints, so points "past" either end measure to that end.
// Used by Douglas-Peucker where only relative magnitudes matter.
func PerpendicularDistance(p, a, b Point) float64 {
	dx := b.Lat - a.Lat
	dy := b.Lng - a.Lng

	if dx == 0 && dy == 0 {
		return math.Hypot(p.Lat-a.Lat, p.Lng-a.Lng)
	}

	t := ((p.Lat-a.Lat)*dx + (p.Lng-a.Lng)*dy) / (dx*dx + dy*dy)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	projLat := a.Lat + t*dx
	projLng := a.Lng + t*dy
	return math.Hypot(p.Lat-projLat, p.Lng-projLng)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
