package geo

// Simplify reduces a polyline with the Douglas-Peucker algorithm.
// Polylines of two or fewer points are returned as-is. The tolerance
// epsilon is in degree space, matching PerpendicularDistance.
func Simplify(points []Point, epsilon float64) []Point {
	if len(points) <= 2 {
		return points
	}

	maxDist := 0.0
	maxIdx := 0
	first := points[0]
	last := points[len(points)-1]

	for i := 1; i < len(points)-1; i++ {
		d := PerpendicularDistance(points[i], first, last)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= epsilon {
		return []Point{first, last}
	}

	left := Simplify(points[:maxIdx+1], epsilon)
	right := Simplify(points[maxIdx:], epsilon)

	// Drop the joint point duplicated by the split.
	return append(left[:len(left)-1], right...)
}
