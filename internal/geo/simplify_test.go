package geo

import "testing"

func TestSimplifyShortInputsUnchanged(t *testing.T) {
	for _, points := range [][]Point{
		nil,
		{{Lat: 1, Lng: 1}},
		{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}},
	} {
		got := Simplify(points, 0.001)
		if len(got) != len(points) {
			t.Errorf("Simplify(%d points) returned %d points", len(points), len(got))
		}
	}
}

func TestSimplifyCollinearCollapsesToEndpoints(t *testing.T) {
	// Any positive tolerance must reduce a straight line to its ends.
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 1, Lng: 1},
		{Lat: 2, Lng: 2},
		{Lat: 3, Lng: 3},
		{Lat: 4, Lng: 4},
	}

	for _, epsilon := range []float64{1e-9, 0.0001, 1} {
		got := Simplify(points, epsilon)
		if len(got) != 2 {
			t.Fatalf("Simplify(collinear, %g) kept %d points, want 2", epsilon, len(got))
		}
		if got[0] != points[0] || got[1] != points[4] {
			t.Errorf("Simplify(collinear, %g) = %v, want endpoints", epsilon, got)
		}
	}
}

func TestSimplifyKeepsSharpCorner(t *testing.T) {
	corner := Point{Lat: 5, Lng: 5}
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 2.5, Lng: 2.5},
		corner,
		{Lat: 7.5, Lng: 2.5},
		{Lat: 10, Lng: 0},
	}

	got := Simplify(points, 0.5)
	found := false
	for _, p := range got {
		if p == corner {
			found = true
		}
	}
	if !found {
		t.Errorf("Simplify() dropped the corner point, got %v", got)
	}
	if len(got) >= len(points) {
		t.Errorf("Simplify() kept %d of %d points, expected a reduction", len(got), len(points))
	}
}

func TestSimplifyBelowToleranceZigZag(t *testing.T) {
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0.01, Lng: 2.5},
		{Lat: -0.01, Lng: 5},
		{Lat: 0.01, Lng: 7.5},
		{Lat: 0, Lng: 10},
	}

	got := Simplify(points, 0.5)
	if len(got) != 2 {
		t.Errorf("Simplify(jitter below tolerance) kept %d points, want 2", len(got))
	}
}
