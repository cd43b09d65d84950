package processor

import "math"

// Point is a 2-D pixel coordinate used for on-image measurements.
type Point struct {
	X float64
	Y float64
}

// Distance returns the physical Euclidean distance between two pixel
// coordinates, scaling each axis delta by the matching component of
// spacing (x spacing, y spacing) in mm before combining.
func Distance(a, b Point, spacing [2]float64) float64 {
	dx := (b.X - a.X) * spacing[0]
	dy := (b.Y - a.Y) * spacing[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// PolygonArea returns the physical area enclosed by an ordered point
// sequence, computed with the shoelace formula over spacing-scaled
// coordinates. Fewer than 3 points enclose nothing and return 0.
func PolygonArea(points []Point, spacing [2]float64) float64 {
	if len(points) < 3 {
		return 0.0
	}

	area := 0.0
	n := len(points)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := points[i].X*spacing[0], points[i].Y*spacing[1]
		xj, yj := points[j].X*spacing[0], points[j].Y*spacing[1]
		area += xi*yj - xj*yi
	}
	return math.Abs(area) / 2.0
}

// Angle returns the angle in degrees at vertex between the vectors
// vertex->a and vertex->c. A degenerate (zero-length) vector yields 0
// rather than failing.
func Angle(a, vertex, c Point) float64 {
	v1x, v1y := a.X-vertex.X, a.Y-vertex.Y
	v2x, v2y := c.X-vertex.X, c.Y-vertex.Y

	denom := math.Hypot(v1x, v1y) * math.Hypot(v2x, v2y)
	if denom == 0 {
		return 0.0
	}

	cos := (v1x*v2x + v1y*v2y) / denom
	cos = math.Max(-1.0, math.Min(1.0, cos))
	return math.Acos(cos) * 180 / math.Pi
}
