// Package geometry provides the low-level vision primitives the feature
// tracker is built from: sparse pyramidal optical flow, Shi-Tomasi corner
// detection, fundamental-matrix RANSAC, and point/slice arithmetic.
package geometry

import "math"

// Point2f is a 2-D point in pixel coordinates.
type Point2f struct {
	X, Y float32
}

// Point2 is a 2-D point in double precision, used for normalized-plane
// coordinates and epipolar geometry.
type Point2 struct {
	X, Y float64
}

// Dist returns the Euclidean distance between two pixel points.
func Dist(a, b Point2f) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// InBorder reports whether a point lies inside the image rectangle shrunk
// by a one-pixel border, matching the tracker's emission contract. The
// right and bottom edges are tested on the coordinates rounded to the
// nearest pixel, so x = 638.6 in a 640-wide image counts as column 639 and
// is rejected.
func InBorder(p Point2f, cols, rows int) bool {
	const border = 1
	x := int(math.Round(float64(p.X)))
	y := int(math.Round(float64(p.Y)))
	return border <= x && x < cols-border && border <= y && y < rows-border &&
		p.X >= border && p.Y >= border
}

// Filter compacts a point slice in place order, keeping entries where
// keep[i] is true. The input slice is not modified.
func Filter(pts []Point2f, keep []bool) []Point2f {
	out := make([]Point2f, 0, len(pts))
	for i, p := range pts {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// CountTrue returns the number of set flags in a status slice.
func CountTrue(status []bool) int {
	n := 0
	for _, s := range status {
		if s {
			n++
		}
	}
	return n
}
