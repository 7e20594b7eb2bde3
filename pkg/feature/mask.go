//go:build cgo
// +build cgo

package feature

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// BuildMask performs the greedy age-first non-maximum suppression and
// returns the resulting occupancy mask. Landmarks are visited in
// descending age order (stable, so older and earlier-inserted tracks win
// ties); each one is kept only if its pixel is still free, and every
// keeper stamps a filled disk of radius minDist at value 0. The returned
// mask also restricts where new corners may be detected: 255 marks free
// cells. The caller owns the mask.
func BuildMask(s *Store, rows, cols, minDist int) gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)

	s.SortByAgeDesc()

	keep := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		lm := s.At(i)
		x := int(math.Round(float64(lm.Px.X)))
		y := int(math.Round(float64(lm.Px.Y)))
		if x < 0 || x >= cols || y < 0 || y >= rows {
			continue
		}
		if mask.GetUCharAt(y, x) == 255 {
			keep[i] = true
			gocv.Circle(&mask, image.Pt(x, y), minDist, color.RGBA{}, -1)
		}
	}
	s.Reduce(keep)

	return mask
}
