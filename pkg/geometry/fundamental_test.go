package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticScene projects random 3-D points through two camera poses with a
// synthetic pinhole (f=460, principal point 320,240), the same projection
// the tracker feeds into the epipolar test.
func syntheticScene(n int, rng *rand.Rand) (pts1, pts2 []Point2) {
	const (
		f  = 460.0
		cx = 320.0
		cy = 240.0
	)
	// Camera 2 is translated along x and slightly rotated about y.
	const (
		tx    = 0.3
		angle = 0.02
	)
	sa, ca := math.Sin(angle), math.Cos(angle)

	for len(pts1) < n {
		x := rng.Float64()*4 - 2
		y := rng.Float64()*3 - 1.5
		z := rng.Float64()*6 + 4

		u1 := f*x/z + cx
		v1 := f*y/z + cy

		// Rigid transform into camera 2.
		x2 := ca*(x-tx) - sa*z
		z2 := sa*(x-tx) + ca*z
		u2 := f*x2/z2 + cx
		v2 := f*y/z2 + cy

		if u1 < 0 || u1 > 640 || v1 < 0 || v1 > 480 || u2 < 0 || u2 > 640 || v2 < 0 || v2 > 480 {
			continue
		}
		pts1 = append(pts1, Point2{X: u1, Y: v1})
		pts2 = append(pts2, Point2{X: u2, Y: v2})
	}
	return pts1, pts2
}

func TestFundamentalInliersAllGood(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pts1, pts2 := syntheticScene(60, rng)

	keep := FundamentalInliers(pts1, pts2, 1.0, 0.99)
	require.Len(t, keep, 60)
	assert.GreaterOrEqual(t, CountTrue(keep), 57, "clean correspondences should survive")
}

func TestFundamentalInliersRejectsOutliers(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pts1, pts2 := syntheticScene(80, rng)

	// Corrupt a fixed subset with large displacements.
	corrupted := map[int]bool{3: true, 17: true, 29: true, 44: true, 61: true, 75: true}
	for i := range corrupted {
		pts2[i].X += 25 + rng.Float64()*20
		pts2[i].Y -= 18 + rng.Float64()*20
	}

	keep := FundamentalInliers(pts1, pts2, 1.0, 0.99)

	for i := range corrupted {
		assert.False(t, keep[i], "corrupted correspondence %d should be rejected", i)
	}
	kept := CountTrue(keep)
	assert.GreaterOrEqual(t, kept, 70, "clean correspondences should largely survive")
}

func TestFundamentalInliersTooFew(t *testing.T) {
	pts1 := []Point2{{1, 2}, {3, 4}, {5, 6}}
	pts2 := []Point2{{1, 2}, {3, 4}, {5, 6}}

	keep := FundamentalInliers(pts1, pts2, 1.0, 0.99)
	require.Len(t, keep, 3)
	assert.Equal(t, 3, CountTrue(keep), "under eight matches everything passes through")
}

func TestEightPointEpipolarConstraint(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pts1, pts2 := syntheticScene(8, rng)

	f := eightPoint(pts1, pts2)
	require.NotNil(t, f)

	for i := range pts1 {
		d := sampsonDistSq(f, pts1[i], pts2[i])
		assert.Less(t, d, 1e-6, "exact correspondence %d must satisfy the constraint", i)
	}
}
