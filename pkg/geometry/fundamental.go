package geometry

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// fundamentalMaxIters bounds the RANSAC loop; the adaptive termination
// criterion usually stops far earlier.
const fundamentalMaxIters = 500

// FundamentalInliers estimates a fundamental matrix between two point sets
// with RANSAC (normalized eight-point solver) and labels each
// correspondence as inlier or outlier. thresh is the Sampson distance
// threshold in pixels, confidence the RANSAC success probability.
//
// Fewer than eight correspondences cannot constrain the model; every point
// is then reported as an inlier and the caller should treat the result as a
// skip.
func FundamentalInliers(pts1, pts2 []Point2, thresh, confidence float64) []bool {
	n := len(pts1)
	out := make([]bool, n)
	if n != len(pts2) || n < 8 {
		for i := range out {
			out[i] = true
		}
		return out
	}

	// Seeded for frame-to-frame reproducibility.
	rng := rand.New(rand.NewSource(0x9e3779b9))
	threshSq := thresh * thresh

	bestCount := 0
	var bestF *mat.Dense
	iters := fundamentalMaxIters

	sample1 := make([]Point2, 8)
	sample2 := make([]Point2, 8)

	for it := 0; it < iters; it++ {
		pickSample(rng, pts1, pts2, sample1, sample2)
		f := eightPoint(sample1, sample2)
		if f == nil {
			continue
		}

		count := 0
		for i := 0; i < n; i++ {
			if sampsonDistSq(f, pts1[i], pts2[i]) <= threshSq {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestF = f

			// Adaptive termination: shrink the iteration budget as the
			// inlier ratio estimate improves.
			w := float64(count) / float64(n)
			if w > 0 {
				denom := math.Log(1 - math.Pow(w, 8))
				if denom < 0 {
					if est := int(math.Ceil(math.Log(1-confidence) / denom)); est < iters {
						iters = est
					}
				}
			}
		}
	}

	if bestF == nil {
		for i := range out {
			out[i] = true
		}
		return out
	}

	// Refit on the consensus set, then relabel with the refined model.
	var in1, in2 []Point2
	for i := 0; i < n; i++ {
		if sampsonDistSq(bestF, pts1[i], pts2[i]) <= threshSq {
			in1 = append(in1, pts1[i])
			in2 = append(in2, pts2[i])
		}
	}
	if len(in1) >= 8 {
		if refined := eightPoint(in1, in2); refined != nil {
			bestF = refined
		}
	}

	for i := 0; i < n; i++ {
		out[i] = sampsonDistSq(bestF, pts1[i], pts2[i]) <= threshSq
	}
	return out
}

// pickSample draws eight distinct correspondences.
func pickSample(rng *rand.Rand, pts1, pts2, s1, s2 []Point2) {
	n := len(pts1)
	seen := make(map[int]struct{}, 8)
	for k := 0; k < 8; {
		i := rng.Intn(n)
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		s1[k] = pts1[i]
		s2[k] = pts2[i]
		k++
	}
}

// eightPoint solves for F with Hartley normalization such that
// x2^T F x1 = 0, returning a rank-2 3x3 matrix, or nil on degeneracy.
func eightPoint(pts1, pts2 []Point2) *mat.Dense {
	n := len(pts1)

	n1, t1 := normalizePoints(pts1)
	n2, t2 := normalizePoints(pts2)

	a := mat.NewDense(n, 9, nil)
	for i := 0; i < n; i++ {
		x1, y1 := n1[i].X, n1[i].Y
		x2, y2 := n2[i].X, n2[i].Y
		a.SetRow(i, []float64{
			x2 * x1, x2 * y1, x2,
			y2 * x1, y2 * y1, y2,
			x1, y1, 1,
		})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil
	}
	var v mat.Dense
	svd.VTo(&v)

	// Null vector: right singular vector of the smallest singular value.
	f := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.Set(i, j, v.At(i*3+j, 8))
		}
	}

	// Enforce the rank-2 constraint.
	var fsvd mat.SVD
	if !fsvd.Factorize(f, mat.SVDFull) {
		return nil
	}
	var u, vf mat.Dense
	fsvd.UTo(&u)
	fsvd.VTo(&vf)
	s := fsvd.Values(nil)
	s[2] = 0

	d := mat.NewDiagDense(3, s)
	var rank2 mat.Dense
	rank2.Product(&u, d, vf.T())

	// Denormalize: F = T2^T * F' * T1.
	var out mat.Dense
	out.Product(t2.T(), &rank2, t1)

	res := mat.DenseCopyOf(&out)
	return res
}

// normalizePoints translates the centroid to the origin and scales the mean
// distance to sqrt(2), returning the transformed points and the 3x3
// normalization transform.
func normalizePoints(pts []Point2) ([]Point2, *mat.Dense) {
	n := float64(len(pts))
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= n
	cy /= n

	var meanDist float64
	for _, p := range pts {
		meanDist += math.Hypot(p.X-cx, p.Y-cy)
	}
	meanDist /= n

	scale := 1.0
	if meanDist > 1e-12 {
		scale = math.Sqrt2 / meanDist
	}

	out := make([]Point2, len(pts))
	for i, p := range pts {
		out[i] = Point2{X: (p.X - cx) * scale, Y: (p.Y - cy) * scale}
	}

	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * cx,
		0, scale, -scale * cy,
		0, 0, 1,
	})
	return out, t
}

// sampsonDistSq is the first-order approximation of the squared geometric
// distance of a correspondence to the epipolar constraint.
func sampsonDistSq(f *mat.Dense, p1, p2 Point2) float64 {
	// l1 = F * x1, l2 = F^T * x2
	l1x := f.At(0, 0)*p1.X + f.At(0, 1)*p1.Y + f.At(0, 2)
	l1y := f.At(1, 0)*p1.X + f.At(1, 1)*p1.Y + f.At(1, 2)
	l1z := f.At(2, 0)*p1.X + f.At(2, 1)*p1.Y + f.At(2, 2)

	l2x := f.At(0, 0)*p2.X + f.At(1, 0)*p2.Y + f.At(2, 0)
	l2y := f.At(0, 1)*p2.X + f.At(1, 1)*p2.Y + f.At(2, 1)

	num := p2.X*l1x + p2.Y*l1y + l1z
	den := l1x*l1x + l1y*l1y + l2x*l2x + l2y*l2y
	if den < 1e-18 {
		return math.Inf(1)
	}
	return num * num / den
}
