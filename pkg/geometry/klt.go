//go:build cgo
// +build cgo

package geometry

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

const (
	// kltWindow is the Lucas-Kanade search window edge in pixels.
	kltWindow = 21
	// kltMaxIter and kltEpsilon terminate the per-level iteration.
	kltMaxIter = 30
	kltEpsilon = 0.01
	// kltMinEig is OpenCV's default spatial gradient threshold.
	kltMinEig = 1e-4
)

// TrackPyramidal runs sparse pyramidal Lucas-Kanade flow from prev to cur
// for the given points. When seed is non-nil it is used as the initial
// position estimate in cur (warm start); callers pair that with a single
// pyramid level. Returns the tracked positions and a per-point success flag.
func TrackPyramidal(prev, cur gocv.Mat, pts []Point2f, seed []Point2f, maxLevel int) ([]Point2f, []bool) {
	if len(pts) == 0 {
		return nil, nil
	}

	prevMat := pointsToMat(pts)
	defer prevMat.Close()

	var curMat gocv.Mat
	flags := 0
	if seed != nil {
		curMat = pointsToMat(seed)
		flags = gocv.OptflowUseInitialFlow
	} else {
		curMat = gocv.NewMat()
	}
	defer curMat.Close()

	status := gocv.NewMat()
	defer status.Close()
	errs := gocv.NewMat()
	defer errs.Close()

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, kltMaxIter, kltEpsilon)
	gocv.CalcOpticalFlowPyrLKWithParams(prev, cur, prevMat, curMat, &status, &errs,
		image.Pt(kltWindow, kltWindow), maxLevel, criteria, flags, kltMinEig)

	out := matToPoints(curMat)
	ok := make([]bool, len(pts))
	for i := range ok {
		ok[i] = i < status.Rows() && status.GetUCharAt(i, 0) == 1
	}
	return out, ok
}

// FlowBackCheck runs Lucas-Kanade in the reverse direction, seeded with the
// original points at a single pyramid level, and clears the status of any
// point whose round-trip error exceeds maxErr pixels.
func FlowBackCheck(prev, cur gocv.Mat, prevPts, curPts []Point2f, status []bool, maxErr float64) []bool {
	reversePts, reverseStatus := TrackPyramidal(cur, prev, curPts, prevPts, 1)

	out := make([]bool, len(status))
	for i := range status {
		out[i] = status[i] && reverseStatus[i] && Dist(prevPts[i], reversePts[i]) <= maxErr
	}
	return out
}

// DetectCorners finds Shi-Tomasi corners outside the masked regions. The
// mask uses the tracker's convention: 255 marks free cells, 0 occupied.
// gocv does not bind the mask argument of goodFeaturesToTrack, so the full
// corner budget is detected first and filtered against the mask here.
func DetectCorners(img gocv.Mat, maxCorners int, quality float64, minDist float64, mask gocv.Mat, want int) []Point2f {
	if want <= 0 {
		return nil
	}

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(img, &corners, maxCorners, quality, minDist)

	all := matToPoints(corners)
	out := make([]Point2f, 0, want)
	for _, p := range all {
		if len(out) == want {
			break
		}
		x := int(math.Round(float64(p.X)))
		y := int(math.Round(float64(p.Y)))
		if x < 0 || x >= mask.Cols() || y < 0 || y >= mask.Rows() {
			continue
		}
		if mask.GetUCharAt(y, x) == 255 {
			out = append(out, p)
		}
	}
	return out
}

// pointsToMat packs points into a CV_32FC2 Mat of shape Nx1, the layout
// the optical flow and corner APIs exchange.
func pointsToMat(pts []Point2f) gocv.Mat {
	data := make([]byte, len(pts)*8)
	for i, p := range pts {
		putFloat32(data[i*8:], p.X)
		putFloat32(data[i*8+4:], p.Y)
	}
	m, err := gocv.NewMatFromBytes(len(pts), 1, gocv.MatTypeCV32FC2, data)
	if err != nil {
		return gocv.NewMat()
	}
	return m
}

func putFloat32(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

// matToPoints unpacks a CV_32FC2 Nx1 Mat into a point slice.
func matToPoints(m gocv.Mat) []Point2f {
	if m.Empty() {
		return nil
	}
	out := make([]Point2f, m.Rows())
	for i := range out {
		v := m.GetVecfAt(i, 0)
		out[i] = Point2f{X: v[0], Y: v[1]}
	}
	return out
}
