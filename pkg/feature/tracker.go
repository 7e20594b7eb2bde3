//go:build cgo
// +build cgo

package feature

import (
	"errors"
	"image"
	"log"

	"gocv.io/x/gocv"

	"github.com/viofeat/viofeat/internal/config"
	"github.com/viofeat/viofeat/pkg/camera"
	"github.com/viofeat/viofeat/pkg/geometry"
)

const (
	// flowBackMaxErr is the forward/backward round-trip tolerance in pixels.
	flowBackMaxErr = 0.5
	// warmStartMinHits is the minimum number of warm-start successes before
	// falling back to cold tracking.
	warmStartMinHits = 10
	// detectQuality is the Shi-Tomasi quality level for replenishment.
	detectQuality = 0.01
	// fRejectMinMatches is the minimum correspondence count for epipolar
	// rejection; below it the step is skipped.
	fRejectMinMatches = 8
	fConfidence       = 0.99

	claheClip = 3.0
	claheTile = 8
)

// ErrDegenerateFrame is returned for an empty or mistyped input image. The
// tracker state is preserved; the caller logs and skips the frame.
var ErrDegenerateFrame = errors.New("degenerate frame: empty or not 8-bit grayscale")

// Tracker converts a stream of grayscale frames into per-frame bags of
// persistent landmarks. It is single-threaded: Track, SetPrediction,
// RemoveOutliers and ClearState must be called from one goroutine (the
// ingestion node serializes them).
type Tracker struct {
	cfg  *config.TrackerConfig
	cams *camera.Registry

	store      *Store
	rows, cols int

	prevImg  gocv.Mat
	prevTime float64
	hasPrev  bool

	prevUnPts      map[uint64]geometry.Point2
	prevRightUnPts map[uint64]geometry.Point2

	hasPrediction bool
	predictPts    []geometry.Point2f

	trackImg gocv.Mat
}

// NewTracker creates a tracker for the given camera rig. A nil cfg selects
// the defaults.
func NewTracker(cfg *config.TrackerConfig, cams *camera.Registry) *Tracker {
	if cfg == nil {
		def := config.Default().Tracker
		cfg = &def
	}
	return &Tracker{
		cfg:      cfg,
		cams:     cams,
		store:    NewStore(),
		prevImg:  gocv.NewMat(),
		trackImg: gocv.NewMat(),
	}
}

// Close releases the retained frame and overlay buffers.
func (t *Tracker) Close() {
	t.prevImg.Close()
	t.trackImg.Close()
}

// Store returns the landmark store for inspection. The tracker retains
// exclusive ownership; callers must not mutate it.
func (t *Tracker) Store() *Store { return t.store }

// ClearState flushes all per-frame state between frames. The id counter is
// deliberately kept so ids stay unique across restarts.
func (t *Tracker) ClearState() {
	t.store.Clear()
	t.prevUnPts = nil
	t.prevRightUnPts = nil
	t.hasPrediction = false
	t.predictPts = nil
	t.hasPrev = false
	t.prevTime = 0
	if !t.prevImg.Empty() {
		t.prevImg.Close()
		t.prevImg = gocv.NewMat()
	}
}

// prepare produces the tracker-owned working copy of an input image,
// equalized when configured.
func (t *Tracker) prepare(img gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	if t.cfg.Equalize {
		clahe := gocv.NewCLAHEWithParams(claheClip, image.Pt(claheTile, claheTile))
		defer clahe.Close()
		clahe.Apply(img, &out)
	} else {
		img.CopyTo(&out)
	}
	return out
}

// Track runs the per-frame pipeline and returns the emitted feature frame.
// right may be an empty Mat for monocular operation. The input Mats remain
// owned by the caller.
func (t *Tracker) Track(timestamp float64, left, right gocv.Mat) (Frame, error) {
	if left.Empty() || left.Type() != gocv.MatTypeCV8UC1 {
		return nil, ErrDegenerateFrame
	}
	t.rows = left.Rows()
	t.cols = left.Cols()

	cur := t.prepare(left)

	stereo := t.cams.Stereo() && !right.Empty()
	var rightImg gocv.Mat
	if stereo {
		rightImg = t.prepare(right)
		defer rightImg.Close()
	}

	// Propagate the previous landmark set into this frame.
	if t.hasPrev && t.store.Len() > 0 {
		prevPts := t.store.Pixels()

		var curPts []geometry.Point2f
		var status []bool
		if t.hasPrediction && len(t.predictPts) == len(prevPts) {
			curPts, status = geometry.TrackPyramidal(t.prevImg, cur, prevPts, t.predictPts, 1)
			if geometry.CountTrue(status) < warmStartMinHits {
				curPts, status = geometry.TrackPyramidal(t.prevImg, cur, prevPts, nil, 3)
			}
		} else {
			curPts, status = geometry.TrackPyramidal(t.prevImg, cur, prevPts, nil, 3)
		}

		if t.cfg.FlowBack {
			status = geometry.FlowBackCheck(t.prevImg, cur, prevPts, curPts, status, flowBackMaxErr)
		}
		for i := range status {
			if status[i] && !geometry.InBorder(curPts[i], t.cols, t.rows) {
				status[i] = false
			}
		}

		t.store.Advance(curPts, status)
		t.store.Reduce(status)
	}

	t.store.IncrementAges()

	t.rejectWithF()

	mask := BuildMask(t.store, t.rows, t.cols, int(t.cfg.MinDist))

	// Replenish up to the landmark budget in uncovered regions.
	if need := t.cfg.MaxCnt - t.store.Len(); need > 0 {
		if mask.Empty() || mask.Type() != gocv.MatTypeCV8UC1 {
			log.Printf("feature: detection mask unusable, skipping replenishment")
		} else {
			for _, p := range geometry.DetectCorners(cur, t.cfg.MaxCnt, detectQuality, float64(t.cfg.MinDist), mask, need) {
				t.store.Append(p)
			}
		}
	}
	mask.Close()

	// Lift every current pixel into the normalized plane of camera 0.
	cam0 := t.cams.Model(0)
	for i := 0; i < t.store.Len(); i++ {
		lm := t.store.At(i)
		ray := cam0.LiftProjective(camera.Point2{X: float64(lm.Px.X), Y: float64(lm.Px.Y)})
		lm.UnPx = geometry.Point2{X: ray.X / ray.Z, Y: ray.Y / ray.Z}
	}

	dt := timestamp - t.prevTime
	curUnPts := make(map[uint64]geometry.Point2, t.store.Len())
	for i := 0; i < t.store.Len(); i++ {
		lm := t.store.At(i)
		curUnPts[lm.ID] = lm.UnPx
	}
	vel := t.velocities(dt, curUnPts, t.prevUnPts)

	// Stereo augmentation: locate the surviving landmarks in the right eye.
	var rightIDs []uint64
	var rightPts []geometry.Point2f
	var rightUn []geometry.Point2
	var rightVel []geometry.Point2
	if stereo && t.store.Len() > 0 {
		rightIDs, rightPts, rightUn, rightVel = t.trackRight(cur, rightImg, dt)
	} else if t.cams.Stereo() {
		// No right-eye tracking this frame (right image missing or no
		// landmarks): drop the map so right-side velocities never bridge
		// the gap.
		t.prevRightUnPts = nil
	}

	if t.cfg.ShowTrack {
		t.drawTrack(cur, rightImg, stereo, rightPts)
	}

	// Roll the frame state; the current image is retained by ownership
	// transfer, not by copy.
	old := t.prevImg
	t.prevImg = cur
	old.Close()

	t.prevUnPts = curUnPts
	t.prevTime = timestamp
	t.hasPrev = true
	t.hasPrediction = false
	t.predictPts = nil
	t.store.RebuildIndex()

	frame := make(Frame, t.store.Len())
	for i := 0; i < t.store.Len(); i++ {
		lm := t.store.At(i)
		frame[lm.ID] = append(frame[lm.ID], Observation{
			CameraID: 0,
			X:        lm.UnPx.X,
			Y:        lm.UnPx.Y,
			Z:        1,
			U:        float64(lm.Px.X),
			V:        float64(lm.Px.Y),
			VX:       vel[i].X,
			VY:       vel[i].Y,
		})
	}
	for j, id := range rightIDs {
		frame[id] = append(frame[id], Observation{
			CameraID: 1,
			X:        rightUn[j].X,
			Y:        rightUn[j].Y,
			Z:        1,
			U:        float64(rightPts[j].X),
			V:        float64(rightPts[j].Y),
			VX:       rightVel[j].X,
			VY:       rightVel[j].Y,
		})
	}
	return frame, nil
}

// velocities computes per-landmark normalized-plane velocities against the
// previous frame's id map. Newborns and the first frame get zero.
func (t *Tracker) velocities(dt float64, cur, prev map[uint64]geometry.Point2) []geometry.Point2 {
	out := make([]geometry.Point2, t.store.Len())
	if len(prev) == 0 || dt <= 0 {
		return out
	}
	for i := 0; i < t.store.Len(); i++ {
		lm := t.store.At(i)
		if p, ok := prev[lm.ID]; ok {
			out[i] = geometry.Point2{
				X: (lm.UnPx.X - p.X) / dt,
				Y: (lm.UnPx.Y - p.Y) / dt,
			}
		}
	}
	return out
}

// trackRight runs left-to-right KLT for the current landmark set. The right
// index list stays separate from the left store; ids are shared, not
// re-minted. Every left landmark is emitted even without a right match.
func (t *Tracker) trackRight(cur, rightImg gocv.Mat, dt float64) ([]uint64, []geometry.Point2f, []geometry.Point2, []geometry.Point2) {
	leftPts := t.store.Pixels()
	rightPts, status := geometry.TrackPyramidal(cur, rightImg, leftPts, nil, 3)

	if t.cfg.FlowBack {
		backPts, backStatus := geometry.TrackPyramidal(rightImg, cur, rightPts, nil, 3)
		for i := range status {
			status[i] = status[i] && backStatus[i] &&
				geometry.Dist(leftPts[i], backPts[i]) <= flowBackMaxErr
		}
	}
	for i := range status {
		if status[i] && !geometry.InBorder(rightPts[i], t.cols, t.rows) {
			status[i] = false
		}
	}

	cam1 := t.cams.Model(1)
	curRightUnPts := make(map[uint64]geometry.Point2)

	var ids []uint64
	var pts []geometry.Point2f
	var un []geometry.Point2
	for i := range status {
		if !status[i] {
			continue
		}
		lm := t.store.At(i)
		ray := cam1.LiftProjective(camera.Point2{X: float64(rightPts[i].X), Y: float64(rightPts[i].Y)})
		u := geometry.Point2{X: ray.X / ray.Z, Y: ray.Y / ray.Z}

		ids = append(ids, lm.ID)
		pts = append(pts, rightPts[i])
		un = append(un, u)
		curRightUnPts[lm.ID] = u
	}

	vel := make([]geometry.Point2, len(ids))
	if len(t.prevRightUnPts) > 0 && dt > 0 {
		for j, id := range ids {
			if p, ok := t.prevRightUnPts[id]; ok {
				vel[j] = geometry.Point2{
					X: (un[j].X - p.X) / dt,
					Y: (un[j].Y - p.Y) / dt,
				}
			}
		}
	}
	t.prevRightUnPts = curRightUnPts

	return ids, pts, un, vel
}

// rejectWithF culls landmarks that violate the epipolar geometry between
// the previous and current frame. Both pixel sets are lifted through
// camera 0 and re-projected onto a synthetic pinhole so one pixel threshold
// is meaningful across lens models. Skipped below eight matches.
func (t *Tracker) rejectWithF() {
	n := t.store.Len()
	if n < fRejectMinMatches {
		return
	}

	cam0 := t.cams.Model(0)
	focal := float64(t.cfg.FocalLength)
	halfW := float64(t.cols) / 2
	halfH := float64(t.rows) / 2

	synth := func(p geometry.Point2f) geometry.Point2 {
		ray := cam0.LiftProjective(camera.Point2{X: float64(p.X), Y: float64(p.Y)})
		return geometry.Point2{
			X: focal*ray.X/ray.Z + halfW,
			Y: focal*ray.Y/ray.Z + halfH,
		}
	}

	unCur := make([]geometry.Point2, n)
	unPrev := make([]geometry.Point2, n)
	for i := 0; i < n; i++ {
		lm := t.store.At(i)
		unCur[i] = synth(lm.Px)
		unPrev[i] = synth(lm.PrevPx)
	}

	keep := geometry.FundamentalInliers(unCur, unPrev, float64(t.cfg.FThreshold), fConfidence)
	t.store.Reduce(keep)
}

// SetPrediction arms a warm start for the next frame. Predicted 3-D points
// are projected through camera 0; landmarks without a prediction fall back
// to their last pixel. The prediction applies to the next frame only.
func (t *Tracker) SetPrediction(pts map[uint64]camera.Point3) {
	t.hasPrediction = true
	cam0 := t.cams.Model(0)

	t.predictPts = make([]geometry.Point2f, t.store.Len())
	for i := 0; i < t.store.Len(); i++ {
		lm := t.store.At(i)
		if p, ok := pts[lm.ID]; ok {
			uv := cam0.SpaceToPlane(p)
			t.predictPts[i] = geometry.Point2f{X: float32(uv.X), Y: float32(uv.Y)}
		} else {
			t.predictPts[i] = lm.Px
		}
	}
}

// RemoveOutliers retires the named landmarks. Their ids are never reused.
func (t *Tracker) RemoveOutliers(ids map[uint64]struct{}) {
	if len(ids) == 0 || t.store.Len() == 0 {
		return
	}
	keep := make([]bool, t.store.Len())
	for i := 0; i < t.store.Len(); i++ {
		_, drop := ids[t.store.At(i).ID]
		keep[i] = !drop
	}
	t.store.Reduce(keep)
	t.store.RebuildIndex()
	// A pending prediction is now misaligned; the length check in Track
	// makes the next frame fall back to cold tracking.
	t.predictPts = nil
}
