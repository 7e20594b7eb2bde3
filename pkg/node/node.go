//go:build cgo
// +build cgo

// Package node provides the ingestion layer around the feature tracker: a
// mutex-guarded hand-off between the image producers and the single
// consumer goroutine that runs the per-frame pipeline. The per-camera image
// buffers have no size limit.
//
// Producers push timestamped images per camera; a sync goroutine pairs
// stereo frames within a 3 ms tolerance, drops whatever cannot be paired,
// and feeds the tracker in strictly increasing timestamp order. Prediction
// and outlier messages are applied on the caller's goroutine under the same
// mutex the consumer holds while tracking a frame, so the tracker never
// sees concurrent access.
package node

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/viofeat/viofeat/internal/config"
	"github.com/viofeat/viofeat/internal/observability"
	"github.com/viofeat/viofeat/pkg/camera"
	"github.com/viofeat/viofeat/pkg/feature"
)

// Common errors returned by the node.
var (
	ErrNodeClosed  = errors.New("node is closed")
	ErrNodeRunning = errors.New("node is already running")
	ErrNodeStopped = errors.New("node is not running")
)

const (
	// stereoSyncTolerance is the maximum timestamp skew of a stereo pair.
	stereoSyncTolerance = 0.003
	// pollInterval paces the consumer when the buffers are empty.
	pollInterval = 2 * time.Millisecond
)

// State represents the node lifecycle.
type State int

const (
	// StateIdle means the node is initialized but not running.
	StateIdle State = iota
	// StateRunning means the sync loop is consuming frames.
	StateRunning
	// StateStopped means the node has been stopped.
	StateStopped
	// StateClosed means the node has been closed and cannot be reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Result is delivered to subscribers for every processed frame.
type Result struct {
	// Time is the frame timestamp in seconds.
	Time float64
	// Features is the emitted feature frame.
	Features feature.Frame
}

// IMUHandler receives inertial samples pushed through the node. The node
// itself never interprets them.
type IMUHandler func(t float64, acc, gyro [3]float64)

type stampedImage struct {
	t   float64
	img gocv.Mat
}

// Node owns a feature tracker and the buffers feeding it.
type Node struct {
	cfg     *config.Config
	tracker *feature.Tracker
	stereo  bool

	bufMu   sync.Mutex
	img0Buf []stampedImage
	img1Buf []stampedImage

	mu          sync.Mutex
	state       State
	subscribers []chan *Result
	imuHandler  IMUHandler
	prevTime    float64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a node around a tracker built from the configuration's
// calibration files.
func New(cfg *config.Config) (*Node, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cams, err := camera.LoadRegistry(cfg.Camera.Calib)
	if err != nil {
		return nil, fmt.Errorf("loading calibration: %w", err)
	}

	return &Node{
		cfg:      cfg,
		tracker:  feature.NewTracker(&cfg.Tracker, cams),
		stereo:   cams.Stereo(),
		state:    StateIdle,
		prevTime: -1,
	}, nil
}

// NewWithTracker wires an already-constructed tracker, used by tests and
// callers that build models directly.
func NewWithTracker(cfg *config.Config, tracker *feature.Tracker, stereo bool) *Node {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Node{
		cfg:      cfg,
		tracker:  tracker,
		stereo:   stereo,
		state:    StateIdle,
		prevTime: -1,
	}
}

// State returns the current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Tracker exposes the underlying tracker for overlay retrieval. Callers
// must not invoke Track on it while the node runs.
func (n *Node) Tracker() *feature.Tracker { return n.tracker }

// Overlay returns a snapshot of the latest track overlay, or an empty Mat
// when none has been rendered yet. Taking the frame mutex keeps the copy
// consistent while the consumer is mid-frame. The caller owns the Mat.
func (n *Node) Overlay() gocv.Mat {
	n.mu.Lock()
	defer n.mu.Unlock()

	img := n.tracker.TrackImage()
	if img.Empty() {
		return gocv.NewMat()
	}
	return img.Clone()
}

// Subscribe returns a channel receiving one Result per processed frame.
// Slow subscribers drop results rather than stalling the pipeline.
func (n *Node) Subscribe() <-chan *Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan *Result, 10)
	n.subscribers = append(n.subscribers, ch)
	return ch
}

// SetIMUHandler registers the inertial pass-through. Must be called before
// Start.
func (n *Node) SetIMUHandler(h IMUHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != StateIdle {
		return fmt.Errorf("cannot set IMU handler: node is %s", n.state)
	}
	n.imuHandler = h
	return nil
}

// PushFrame enqueues a grayscale image for the given camera (0 = left,
// 1 = right). The image is cloned; the caller keeps ownership of img.
func (n *Node) PushFrame(cam int, t float64, img gocv.Mat) {
	if img.Empty() {
		return
	}
	n.bufMu.Lock()
	defer n.bufMu.Unlock()

	entry := stampedImage{t: t, img: img.Clone()}
	switch cam {
	case 0:
		n.img0Buf = append(n.img0Buf, entry)
	case 1:
		n.img1Buf = append(n.img1Buf, entry)
	default:
		entry.img.Close()
		log.Printf("node: dropping frame for unknown camera %d", cam)
		return
	}
	observability.QueueDepth.Set(float64(len(n.img0Buf) + len(n.img1Buf)))
}

// PushIMU forwards an inertial sample to the registered handler.
func (n *Node) PushIMU(t float64, acc, gyro [3]float64) {
	n.mu.Lock()
	h := n.imuHandler
	n.mu.Unlock()

	if h != nil {
		h(t, acc, gyro)
	}
}

// PushPrediction arms the tracker's warm start for the next frame.
func (n *Node) PushPrediction(pts map[uint64]camera.Point3) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tracker.SetPrediction(pts)
}

// PushOutliers retires the named landmark ids.
func (n *Node) PushOutliers(ids map[uint64]struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tracker.RemoveOutliers(ids)
}

// Restart flushes the tracker state between frames. Landmark ids keep
// increasing across restarts.
func (n *Node) Restart() {
	n.mu.Lock()
	n.tracker.ClearState()
	n.prevTime = -1
	n.mu.Unlock()

	n.bufMu.Lock()
	n.drainLocked()
	n.bufMu.Unlock()
}

// Start launches the sync loop.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateRunning:
		return ErrNodeRunning
	case StateClosed:
		return ErrNodeClosed
	}

	n.stopCh = make(chan struct{})
	n.state = StateRunning

	n.wg.Add(1)
	go n.syncLoop()
	return nil
}

// Stop halts the sync loop. Buffered frames are kept.
func (n *Node) Stop() error {
	n.mu.Lock()
	if n.state != StateRunning {
		n.mu.Unlock()
		return ErrNodeStopped
	}
	close(n.stopCh)
	n.state = StateStopped
	n.mu.Unlock()

	n.wg.Wait()
	return nil
}

// Close stops the node and releases every buffered image and the tracker.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.state == StateClosed {
		n.mu.Unlock()
		return ErrNodeClosed
	}
	if n.state == StateRunning {
		close(n.stopCh)
	}
	n.state = StateClosed
	n.mu.Unlock()

	n.wg.Wait()

	n.bufMu.Lock()
	n.drainLocked()
	n.bufMu.Unlock()

	n.mu.Lock()
	n.tracker.Close()
	for _, ch := range n.subscribers {
		close(ch)
	}
	n.subscribers = nil
	n.mu.Unlock()
	return nil
}

// drainLocked closes and forgets all buffered images. Caller holds bufMu.
func (n *Node) drainLocked() {
	for _, e := range n.img0Buf {
		e.img.Close()
	}
	for _, e := range n.img1Buf {
		e.img.Close()
	}
	n.img0Buf = nil
	n.img1Buf = nil
	observability.QueueDepth.Set(0)
}

// syncLoop is the single consumer: it pairs stereo frames, keeps timestamp
// order, and runs the tracker.
func (n *Node) syncLoop() {
	defer n.wg.Done()

	for {
		select {
		case <-n.stopCh:
			return
		default:
		}

		t, left, right, ok := n.nextFrame()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		n.process(t, left, right)
		left.Close()
		right.Close()
	}
}

// nextFrame pops the next processable frame set from the buffers.
func (n *Node) nextFrame() (float64, gocv.Mat, gocv.Mat, bool) {
	n.bufMu.Lock()
	defer n.bufMu.Unlock()

	if n.stereo {
		for len(n.img0Buf) > 0 && len(n.img1Buf) > 0 {
			t0 := n.img0Buf[0].t
			t1 := n.img1Buf[0].t
			switch {
			case t0 < t1-stereoSyncTolerance:
				n.img0Buf[0].img.Close()
				n.img0Buf = n.img0Buf[1:]
				observability.FramesDropped.Inc()
				log.Printf("node: throw left image t=%.6f, right is ahead", t0)
			case t0 > t1+stereoSyncTolerance:
				n.img1Buf[0].img.Close()
				n.img1Buf = n.img1Buf[1:]
				observability.FramesDropped.Inc()
				log.Printf("node: throw right image t=%.6f, left is ahead", t1)
			default:
				left := n.img0Buf[0]
				right := n.img1Buf[0]
				n.img0Buf = n.img0Buf[1:]
				n.img1Buf = n.img1Buf[1:]
				observability.QueueDepth.Set(float64(len(n.img0Buf) + len(n.img1Buf)))
				return left.t, left.img, right.img, true
			}
		}
		return 0, gocv.Mat{}, gocv.Mat{}, false
	}

	if len(n.img0Buf) == 0 {
		return 0, gocv.Mat{}, gocv.Mat{}, false
	}
	e := n.img0Buf[0]
	n.img0Buf = n.img0Buf[1:]
	observability.QueueDepth.Set(float64(len(n.img0Buf)))
	return e.t, e.img, gocv.NewMat(), true
}

// process runs one frame through the tracker and fans the result out.
func (n *Node) process(t float64, left, right gocv.Mat) {
	n.mu.Lock()
	defer n.mu.Unlock()

	// Frames must arrive in strictly increasing timestamp order.
	if t <= n.prevTime {
		observability.FramesDropped.Inc()
		log.Printf("node: skipping out-of-order frame t=%.6f (prev %.6f)", t, n.prevTime)
		return
	}

	start := time.Now()
	frame, err := n.tracker.Track(t, left, right)
	if err != nil {
		log.Printf("node: skipping frame t=%.6f: %v", t, err)
		return
	}
	observability.TrackDuration.Observe(time.Since(start).Seconds())
	observability.FramesProcessed.Inc()
	observability.ActiveLandmarks.Set(float64(n.tracker.Store().Len()))
	n.prevTime = t

	res := &Result{Time: t, Features: frame}
	for _, ch := range n.subscribers {
		select {
		case ch <- res:
		default:
			// Drop the result if the subscriber is slow.
		}
	}
}
