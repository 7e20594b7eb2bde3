//go:build cgo
// +build cgo

package capture

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// fourccMJPEG is the FourCC code for Motion JPEG codec.
	// MJPEG is widely supported by USB webcams and provides good compression.
	fourccMJPEG = 0x47504A4D
)

// Camera is a live grayscale source backed by OpenCV video capture.
//
// Implementation notes:
// - Uses the V4L2 backend on Linux to avoid GStreamer pipeline errors
// - Sets the MJPEG codec explicitly for USB webcam compatibility
// - Converts BGR capture output to single-channel grayscale for the tracker
// - Thread-safe: mu protects all fields and camera operations
type Camera struct {
	mu sync.Mutex

	deviceID int
	width    int
	height   int
	fps      int

	webcam *gocv.VideoCapture
	epoch  time.Time
	opened bool
}

// NewCamera creates an unopened camera source.
func NewCamera() *Camera {
	return &Camera{}
}

// Open initializes the camera with the given configuration.
func (c *Camera) Open(deviceID, width, height, fps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return fmt.Errorf("camera already opened")
	}

	webcam, err := gocv.OpenVideoCaptureWithAPI(deviceID, gocv.VideoCaptureV4L2)
	if err != nil {
		return fmt.Errorf("failed to open camera device %d: %w", deviceID, err)
	}

	if !webcam.IsOpened() {
		webcam.Close()
		return fmt.Errorf("camera device %d not found or unavailable", deviceID)
	}

	webcam.Set(gocv.VideoCaptureFOURCC, fourccMJPEG)

	if width > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	if fps > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(fps))
	}

	c.deviceID = deviceID
	c.width = int(webcam.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(webcam.Get(gocv.VideoCaptureFrameHeight))
	c.fps = int(webcam.Get(gocv.VideoCaptureFPS))
	c.webcam = webcam
	c.epoch = time.Now()
	c.opened = true

	// Warm up: some cameras need a discarded first frame to initialize.
	warmup := gocv.NewMat()
	c.webcam.Read(&warmup)
	warmup.Close()

	return nil
}

// Next captures a single grayscale frame stamped against the open time.
func (c *Camera) Next() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return Frame{}, fmt.Errorf("camera not opened")
	}

	mat := gocv.NewMat()
	if ok := c.webcam.Read(&mat); !ok {
		mat.Close()
		return Frame{}, fmt.Errorf("failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return Frame{}, fmt.Errorf("captured frame is empty")
	}

	t := time.Since(c.epoch).Seconds()

	if mat.Channels() == 1 {
		return Frame{Time: t, Image: mat}, nil
	}

	gray := gocv.NewMat()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	mat.Close()
	return Frame{Time: t, Image: gray}, nil
}

// ActualResolution returns the resolution the device settled on, which may
// differ from the requested one.
func (c *Camera) ActualResolution() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// ActualFPS returns the frame rate the device settled on.
func (c *Camera) ActualFPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Close releases camera resources.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return nil
	}

	if c.webcam != nil {
		if err := c.webcam.Close(); err != nil {
			c.opened = false
			return fmt.Errorf("closing webcam: %w", err)
		}
	}

	c.opened = false
	return nil
}

// EnumerateCameras attempts to detect available camera devices.
// Returns a list of device IDs that can be opened. Best effort.
func EnumerateCameras(maxDevices int) []int {
	var devices []int

	if maxDevices <= 0 {
		maxDevices = 10
	}

	for i := 0; i < maxDevices; i++ {
		cam, err := gocv.OpenVideoCaptureWithAPI(i, gocv.VideoCaptureV4L2)
		if err != nil {
			continue
		}
		if cam.IsOpened() {
			devices = append(devices, i)
		}
		cam.Close()
	}

	return devices
}
