//go:build cgo
// +build cgo

// Package capture provides the image sources feeding the tracking node: a
// live OpenCV camera and an image-directory dataset player, plus a debug
// display that pulls the tracker overlay into an OpenCV window.
package capture

import "gocv.io/x/gocv"

// Frame is one timestamped grayscale image. The receiver owns the Mat and
// must close it.
type Frame struct {
	// Time is the capture timestamp in seconds.
	Time float64
	// Image is a single-channel 8-bit grayscale image.
	Image gocv.Mat
}

// Source produces a stream of frames. Next returns io.EOF when the source
// is exhausted.
type Source interface {
	Next() (Frame, error)
	Close() error
}
