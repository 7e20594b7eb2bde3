//go:build cgo
// +build cgo

package capture

import (
	"runtime"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// escKey closes the display when pressed in the window.
const escKey = 27

// OverlayFunc returns a snapshot of the current track overlay, or an empty
// Mat when nothing has been rendered yet. The display owns and closes the
// returned Mat.
type OverlayFunc func() gocv.Mat

// TrackDisplay paces an OpenCV window off the tracking pipeline: instead of
// having the consumer push frames, the display pulls the latest overlay at
// its own refresh rate, so a slow window can never back-pressure the
// tracker. OpenCV UI calls must stay on one OS thread on Linux/X11; the
// display keeps them on its own goroutine and only exchanges Mats through
// the overlay callback.
type TrackDisplay struct {
	fetch    OverlayFunc
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewTrackDisplay opens a window refreshing at the given rate from fetch.
// A non-positive fps falls back to 30.
func NewTrackDisplay(title string, fps int, fetch OverlayFunc) *TrackDisplay {
	if fps <= 0 {
		fps = 30
	}
	d := &TrackDisplay{
		fetch:    fetch,
		interval: time.Second / time.Duration(fps),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go d.run(title)
	return d
}

func (d *TrackDisplay) run(title string) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window := gocv.NewWindow(title)
	defer func() {
		window.Close()
		close(d.doneCh)
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			img := d.fetch()
			if !img.Empty() {
				window.IMShow(img)
				if window.WaitKey(1) == escKey {
					img.Close()
					return
				}
			}
			img.Close()
		}
	}
}

// Close shuts the window down and waits for the UI goroutine to exit. Safe
// to call more than once, and also after the user closed the window with
// the escape key.
func (d *TrackDisplay) Close() error {
	d.once.Do(func() { close(d.stopCh) })
	<-d.doneCh
	return nil
}
