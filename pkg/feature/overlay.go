//go:build cgo
// +build cgo

package feature

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/viofeat/viofeat/pkg/geometry"
)

// drawTrack renders the debug overlay: the left frame (or left|right
// side by side), active landmarks as circles colored red (new) through
// blue (age 20+), right-eye matches in yellow offset by the image width,
// and green arrows from current to previous positions.
func (t *Tracker) drawTrack(cur, rightImg gocv.Mat, stereo bool, rightPts []geometry.Point2f) {
	canvas := gocv.NewMat()
	if stereo {
		gocv.Hconcat(cur, rightImg, &canvas)
	} else {
		cur.CopyTo(&canvas)
	}
	gocv.CvtColor(canvas, &canvas, gocv.ColorGrayToBGR)

	for i := 0; i < t.store.Len(); i++ {
		lm := t.store.At(i)
		blend := math.Min(1, float64(lm.Age)/20)
		col := color.RGBA{
			R: uint8(255 * (1 - blend)),
			B: uint8(255 * blend),
		}
		gocv.Circle(&canvas, pixelPt(lm.Px), 2, col, 2)
	}

	if stereo {
		for _, p := range rightPts {
			pt := image.Pt(int(math.Round(float64(p.X)))+t.cols, int(math.Round(float64(p.Y))))
			gocv.Circle(&canvas, pt, 2, color.RGBA{R: 255, G: 255}, 2)
		}
	}

	for i := 0; i < t.store.Len(); i++ {
		lm := t.store.At(i)
		if lm.Age > 1 {
			gocv.ArrowedLine(&canvas, pixelPt(lm.Px), pixelPt(lm.PrevPx), color.RGBA{G: 255}, 1)
		}
	}

	old := t.trackImg
	t.trackImg = canvas
	old.Close()
}

// TrackImage returns the most recent overlay. The Mat stays owned by the
// tracker and is overwritten on the next frame; clone it to retain.
func (t *Tracker) TrackImage() gocv.Mat { return t.trackImg }

func pixelPt(p geometry.Point2f) image.Point {
	return image.Pt(int(math.Round(float64(p.X))), int(math.Round(float64(p.Y))))
}
