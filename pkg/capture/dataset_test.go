//go:build cgo
// +build cgo

package capture

import (
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func writeTestImage(t *testing.T, path string, v uint8) {
	t.Helper()

	img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC1)
	defer img.Close()
	gocv.Rectangle(&img, image.Rect(8, 8, 40, 40), color.RGBA{R: v, G: v, B: v}, -1)

	if ok := gocv.IMWrite(path, img); !ok {
		t.Fatalf("failed to write %s", path)
	}
}

func TestDatasetPlayback(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "000002.png"), 200)
	writeTestImage(t, filepath.Join(dir, "000000.png"), 100)
	writeTestImage(t, filepath.Join(dir, "000001.png"), 150)

	ds, err := NewDataset(dir, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()

	if ds.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", ds.Len())
	}

	wantTimes := []float64{0, 0.1, 0.2}
	for i, want := range wantTimes {
		frame, err := ds.Next()
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if frame.Time != want {
			t.Errorf("frame %d: expected t=%f, got %f", i, want, frame.Time)
		}
		if frame.Image.Empty() {
			t.Errorf("frame %d: empty image", i)
		}
		if frame.Image.Channels() != 1 {
			t.Errorf("frame %d: expected grayscale, got %d channels", i, frame.Image.Channels())
		}
		frame.Image.Close()
	}

	if _, err := ds.Next(); err != io.EOF {
		t.Errorf("expected io.EOF at the end, got %v", err)
	}
}

func TestDatasetEmptyDir(t *testing.T) {
	if _, err := NewDataset(t.TempDir(), 10); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestDatasetInvalidFPS(t *testing.T) {
	if _, err := NewDataset(t.TempDir(), 0); err == nil {
		t.Error("expected error for zero fps")
	}
}

func TestCameraReadWithoutOpen(t *testing.T) {
	cam := NewCamera()
	if _, err := cam.Next(); err == nil {
		t.Error("expected error when reading from unopened camera")
	}
}

func TestCameraCloseUnopened(t *testing.T) {
	cam := NewCamera()
	if err := cam.Close(); err != nil {
		t.Errorf("close of unopened camera failed: %v", err)
	}
}

func TestEnumerateCameras(t *testing.T) {
	devices := EnumerateCameras(3)
	// No camera may exist in CI; the call just must not panic.
	t.Logf("found %d camera device(s): %v", len(devices), devices)
}
