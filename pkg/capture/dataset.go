//go:build cgo
// +build cgo

package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
)

// Dataset replays a directory of image files in lexical order with
// synthetic timestamps derived from a fixed frame rate. Image sequences
// from benchmark datasets name files by capture time, so lexical order is
// temporal order.
type Dataset struct {
	paths []string
	fps   float64
	pos   int
}

// NewDataset scans dir for image files. fps controls the synthetic
// timestamps: frame i is stamped i/fps seconds.
func NewDataset(dir string, fps float64) (*Dataset, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("dataset fps must be positive, got %f", fps)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".pgm", ".bmp":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(paths)

	return &Dataset{paths: paths, fps: fps}, nil
}

// Len returns the number of frames in the dataset.
func (d *Dataset) Len() int { return len(d.paths) }

// Next loads the next frame. Returns io.EOF when the sequence ends.
func (d *Dataset) Next() (Frame, error) {
	if d.pos >= len(d.paths) {
		return Frame{}, io.EOF
	}

	path := d.paths[d.pos]
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		img.Close()
		return Frame{}, fmt.Errorf("unreadable image %s", path)
	}

	t := float64(d.pos) / d.fps
	d.pos++
	return Frame{Time: t, Image: img}, nil
}

// Close is a no-op; datasets hold no OS resources between frames.
func (d *Dataset) Close() error { return nil }
