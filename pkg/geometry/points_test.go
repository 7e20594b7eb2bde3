package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDist(t *testing.T) {
	assert.Equal(t, 5.0, Dist(Point2f{0, 0}, Point2f{3, 4}))
	assert.Equal(t, 0.0, Dist(Point2f{1.5, -2}, Point2f{1.5, -2}))
}

func TestInBorder(t *testing.T) {
	tests := []struct {
		name string
		p    Point2f
		want bool
	}{
		{"center", Point2f{320, 240}, true},
		{"on left edge", Point2f{0, 240}, false},
		{"one pixel in", Point2f{1, 1}, true},
		{"right edge", Point2f{639, 240}, false},
		{"last valid column", Point2f{638, 240}, true},
		{"rounds out of border", Point2f{638.6, 240}, false},
		{"bottom edge", Point2f{320, 479}, false},
		{"negative", Point2f{-3, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InBorder(tt.p, 640, 480))
		})
	}
}

func TestFilter(t *testing.T) {
	pts := []Point2f{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	keep := []bool{true, false, true, false}

	got := Filter(pts, keep)
	assert.Equal(t, []Point2f{{1, 1}, {3, 3}}, got)
	assert.Len(t, pts, 4, "input must not be modified")
}

func TestCountTrue(t *testing.T) {
	assert.Equal(t, 0, CountTrue(nil))
	assert.Equal(t, 2, CountTrue([]bool{true, false, true}))
}
