package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, side   int
		shrinkOnly   bool
		wantW, wantH int
	}{
		{"landscape shrink", 3000, 2000, 1920, false, 1920, 1280},
		{"small enlarged", 800, 600, 1920, false, 1920, 1440},
		{"small kept with shrink only", 800, 600, 1920, true, 800, 600},
		{"large shrunk with shrink only", 3000, 2000, 1920, true, 1920, 1280},
		{"portrait", 1000, 4000, 1000, false, 250, 1000},
		{"square", 500, 500, 100, false, 100, 100},
		{"exact fit", 1920, 1080, 1920, true, 1920, 1080},
		{"one side fits other does not", 1000, 3000, 2000, true, 667, 2000},
		{"thin strip never collapses", 10000, 1, 100, false, 100, 1},
		{"rounding", 1001, 333, 100, false, 100, 33},
		{"degenerate input untouched", 0, 10, 100, false, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.w, tt.h, tt.side, tt.shrinkOnly)
			assert.Equal(t, tt.wantW, w, "width")
			assert.Equal(t, tt.wantH, h, "height")
		})
	}
}

func TestTargetSizeProperties(t *testing.T) {
	for w := 1; w <= 300; w += 7 {
		for h := 1; h <= 300; h += 11 {
			gotW, gotH := TargetSize(w, h, 128, false)
			assert.Equal(t, 128, longest(gotW, gotH))

			// aspect ratio holds within one pixel of rounding
			if w >= h {
				assert.InDelta(t, float64(h)*128/float64(w), float64(gotH), 1)
			} else {
				assert.InDelta(t, float64(w)*128/float64(h), float64(gotW), 1)
			}

			if w <= 128 && h <= 128 {
				sw, sh := TargetSize(w, h, 128, true)
				assert.Equal(t, w, sw)
				assert.Equal(t, h, sh)
			}
		}
	}
}

func TestSharpenSigma(t *testing.T) {
	assert.Equal(t, 0.5, sharpenSigma(100, 200))
	assert.Equal(t, 0.5, sharpenSigma(100, 100))
	assert.InDelta(t, 0.75, sharpenSigma(200, 100), 1e-9)
	assert.Equal(t, 1.5, sharpenSigma(100000, 10))
}
