package floatutils

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	unit := r1.Interval{Min: 0, Max: 1}
	tests := []struct{ in, want float64 }{
		{-0.5, 0}, {0.25, 0.25}, {3, 1},
	}
	for _, test := range tests {
		if got := ClipInterval(test.in, unit); got != test.want {
			t.Errorf("clip(%v): want(%v) have(%v)", test.in, test.want, got)
		}
	}
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{3, 1, 3, 2})
	if max != 3 {
		t.Errorf("max: want(3) have(%v)", max)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("indices: want([0 2]) have(%v)", indices)
	}
}
