package tracker

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/natagapova/rl-sumo/timestep"
)

func episode(rewards ...float64) []ts.TimeStep {
	obs := mat.NewVecDense(1, nil)
	steps := []ts.TimeStep{ts.New(ts.First, 0, 1, obs, 0)}
	for i, r := range rewards {
		kind := ts.Mid
		if i == len(rewards)-1 {
			kind = ts.Last
		}
		steps = append(steps, ts.New(kind, r, 1, obs, i+1))
	}
	return steps
}

func TestReturnAndLength(t *testing.T) {
	dir := t.TempDir()
	ret := NewReturn(filepath.Join(dir, "return.bin"))
	length := NewEpisodeLength(filepath.Join(dir, "length.bin"))

	for _, steps := range [][]ts.TimeStep{episode(1, 2, 3), episode(-1, 0.5)} {
		for _, step := range steps {
			ret.Track(step)
			length.Track(step)
		}
	}

	returns := ret.Returns()
	if len(returns) != 2 || returns[0] != 6 || returns[1] != -0.5 {
		t.Errorf("returns: want([6 -0.5]) have(%v)", returns)
	}
	lengths := length.Lengths()
	if len(lengths) != 2 || lengths[0] != 3 || lengths[1] != 2 {
		t.Errorf("lengths: want([3 2]) have(%v)", lengths)
	}

	if err := ret.Save(); err != nil {
		t.Fatal(err)
	}
	if err := length.Save(); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadData(filepath.Join(dir, "return.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 || loaded[0] != 6 {
		t.Errorf("loaded returns: have(%v)", loaded)
	}
}

func TestReturnPanicsOnGap(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for non-sequential timesteps")
		}
	}()

	ret := NewReturn("unused")
	steps := episode(1, 2, 3)
	ret.Track(steps[0])
	ret.Track(steps[2])
}
