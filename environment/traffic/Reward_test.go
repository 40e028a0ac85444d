package traffic

import (
	"math"
	"testing"

	"github.com/natagapova/rl-sumo/simulator"
)

func TestMean(t *testing.T) {
	if got := Mean([]float64{2, -1, 4}); math.Abs(got-5.0/3.0) > 1e-12 {
		t.Errorf("mean: want(%v) have(%v)", 5.0/3.0, got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("mean of no rewards: want(0) have(%v)", got)
	}
}

func TestJunctionReward(t *testing.T) {
	w := DefaultRewardWeights()

	j := sampleJunction()
	j.Lanes[0].WaitingTime = 10

	// -0.1*10 - 0.2*2 + 0.5*3 + 1.0*5
	want := 5.1
	if got := w.JunctionReward(j); math.Abs(got-want) > 1e-12 {
		t.Errorf("junction reward: want(%v) have(%v)", want, got)
	}

	if got := w.JunctionReward(simulator.Junction{Throughput: 10}); got != 0 {
		t.Errorf("junction without lanes: want(0) have(%v)", got)
	}
}

func TestRewardIsMeanOfJunctions(t *testing.T) {
	w := RewardWeights{Throughput: 1}

	obs := make([]simulator.Junction, 3)
	for i, tp := range []int{2, -1, 4} {
		obs[i] = simulator.Junction{
			Throughput: tp,
			Lanes:      []simulator.Lane{{Length: 10}},
		}
	}

	if got := w.Reward(obs); math.Abs(got-5.0/3.0) > 1e-12 {
		t.Errorf("reward: want(%v) have(%v)", 5.0/3.0, got)
	}
}
