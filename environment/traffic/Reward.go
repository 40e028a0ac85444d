package traffic

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/natagapova/rl-sumo/simulator"
)

// RewardWeights weighs the terms of the per-junction reward. Penalties
// carry their sign in the weight.
type RewardWeights struct {
	Waiting    float64 `mapstructure:"waiting"`
	Halting    float64 `mapstructure:"halting"`
	Throughput float64 `mapstructure:"throughput"`
	Speed      float64 `mapstructure:"speed"`
}

// DefaultRewardWeights returns the default reward weights
func DefaultRewardWeights() RewardWeights {
	return RewardWeights{
		Waiting:    -0.1,
		Halting:    -0.2,
		Throughput: 0.5,
		Speed:      1.0,
	}
}

// JunctionReward returns the reward of a single junction: the weighted
// sum of its total waiting time, total halted vehicles, throughput and
// mean lane speed. A junction with no incoming lanes has reward 0.
func (w RewardWeights) JunctionReward(j simulator.Junction) float64 {
	if len(j.Lanes) == 0 {
		return 0
	}

	waiting := lo.SumBy(j.Lanes, func(l simulator.Lane) float64 {
		return l.WaitingTime
	})
	halting := lo.SumBy(j.Lanes, func(l simulator.Lane) int {
		return l.Halting
	})
	speed := lo.SumBy(j.Lanes, func(l simulator.Lane) float64 {
		return l.MeanSpeed
	}) / float64(len(j.Lanes))

	return w.Waiting*waiting + w.Halting*float64(halting) +
		w.Throughput*float64(j.Throughput) + w.Speed*speed
}

// Reward returns the global reward, the mean of the junction rewards
func (w RewardWeights) Reward(obs []simulator.Junction) float64 {
	return Mean(lo.Map(obs, func(j simulator.Junction, _ int) float64 {
		return w.JunctionReward(j)
	}))
}

// Mean returns the arithmetic mean of rewards, or 0 if there are none
func Mean(rewards []float64) float64 {
	if len(rewards) == 0 {
		return 0
	}
	return stat.Mean(rewards, nil)
}
