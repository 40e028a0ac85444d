package deepq

import (
	"fmt"

	ts "github.com/natagapova/rl-sumo/timestep"
	"github.com/natagapova/rl-sumo/utils/floatutils"
)

// BellmanTargets computes the regression targets of a batch of
// transitions. For transition i and junction j with taken action a:
//
//	target[i][j][a] = r_i                                  if done
//	target[i][j][a] = r_i + γ * max_a' Q_target(s'_i)[j][a'] otherwise
//
// The reward of a transition is a single scalar shared by every
// junction. nextValues holds the target network's predictions for the
// next states, junctions*actions values per transition. The returned
// mask is 1 exactly at the taken actions, and targets are 0 elsewhere.
func BellmanTargets(batch []ts.Transition, nextValues []float64,
	junctions, actions int, gamma float64) (targets, mask []float64,
	err error) {
	outputs := junctions * actions
	if len(nextValues) != len(batch)*outputs {
		return nil, nil, fmt.Errorf("bellmantargets: invalid number of "+
			"next state values\n\twant(%v)\n\thave(%v)", len(batch)*outputs,
			len(nextValues))
	}

	targets = make([]float64, len(batch)*outputs)
	mask = make([]float64, len(batch)*outputs)
	for i, t := range batch {
		if t.Action.Len() != junctions {
			return nil, nil, fmt.Errorf("bellmantargets: transition %v has "+
				"invalid action length\n\twant(%v)\n\thave(%v)", i, junctions,
				t.Action.Len())
		}

		for j := 0; j < junctions; j++ {
			a := int(t.Action.AtVec(j))
			if a < 0 || a >= actions {
				return nil, nil, fmt.Errorf("bellmantargets: transition %v "+
					"has invalid action %v at junction %v", i, a, j)
			}

			target := t.Reward
			if !t.Done {
				start := i*outputs + j*actions
				max, _ := floatutils.MaxSlice(nextValues[start : start+actions])
				target += gamma * max
			}

			index := i*outputs + j*actions + a
			targets[index] = target
			mask[index] = 1
		}
	}

	return targets, mask, nil
}
