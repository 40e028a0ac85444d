// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"context"

	"gonum.org/v1/gonum/mat"

	ts "github.com/natagapova/rl-sumo/timestep"
)

// Environment implements a simulated environment. Calls to Reset and
// Step may block on an external simulation, and a failure of that
// simulation is returned as an error.
type Environment interface {
	// Reset starts a new episode and returns its first TimeStep
	Reset(ctx context.Context) (ts.TimeStep, error)

	// Step applies an action and returns the resulting TimeStep and
	// whether the episode has ended
	Step(ctx context.Context, action *mat.VecDense) (ts.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec
}

// Ender determines when episodes should end
type Ender interface {
	// End returns whether the episode should end at the argument
	// TimeStep. If so, the TimeStep's StepType is set to timestep.Last.
	End(*ts.TimeStep) bool
}

// End checks each Ender in order and returns whether any of them ended
// the episode. Enders after the first that fires are not consulted.
func End(t *ts.TimeStep, enders ...Ender) bool {
	for _, ender := range enders {
		if ender.End(t) {
			return true
		}
	}
	return false
}
