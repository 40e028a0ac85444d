package environment

import ts "github.com/natagapova/rl-sumo/timestep"

// FunctionEnder ends an episode whenever a function of the current
// TimeStep returns true. The function may also close over state kept
// outside of the TimeStep, such as the status of a simulation.
type FunctionEnder struct {
	end func(*ts.TimeStep) bool
}

// NewFunctionEnder returns a new FunctionEnder which ends episodes
// when f returns true.
func NewFunctionEnder(f func(*ts.TimeStep) bool) Ender {
	return &FunctionEnder{f}
}

// End determines whether or not the current episode should be ended.
// If the episode should be ended, End() will modify the timestep so
// that its StepType field is timestep.Last.
func (f *FunctionEnder) End(t *ts.TimeStep) bool {
	if f.end(t) {
		t.StepType = ts.Last
		return true
	}
	return false
}
