// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{t, r, d, o, n}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}

// Transition is a single (s, a, r, s', done) tuple of experience. The
// action holds one discrete phase index per junction, stored as a float.
type Transition struct {
	State     *mat.VecDense
	Action    *mat.VecDense
	Reward    float64
	NextState *mat.VecDense
	Done      bool
}

// NewTransition returns a Transition that owns copies of its vectors,
// so that later changes to the arguments are not seen by the Transition.
func NewTransition(state, action *mat.VecDense, reward float64,
	next *mat.VecDense, done bool) Transition {
	return Transition{
		State:     mat.VecDenseCopyOf(state),
		Action:    mat.VecDenseCopyOf(action),
		Reward:    reward,
		NextState: mat.VecDenseCopyOf(next),
		Done:      done,
	}
}

// Copy returns a deep copy of the Transition
func (t Transition) Copy() Transition {
	return NewTransition(t.State, t.Action, t.Reward, t.NextState, t.Done)
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.3f  |  Done: %v",
		mat.Formatted(t.Action.T()), t.Reward, t.Done)
}
