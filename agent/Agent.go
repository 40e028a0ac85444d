// Package agent defines an agent interface
package agent

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/natagapova/rl-sumo/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy and Learner share the
// same weights, so that any changes the Learner makes are reflected in
// the actions the Policy chooses.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Observe records a transition for later learning
	Observe(t ts.Transition) error

	// Step attempts a single update to the learner and returns whether
	// an update took place. Having too little experience to learn from
	// is not an error.
	Step() (bool, error)

	// SyncTarget copies the learned weights into the target weights
	SyncTarget() error
}

// Policy represents a policy that an agent can have.
type Policy interface {
	SelectAction(state *mat.VecDense) (*mat.VecDense, error)
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Persistent is an Agent whose learned weights can be saved to and
// loaded from disk
type Persistent interface {
	Agent
	Save(path string) error
	Load(path string) error
}

// Closer is an agent that must be closed after it is done learning
type Closer interface {
	Agent
	Close() error
}
