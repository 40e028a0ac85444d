// Package policy implements action selection policies over discrete
// multi-junction actions
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/natagapova/rl-sumo/utils/floatutils"
)

// Valuer predicts action values. For a single state, Predict returns
// one value per (junction, action) pair laid out junction-major: the
// value of action a at junction j is at index j*actions + a.
type Valuer interface {
	Predict(state []float64) ([]float64, error)
}

// Config configures the exploration schedule of an EGreedy policy
type Config struct {
	Epsilon    float64 `mapstructure:"epsilon"`
	EpsilonMin float64 `mapstructure:"epsilon_min"`
	Decay      float64 `mapstructure:"epsilon_decay"`
}

// Validate checks that the exploration schedule is well formed
func (c Config) Validate() error {
	if c.EpsilonMin < 0 || c.EpsilonMin > c.Epsilon || c.Epsilon > 1 {
		return fmt.Errorf("egreedy: want 0 <= epsilon_min <= epsilon <= 1"+
			"\n\thave(epsilon_min=%v, epsilon=%v)", c.EpsilonMin, c.Epsilon)
	}
	if c.Decay <= 0 || c.Decay > 1 {
		return fmt.Errorf("egreedy: decay must be in (0, 1]\n\thave(%v)",
			c.Decay)
	}
	return nil
}

// EGreedy is an epsilon-greedy policy that selects one action per
// junction. With probability epsilon every junction takes an action
// drawn uniformly at random; otherwise every junction takes the first
// action of maximum predicted value.
type EGreedy struct {
	valuer    Valuer
	junctions int
	actions   int

	epsilon    float64
	epsilonMin float64
	decay      float64

	rng  *rand.Rand
	eval bool
}

// NewEGreedy returns a new EGreedy policy
func NewEGreedy(v Valuer, junctions, actions int, c Config,
	seed uint64) (*EGreedy, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if junctions < 1 || actions < 1 {
		return nil, fmt.Errorf("newegreedy: junctions and actions must be " +
			"positive")
	}

	return &EGreedy{
		valuer:     v,
		junctions:  junctions,
		actions:    actions,
		epsilon:    c.Epsilon,
		epsilonMin: c.EpsilonMin,
		decay:      c.Decay,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// SelectAction selects an action in a state
func (e *EGreedy) SelectAction(state *mat.VecDense) (*mat.VecDense, error) {
	if !e.eval && e.rng.Float64() < e.epsilon {
		action := mat.NewVecDense(e.junctions, nil)
		for j := 0; j < e.junctions; j++ {
			action.SetVec(j, float64(e.rng.Intn(e.actions)))
		}
		return action, nil
	}
	return e.Greedy(state)
}

// Greedy returns the greedy action in a state
func (e *EGreedy) Greedy(state *mat.VecDense) (*mat.VecDense, error) {
	values, err := e.valuer.Predict(state.RawVector().Data)
	if err != nil {
		return nil, fmt.Errorf("greedy: could not predict action values: %w",
			err)
	}
	return Argmax(values, e.junctions, e.actions)
}

// Argmax returns, for each junction, the index of the first action of
// maximum value
func Argmax(values []float64, junctions, actions int) (*mat.VecDense, error) {
	if len(values) != junctions*actions {
		return nil, fmt.Errorf("argmax: invalid number of action values"+
			"\n\twant(%v)\n\thave(%v)", junctions*actions, len(values))
	}

	action := mat.NewVecDense(junctions, nil)
	for j := 0; j < junctions; j++ {
		_, indices := floatutils.MaxSlice(values[j*actions : (j+1)*actions])
		action.SetVec(j, float64(indices[0]))
	}
	return action, nil
}

// Decay decays epsilon once, never below its minimum
func (e *EGreedy) Decay() {
	e.epsilon = math.Max(e.epsilonMin, e.epsilon*e.decay)
}

// Epsilon returns the current exploration rate
func (e *EGreedy) Epsilon() float64 {
	return e.epsilon
}

// SetEpsilon sets the exploration rate, clipped to [epsilon_min, 1]
func (e *EGreedy) SetEpsilon(epsilon float64) {
	e.epsilon = floatutils.Clip(epsilon, e.epsilonMin, 1)
}

// Eval sets the policy to evaluation mode, in which it always acts
// greedily
func (e *EGreedy) Eval() {
	e.eval = true
}

// Train sets the policy to training mode
func (e *EGreedy) Train() {
	e.eval = false
}

// IsEval returns whether the policy is in evaluation mode
func (e *EGreedy) IsEval() bool {
	return e.eval
}
