// Package traffic implements an environment.Environment that controls
// the traffic lights of a simulator.Simulator. Every junction receives
// one discrete action, the index of the phase it should display.
package traffic

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/natagapova/rl-sumo/environment"
	"github.com/natagapova/rl-sumo/simulator"
	ts "github.com/natagapova/rl-sumo/timestep"
)

// Config configures a traffic-signal environment
type Config struct {
	// JunctionIDs lists the controlled junctions in action order. If
	// empty, every traffic light reported by the simulator is used.
	JunctionIDs  []string `mapstructure:"junction_ids"`
	NumJunctions int      `mapstructure:"num_junctions"`

	// ActionDim is the number of phases an agent may choose from at
	// each junction
	ActionDim int `mapstructure:"action_dim"`

	// ActionRepeat is the number of simulator ticks per environment step
	ActionRepeat int `mapstructure:"action_repeat"`

	// MaxSteps is the environment step ceiling of an episode
	MaxSteps int `mapstructure:"max_steps"`

	Features       []string `mapstructure:"features"`
	JamDensity     float64  `mapstructure:"jam_density"`
	MaxWaitingTime float64  `mapstructure:"max_waiting_time"`
}

// Validate checks the Config for values that can never produce a
// working environment
func (c Config) Validate() error {
	if c.ActionDim < 1 {
		return fmt.Errorf("traffic: action dimension must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.ActionDim)
	}
	if c.ActionRepeat < 1 {
		return fmt.Errorf("traffic: action repeat must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.ActionRepeat)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("traffic: episodes must have a step ceiling"+
			"\n\twant(>0)\n\thave(%v)", c.MaxSteps)
	}
	if c.NumJunctions < 0 {
		return fmt.Errorf("traffic: number of junctions must be "+
			"non-negative\n\thave(%v)", c.NumJunctions)
	}
	if len(c.JunctionIDs) > 0 && c.NumJunctions > 0 &&
		len(c.JunctionIDs) != c.NumJunctions {
		return fmt.Errorf("traffic: invalid number of junction ids"+
			"\n\twant(%v)\n\thave(%v)", c.NumJunctions, len(c.JunctionIDs))
	}
	return nil
}

// Env is a traffic-signal control environment. It owns its simulator
// handle for the lifetime of the Env; Close closes the simulator.
type Env struct {
	sim       simulator.Simulator
	junctions []string
	encoder   *Encoder
	weights   RewardWeights
	actionDim int
	repeat    int
	enders    []environment.Ender

	status simulator.Status
	last   ts.TimeStep
	log    logrus.FieldLogger
}

// New returns a new traffic-signal environment. The controlled
// junctions are resolved against the simulator, and each must expose
// at least ActionDim phases.
func New(ctx context.Context, sim simulator.Simulator, c Config,
	weights RewardWeights, log logrus.FieldLogger) (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	junctions, err := resolveJunctions(ctx, sim, c)
	if err != nil {
		return nil, err
	}

	encoder, err := NewEncoder(len(junctions), c.Features, c.JamDensity,
		c.MaxWaitingTime)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	e := &Env{
		sim:       sim,
		junctions: junctions,
		encoder:   encoder,
		weights:   weights,
		actionDim: c.ActionDim,
		repeat:    c.ActionRepeat,
		log:       log,
	}
	e.enders = []environment.Ender{
		environment.NewFunctionEnder(e.drained),
		environment.NewStepLimit(c.MaxSteps),
	}

	log.WithFields(logrus.Fields{
		"junctions":  junctions,
		"features":   encoder.Features(),
		"action_dim": c.ActionDim,
	}).Info("traffic environment ready")

	return e, nil
}

// resolveJunctions returns the controlled junctions in action order
func resolveJunctions(ctx context.Context, sim simulator.Simulator,
	c Config) ([]string, error) {
	lights, err := sim.TrafficLights(ctx)
	if err != nil {
		return nil, fmt.Errorf("new: could not list traffic lights: %w", err)
	}

	junctions := c.JunctionIDs
	if len(junctions) == 0 {
		junctions = lights
	}
	if len(junctions) == 0 {
		return nil, fmt.Errorf("new: simulator has no traffic lights")
	}
	if c.NumJunctions > 0 && len(junctions) != c.NumJunctions {
		return nil, fmt.Errorf("new: invalid number of junctions"+
			"\n\twant(%v)\n\thave(%v)", c.NumJunctions, len(junctions))
	}
	if dup := lo.FindDuplicates(junctions); len(dup) > 0 {
		return nil, fmt.Errorf("new: duplicate junctions %v", dup)
	}

	for _, id := range junctions {
		if !lo.Contains(lights, id) {
			return nil, fmt.Errorf("new: %w %q", simulator.ErrUnknownJunction,
				id)
		}
		j, err := sim.Junction(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("new: could not observe junction %v: %w",
				id, err)
		}
		if j.NumPhases < c.ActionDim {
			return nil, fmt.Errorf("new: junction %v has too few phases"+
				"\n\twant(>=%v)\n\thave(%v)", id, c.ActionDim, j.NumPhases)
		}
	}

	return append([]string(nil), junctions...), nil
}

// drained returns whether the simulated population has left the
// network
func (e *Env) drained(*ts.TimeStep) bool {
	return e.status.Expected <= 0
}

// Junctions returns the IDs of the controlled junctions in action order
func (e *Env) Junctions() []string {
	return append([]string(nil), e.junctions...)
}

// Encoder returns the Encoder used to build States
func (e *Env) Encoder() *Encoder {
	return e.encoder
}

// Info returns the simulator status observed at the last Reset or Step
func (e *Env) Info() simulator.Status {
	return e.status
}

// LastTimeStep returns the last TimeStep returned by the Env
func (e *Env) LastTimeStep() ts.TimeStep {
	return e.last
}

// Reset restarts the simulation, advances it by a single tick, and
// returns the first TimeStep of a new episode
func (e *Env) Reset(ctx context.Context) (ts.TimeStep, error) {
	if err := e.sim.Load(ctx); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not load simulation: "+
			"%w", err)
	}
	if err := e.sim.Step(ctx); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not step simulation: "+
			"%w", err)
	}

	obs, err := e.observe(ctx)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}
	state, err := e.encoder.Encode(obs)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}

	e.last = ts.New(ts.First, 0, 1, state, 0)
	return e.last, nil
}

// Step commands the phase of every junction, advances the simulation
// ActionRepeat ticks, and returns the resulting TimeStep along with
// whether the episode has ended. The episode ends when the simulated
// population has drained or the step ceiling is reached.
func (e *Env) Step(ctx context.Context, action *mat.VecDense) (ts.TimeStep,
	bool, error) {
	if action == nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: nil action")
	}
	if !e.ActionSpec().Contains(action) {
		return ts.TimeStep{}, false, fmt.Errorf("step: invalid action %v for "+
			"%v junctions with %v phases", mat.Formatted(action.T()),
			len(e.junctions), e.actionDim)
	}

	for i, id := range e.junctions {
		if err := e.sim.SetPhase(ctx, id, int(action.AtVec(i))); err != nil {
			return ts.TimeStep{}, false, fmt.Errorf("step: could not set "+
				"phase of %v: %w", id, err)
		}
	}

	for i := 0; i < e.repeat; i++ {
		if err := e.sim.Step(ctx); err != nil {
			return ts.TimeStep{}, false, fmt.Errorf("step: could not step "+
				"simulation: %w", err)
		}
	}

	obs, err := e.observe(ctx)
	if err != nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}
	state, err := e.encoder.Encode(obs)
	if err != nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}
	reward := e.weights.Reward(obs)

	step := ts.New(ts.Mid, reward, 1, state, e.last.Number+1)
	done := environment.End(&step, e.enders...)
	if done {
		step.Discount = 0
	}

	e.last = step
	return step, done, nil
}

// observe queries every controlled junction and the simulation status
func (e *Env) observe(ctx context.Context) ([]simulator.Junction, error) {
	obs := make([]simulator.Junction, len(e.junctions))
	for i, id := range e.junctions {
		j, err := e.sim.Junction(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("could not observe junction %v: %w", id, err)
		}
		obs[i] = j
	}

	status, err := e.sim.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get simulation status: %w", err)
	}
	e.status = status

	return obs, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (e *Env) ObservationSpec() environment.Spec {
	n := e.encoder.Len()
	upper := make([]float64, n)
	for i := range upper {
		upper[i] = 1
	}

	return environment.NewSpec(
		mat.NewVecDense(n, nil),
		environment.Observation,
		mat.NewVecDense(n, nil),
		mat.NewVecDense(n, upper),
		environment.Continuous,
	)
}

// ActionSpec returns the action specification of the environment. The
// action holds one phase index per junction.
func (e *Env) ActionSpec() environment.Spec {
	n := len(e.junctions)
	upper := make([]float64, n)
	for i := range upper {
		upper[i] = float64(e.actionDim - 1)
	}

	return environment.NewSpec(
		mat.NewVecDense(n, nil),
		environment.Action,
		mat.NewVecDense(n, nil),
		mat.NewVecDense(n, upper),
		environment.Discrete,
	)
}

// Close closes the underlying simulator
func (e *Env) Close() error {
	return e.sim.Close()
}
