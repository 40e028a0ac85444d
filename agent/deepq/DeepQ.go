// Package deepq implements a deep Q-learning agent that controls many
// junctions with a single network. The network predicts one value per
// (junction, action) pair, and every junction acts on its own slice of
// the output.
package deepq

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/natagapova/rl-sumo/agent/policy"
	"github.com/natagapova/rl-sumo/expreplay"
	"github.com/natagapova/rl-sumo/network"
	ts "github.com/natagapova/rl-sumo/timestep"
)

// DeepQ implements the deep Q-learning algorithm with a target network
// and uniform experience replay, using the MSE loss over the values of
// the actions taken.
type DeepQ struct {
	junctions int
	actions   int
	features  int
	gamma     float64
	batchSize int

	// Network whose weights are learned. Its graph holds the loss.
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     G.Solver
	targets    *G.Node // Regression targets of the taken actions
	mask       *G.Node // 1 at the taken actions, 0 elsewhere
	lossVal    G.Value

	// Copy of trainNet with batch size 1 used for acting
	behaviour *network.Predictor

	// Target network providing max_a' Q(s', a') for a batch
	target *network.Predictor

	policy *policy.EGreedy
	replay expreplay.ExperienceReplayer

	gradientSteps int
	lastLoss      float64
}

// New creates and returns a new DeepQ agent for the given number of
// junctions, actions per junction, and observation features
func New(junctions, actions, features int, c Config) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if junctions < 1 || actions < 1 || features < 1 {
		return nil, fmt.Errorf("deepq: junctions, actions, and features "+
			"must be positive\n\thave(%v, %v, %v)", junctions, actions,
			features)
	}

	init, err := c.InitWFn.Create()
	if err != nil {
		return nil, fmt.Errorf("deepq: %v", err)
	}
	activations, err := c.activations()
	if err != nil {
		return nil, fmt.Errorf("deepq: %v", err)
	}
	outputs := junctions * actions

	// Network for learning weights
	g := G.NewGraph()
	trainNet, err := network.NewMultiHeadMLP(features, c.BatchSize, outputs,
		g, c.HiddenSizes, c.biases(), init, activations)
	if err != nil {
		return nil, fmt.Errorf("deepq: could not create learning "+
			"network: %v", err)
	}

	d := &DeepQ{
		junctions: junctions,
		actions:   actions,
		features:  features,
		gamma:     c.Gamma,
		batchSize: c.BatchSize,
		trainNet:  trainNet,
	}

	// Mean squared error over every output, where outputs of actions
	// that were not taken are masked out
	d.targets = G.NewMatrix(g, tensor.Float64,
		G.WithShape(c.BatchSize, outputs), G.WithName("targets"))
	d.mask = G.NewMatrix(g, tensor.Float64,
		G.WithShape(c.BatchSize, outputs), G.WithName("mask"))
	errs := G.Must(G.Sub(trainNet.Prediction(), d.targets))
	errs = G.Must(G.HadamardProd(errs, d.mask))
	loss := G.Must(G.Mean(G.Must(G.Square(errs))))
	G.Read(loss, &d.lossVal)

	if _, err := G.Grad(loss, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("deepq: could not compute gradient: %v", err)
	}
	d.trainNetVM = G.NewTapeMachine(g,
		G.BindDualValues(trainNet.Learnables()...))

	// The loss is already a mean, so the solver does not rescale it
	d.solver, err = c.Solver.Create(1)
	if err != nil {
		return nil, fmt.Errorf("deepq: %v", err)
	}

	behaviourNet, err := trainNet.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("deepq: could not create behaviour "+
			"network: %v", err)
	}
	d.behaviour = network.NewPredictor(behaviourNet)

	targetNet, err := trainNet.CloneWithBatch(c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("deepq: could not create target network: %v",
			err)
	}
	d.target = network.NewPredictor(targetNet)

	d.policy, err = policy.NewEGreedy(d, junctions, actions, c.Policy, c.Seed)
	if err != nil {
		return nil, err
	}

	d.replay, err = expreplay.Config{
		Capacity: c.ReplayCapacity,
		Seed:     c.Seed + 1,
	}.Create(features, junctions)
	if err != nil {
		return nil, fmt.Errorf("deepq: could not create experience replay "+
			"buffer: %v", err)
	}

	return d, nil
}

// Observe records a transition in the replay buffer
func (d *DeepQ) Observe(t ts.Transition) error {
	return d.replay.Add(t)
}

// Step performs a single gradient step on a batch sampled from the
// replay buffer, then copies the new weights to the behaviour network
// and decays epsilon. No step is taken while the buffer holds fewer
// transitions than the batch size.
func (d *DeepQ) Step() (bool, error) {
	batch, err := d.replay.Sample(d.batchSize)
	if expreplay.IsInsufficientSamples(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("step: %v", err)
	}

	states := make([]float64, 0, d.batchSize*d.features)
	nextStates := make([]float64, 0, d.batchSize*d.features)
	for _, t := range batch {
		states = append(states, t.State.RawVector().Data...)
		nextStates = append(nextStates, t.NextState.RawVector().Data...)
	}

	nextValues, err := d.target.Predict(nextStates)
	if err != nil {
		return false, fmt.Errorf("step: could not predict next state "+
			"values: %v", err)
	}
	targets, mask, err := BellmanTargets(batch, nextValues, d.junctions,
		d.actions, d.gamma)
	if err != nil {
		return false, fmt.Errorf("step: %v", err)
	}

	if err := d.trainNet.SetInput(states); err != nil {
		return false, fmt.Errorf("step: could not set input: %v", err)
	}
	shape := tensor.WithShape(d.batchSize, d.junctions*d.actions)
	err = G.Let(d.targets, tensor.New(shape, tensor.WithBacking(targets)))
	if err != nil {
		return false, fmt.Errorf("step: could not set targets: %v", err)
	}
	err = G.Let(d.mask, tensor.New(shape, tensor.WithBacking(mask)))
	if err != nil {
		return false, fmt.Errorf("step: could not set mask: %v", err)
	}

	if err := d.trainNetVM.RunAll(); err != nil {
		d.trainNetVM.Reset()
		return false, fmt.Errorf("step: %v", err)
	}
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		d.trainNetVM.Reset()
		return false, fmt.Errorf("step: could not update weights: %v", err)
	}
	d.trainNetVM.Reset()

	if loss, ok := d.lossVal.Data().(float64); ok {
		d.lastLoss = loss
	}
	d.gradientSteps++

	if err := d.behaviour.Net().Set(d.trainNet); err != nil {
		return true, fmt.Errorf("step: could not update behaviour "+
			"network: %v", err)
	}
	d.policy.Decay()

	return true, nil
}

// SyncTarget copies the learned weights into the target network
func (d *DeepQ) SyncTarget() error {
	if err := d.target.Net().Set(d.trainNet); err != nil {
		return fmt.Errorf("synctarget: %v", err)
	}
	return nil
}

// Predict returns the action values of the behaviour network for a
// single state, laid out junction-major
func (d *DeepQ) Predict(state []float64) ([]float64, error) {
	if len(state) != d.features {
		return nil, fmt.Errorf("predict: invalid state length\n\twant(%v)"+
			"\n\thave(%v)", d.features, len(state))
	}
	return d.behaviour.Predict(state)
}

// TargetPredict returns the action values of the target network for a
// single state
func (d *DeepQ) TargetPredict(state []float64) ([]float64, error) {
	if len(state) != d.features {
		return nil, fmt.Errorf("targetpredict: invalid state length"+
			"\n\twant(%v)\n\thave(%v)", d.features, len(state))
	}
	return d.target.Predict(state)
}

// SelectAction selects one action per junction with the epsilon-greedy
// behaviour policy, or greedily in evaluation mode
func (d *DeepQ) SelectAction(state *mat.VecDense) (*mat.VecDense, error) {
	if state == nil || state.Len() != d.features {
		return nil, fmt.Errorf("selectaction: invalid state")
	}
	return d.policy.SelectAction(state)
}

// Epsilon returns the current exploration rate
func (d *DeepQ) Epsilon() float64 {
	return d.policy.Epsilon()
}

// Eval sets the agent into evaluation mode
func (d *DeepQ) Eval() {
	d.policy.Eval()
}

// Train sets the agent into training mode
func (d *DeepQ) Train() {
	d.policy.Train()
}

// IsEval returns whether the agent is in evaluation mode
func (d *DeepQ) IsEval() bool {
	return d.policy.IsEval()
}

// LastLoss returns the loss of the most recent gradient step
func (d *DeepQ) LastLoss() float64 {
	return d.lastLoss
}

// GradientSteps returns the number of gradient steps taken
func (d *DeepQ) GradientSteps() int {
	return d.gradientSteps
}

// ReplayLen returns the number of transitions in the replay buffer
func (d *DeepQ) ReplayLen() int {
	return d.replay.Len()
}

// Save writes the learned weights to path
func (d *DeepQ) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := network.Encode(f, d.trainNet); err != nil {
		f.Close()
		return fmt.Errorf("save: %v", err)
	}
	return f.Close()
}

// Load replaces the learned weights with those saved at path. The
// behaviour and target networks are synchronised with the loaded
// weights.
func (d *DeepQ) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer f.Close()

	net, err := network.Decode(f)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	if net.Features() != d.features || net.Outputs() != d.junctions*d.actions {
		return fmt.Errorf("load: incompatible network\n\twant(%v features, "+
			"%v outputs)\n\thave(%v features, %v outputs)", d.features,
			d.junctions*d.actions, net.Features(), net.Outputs())
	}

	if err := d.trainNet.Set(net); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	if err := d.behaviour.Net().Set(d.trainNet); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return d.SyncTarget()
}

// Close releases the VMs of the agent's networks
func (d *DeepQ) Close() error {
	errs := []error{d.trainNetVM.Close(), d.behaviour.Close(), d.target.Close()}
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
