package deepq

import (
	"fmt"

	"github.com/natagapova/rl-sumo/agent/policy"
	"github.com/natagapova/rl-sumo/initwfn"
	"github.com/natagapova/rl-sumo/network"
	"github.com/natagapova/rl-sumo/solver"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	Gamma          float64 `mapstructure:"gamma"`
	BatchSize      int     `mapstructure:"batch_size"`
	ReplayCapacity int     `mapstructure:"replay_capacity"`

	// Exploration schedule of the behaviour policy
	Policy policy.Config `mapstructure:",squash"`

	HiddenSizes []int    `mapstructure:"hidden_sizes"` // Layer sizes in neural net
	Biases      []bool   `mapstructure:"biases"`       // Whether each layer should have a bias
	Activations []string `mapstructure:"activations"`  // Activation of each layer

	Solver  solver.Config  `mapstructure:"solver"`
	InitWFn initwfn.Config `mapstructure:"init"`

	Seed uint64 `mapstructure:"seed"`
}

// biases returns the bias flags of the hidden layers. If none are
// configured every hidden layer has a bias.
func (c Config) biases() []bool {
	if len(c.Biases) > 0 {
		return c.Biases
	}
	biases := make([]bool, len(c.HiddenSizes))
	for i := range biases {
		biases[i] = true
	}
	return biases
}

// activations returns the activations of the hidden layers
func (c Config) activations() ([]*network.Activation, error) {
	acts := make([]*network.Activation, len(c.Activations))
	for i, name := range c.Activations {
		act, err := network.ParseActivation(name)
		if err != nil {
			return nil, err
		}
		acts[i] = act
	}
	return acts, nil
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("deepq: gamma must be in [0, 1]\n\thave(%v)",
			c.Gamma)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("deepq: batch size must be positive\n\twant(>0)"+
			"\n\thave(%v)", c.BatchSize)
	}

	if c.ReplayCapacity < c.BatchSize {
		return fmt.Errorf("deepq: replay capacity must hold a batch"+
			"\n\twant(>=%v)\n\thave(%v)", c.BatchSize, c.ReplayCapacity)
	}

	if len(c.Biases) > 0 && len(c.HiddenSizes) != len(c.Biases) {
		return fmt.Errorf("deepq: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.HiddenSizes), len(c.Biases))
	}

	if len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("deepq: invalid number of activations\n\twant(%v)"+
			"\n\thave(%v)", len(c.HiddenSizes), len(c.Activations))
	}
	if _, err := c.activations(); err != nil {
		return fmt.Errorf("deepq: %v", err)
	}

	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	return c.InitWFn.Validate()
}
