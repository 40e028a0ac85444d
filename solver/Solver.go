// Package solver builds Gorgonia Solvers from configuration
package solver

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "adam"
	RMSProp Type = "rmsprop"
	Vanilla Type = "vanilla"
)

// Config describes a solver. Fields not used by the chosen Type are
// ignored.
type Config struct {
	Type     Type    `mapstructure:"type"`
	StepSize float64 `mapstructure:"step_size"`
	Epsilon  float64 `mapstructure:"epsilon"` // Smoothing factor
	Beta1    float64 `mapstructure:"beta1"`
	Beta2    float64 `mapstructure:"beta2"`
	Rho      float64 `mapstructure:"rho"`
	Clip     float64 `mapstructure:"clip"` // <= 0 if no clipping
}

// Default returns the Adam configuration used when none is given
func Default(stepSize float64) Config {
	return Config{
		Type:     Adam,
		StepSize: stepSize,
		Epsilon:  1e-7,
		Beta1:    0.9,
		Beta2:    0.999,
		Rho:      0.9,
	}
}

func (c Config) kind() Type {
	return Type(strings.ToLower(string(c.Type)))
}

// Validate checks the Config for values Gorgonia cannot use
func (c Config) Validate() error {
	if c.StepSize <= 0 {
		return fmt.Errorf("solver: step size must be positive\n\twant(>0)"+
			"\n\thave(%v)", c.StepSize)
	}

	switch c.kind() {
	case Adam:
		if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
			return fmt.Errorf("solver: adam betas must be in [0, 1)"+
				"\n\thave(%v, %v)", c.Beta1, c.Beta2)
		}
	case RMSProp:
		if c.Rho <= 0 || c.Rho >= 1 {
			return fmt.Errorf("solver: rmsprop rho must be in (0, 1)"+
				"\n\thave(%v)", c.Rho)
		}
	case Vanilla:
	default:
		return fmt.Errorf("solver: unknown type %q", c.Type)
	}
	return nil
}

// Create returns a new Gorgonia Solver as described by the Config. The
// batch size scales gradients by 1/batch; pass 1 if the loss is
// already averaged over the batch.
func (c Config) Create(batch int) (G.Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithBatchSize(float64(batch)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}

	switch c.kind() {
	case Adam:
		opts = append(opts, G.WithEps(c.Epsilon), G.WithBeta1(c.Beta1),
			G.WithBeta2(c.Beta2))
		return G.NewAdamSolver(opts...), nil
	case RMSProp:
		opts = append(opts, G.WithEps(c.Epsilon), G.WithRho(c.Rho))
		return G.NewRMSPropSolver(opts...), nil
	default:
		return G.NewVanillaSolver(opts...), nil
	}
}
