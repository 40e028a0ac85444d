// Package initwfn builds Gorgonia weight initialization functions from
// configuration
package initwfn

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "glorot_uniform"
	GlorotN  Type = "glorot_normal"
	HeU      Type = "he_uniform"
	HeN      Type = "he_normal"
	Gaussian Type = "gaussian"
	Uniform  Type = "uniform"
	Zeroes   Type = "zeroes"
)

// Config describes a weight initialization scheme. Only the fields used
// by the chosen Type are read: Gain for the Glorot and He schemes, Mean
// and StdDev for Gaussian, Low and High for Uniform.
type Config struct {
	Type   Type    `mapstructure:"type"`
	Gain   float64 `mapstructure:"gain"`
	Mean   float64 `mapstructure:"mean"`
	StdDev float64 `mapstructure:"std_dev"`
	Low    float64 `mapstructure:"low"`
	High   float64 `mapstructure:"high"`
}

// Validate checks that the Config describes a known scheme with usable
// parameters
func (c Config) Validate() error {
	switch Type(strings.ToLower(string(c.Type))) {
	case GlorotU, GlorotN, HeU, HeN:
		if c.Gain <= 0 {
			return fmt.Errorf("initwfn: gain must be positive\n\twant(>0)"+
				"\n\thave(%v)", c.Gain)
		}
	case Gaussian:
		if c.StdDev <= 0 {
			return fmt.Errorf("initwfn: standard deviation must be "+
				"positive\n\twant(>0)\n\thave(%v)", c.StdDev)
		}
	case Uniform:
		if c.Low >= c.High {
			return fmt.Errorf("initwfn: invalid uniform bounds [%v, %v)",
				c.Low, c.High)
		}
	case Zeroes:
	default:
		return fmt.Errorf("initwfn: unknown type %q", c.Type)
	}
	return nil
}

// Create returns the Gorgonia InitWFn that the Config describes
func (c Config) Create() (G.InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch Type(strings.ToLower(string(c.Type))) {
	case GlorotU:
		return G.GlorotU(c.Gain), nil
	case GlorotN:
		return G.GlorotN(c.Gain), nil
	case HeU:
		return G.HeU(c.Gain), nil
	case HeN:
		return G.HeN(c.Gain), nil
	case Gaussian:
		return G.Gaussian(c.Mean, c.StdDev), nil
	case Uniform:
		return G.Uniform(c.Low, c.High), nil
	default:
		return G.Zeroes(), nil
	}
}

// String implements the fmt.Stringer interface
func (c Config) String() string {
	return fmt.Sprintf("{%v InitWFn}", c.Type)
}
