package traffic

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/natagapova/rl-sumo/simulator"
	"github.com/natagapova/rl-sumo/utils/floatutils"
)

// Feature names a per-junction state feature
type Feature string

// Available features
const (
	// Vehicles per metre of incoming lane, relative to jam density
	Density Feature = "density"

	// Halted vehicles per metre of incoming lane, relative to jam density
	Queue Feature = "queue"

	// Mean over lanes of the lane mean speed over the lane speed limit
	Speed Feature = "speed"

	// Accumulated waiting time relative to the maximum waiting time of
	// every lane
	Waiting Feature = "waiting"

	// Current phase index over the number of phases
	Phase Feature = "phase"

	// Time spent in the current phase over the phase duration
	PhaseElapsed Feature = "phase_elapsed"
)

// DefaultFeatures is the feature set used when none is configured
var DefaultFeatures = []Feature{Density, Queue, Speed, Waiting, Phase,
	PhaseElapsed}

// unit is the range of every encoded feature
var unit = r1.Interval{Min: 0, Max: 1}

// Encoder turns junction observations into a State vector laid out
// junction-major: the features of junction j occupy indices
// [j*F, (j+1)*F) where F is the number of features.
type Encoder struct {
	features   []Feature
	junctions  int
	jamDensity float64
	maxWaiting float64
}

// NewEncoder returns a new Encoder. An empty feature list selects
// DefaultFeatures. The jam density (vehicles per metre) and maximum
// waiting time (seconds) normalise the density and waiting features.
func NewEncoder(junctions int, features []string, jamDensity,
	maxWaiting float64) (*Encoder, error) {
	if junctions < 1 {
		return nil, fmt.Errorf("newencoder: number of junctions must be "+
			"positive\n\twant(>0)\n\thave(%v)", junctions)
	}
	if jamDensity <= 0 || maxWaiting <= 0 {
		return nil, fmt.Errorf("newencoder: jam density and max waiting time " +
			"must be positive")
	}

	selected := DefaultFeatures
	if len(features) > 0 {
		selected = make([]Feature, len(features))
		for i, name := range features {
			f := Feature(name)
			if !lo.Contains(DefaultFeatures, f) {
				return nil, fmt.Errorf("newencoder: unknown feature %q", name)
			}
			selected[i] = f
		}
		if dup := lo.FindDuplicates(selected); len(dup) > 0 {
			return nil, fmt.Errorf("newencoder: duplicate features %v", dup)
		}
	}

	return &Encoder{
		features:   selected,
		junctions:  junctions,
		jamDensity: jamDensity,
		maxWaiting: maxWaiting,
	}, nil
}

// FeaturesPerJunction returns the number of features of each junction
func (e *Encoder) FeaturesPerJunction() int {
	return len(e.features)
}

// Len returns the length of encoded State vectors
func (e *Encoder) Len() int {
	return e.junctions * len(e.features)
}

// Features returns the features encoded for each junction, in order
func (e *Encoder) Features() []Feature {
	return append([]Feature(nil), e.features...)
}

// Encode returns a new State vector for the observed junctions, which
// must be given in the junction order the Encoder was built for. Every
// element of the State lies in [0, 1]. A junction without incoming
// lanes is encoded as all zeroes.
func (e *Encoder) Encode(obs []simulator.Junction) (*mat.VecDense, error) {
	if len(obs) != e.junctions {
		return nil, fmt.Errorf("encode: invalid number of junctions"+
			"\n\twant(%v)\n\thave(%v)", e.junctions, len(obs))
	}

	f := len(e.features)
	state := mat.NewVecDense(e.Len(), nil)
	for j, junction := range obs {
		if len(junction.Lanes) == 0 {
			continue
		}
		for i, feature := range e.features {
			value := floatutils.ClipInterval(e.feature(feature, junction), unit)
			state.SetVec(j*f+i, value)
		}
	}
	return state, nil
}

// feature computes a single unclipped feature of a junction
func (e *Encoder) feature(f Feature, j simulator.Junction) float64 {
	length := lo.SumBy(j.Lanes, func(l simulator.Lane) float64 {
		return l.Length
	})

	switch f {
	case Density:
		vehicles := lo.SumBy(j.Lanes, func(l simulator.Lane) int {
			return l.Vehicles
		})
		return ratio(ratio(float64(vehicles), length), e.jamDensity)

	case Queue:
		halting := lo.SumBy(j.Lanes, func(l simulator.Lane) int {
			return l.Halting
		})
		return ratio(ratio(float64(halting), length), e.jamDensity)

	case Speed:
		speeds := lo.SumBy(j.Lanes, func(l simulator.Lane) float64 {
			return ratio(l.MeanSpeed, l.MaxSpeed)
		})
		return ratio(speeds, float64(len(j.Lanes)))

	case Waiting:
		waiting := lo.SumBy(j.Lanes, func(l simulator.Lane) float64 {
			return l.WaitingTime
		})
		return ratio(waiting, e.maxWaiting*float64(len(j.Lanes)))

	case Phase:
		return ratio(float64(j.Phase), float64(j.NumPhases))

	case PhaseElapsed:
		return ratio(j.TimeInPhase, j.PhaseDuration)
	}

	panic(fmt.Sprintf("feature: unknown feature %q", f))
}

// ratio returns num / den, or 0 when the quotient is undefined
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
