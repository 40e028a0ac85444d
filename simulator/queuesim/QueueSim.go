// Package queuesim implements a small deterministic queueing simulation
// of signalised junctions. It satisfies simulator.Simulator and is used
// for offline training runs and tests where no external simulator is
// available.
//
// Every junction has a number of incoming lanes. Lane l of a junction
// receives green when the junction's phase equals l modulo the number of
// phases. Vehicles are inserted into lanes at random, travel the length
// of the lane at its maximum speed, then queue at the stop line until
// they are discharged during a green phase.
package queuesim

import (
	"context"
	"fmt"
	"math"

	"github.com/samber/lo"
	"golang.org/x/exp/rand"

	"github.com/natagapova/rl-sumo/simulator"
)

// Config describes a queueing simulation
type Config struct {
	Junctions        int     `mapstructure:"junctions"`
	LanesPerJunction int     `mapstructure:"lanes_per_junction"`
	Phases           int     `mapstructure:"phases"`
	LaneLength       float64 `mapstructure:"lane_length"`
	MaxSpeed         float64 `mapstructure:"max_speed"`
	PhaseDuration    float64 `mapstructure:"phase_duration"`

	// ArrivalRate is the probability that a vehicle is inserted into a
	// lane on a single tick
	ArrivalRate float64 `mapstructure:"arrival_rate"`

	// DischargeRate is the number of queued vehicles leaving a lane on
	// each green tick
	DischargeRate int `mapstructure:"discharge_rate"`

	// Vehicles is the total population of an episode
	Vehicles int    `mapstructure:"vehicles"`
	Seed     uint64 `mapstructure:"seed"`
}

// Validate checks that a Config describes a runnable simulation
func (c Config) Validate() error {
	switch {
	case c.Junctions < 1:
		return fmt.Errorf("queuesim: junctions must be positive\n\twant(>0)"+
			"\n\thave(%v)", c.Junctions)
	case c.LanesPerJunction < 0:
		return fmt.Errorf("queuesim: lanes per junction must be "+
			"non-negative\n\twant(>=0)\n\thave(%v)", c.LanesPerJunction)
	case c.Phases < 1:
		return fmt.Errorf("queuesim: phases must be positive\n\twant(>0)"+
			"\n\thave(%v)", c.Phases)
	case c.LaneLength <= 0 || c.MaxSpeed <= 0:
		return fmt.Errorf("queuesim: lane length and max speed must be " +
			"positive")
	case c.ArrivalRate < 0 || c.ArrivalRate > 1:
		return fmt.Errorf("queuesim: arrival rate must be in [0, 1]"+
			"\n\thave(%v)", c.ArrivalRate)
	case c.DischargeRate < 1:
		return fmt.Errorf("queuesim: discharge rate must be positive"+
			"\n\twant(>0)\n\thave(%v)", c.DischargeRate)
	case c.Vehicles < 0:
		return fmt.Errorf("queuesim: vehicles must be non-negative"+
			"\n\thave(%v)", c.Vehicles)
	}
	return nil
}

// lane holds the vehicles of a single incoming lane
type lane struct {
	id string

	// travelling holds the remaining travel ticks of each moving vehicle
	travelling []int

	// queued holds the accumulated waiting ticks of each stopped
	// vehicle, front of the queue first
	queued []int
}

type junction struct {
	id          string
	phase       int
	timeInPhase float64
	throughput  int
	lanes       []*lane
}

// Sim is a deterministic queueing simulation
type Sim struct {
	config     Config
	rng        *rand.Rand
	travel     int
	junctions  []*junction
	byID       map[string]*junction
	time       float64
	pending    int
	arrived    int
	travelling int
	queued     int
}

// New returns a new simulation. The simulation is ready to step without
// calling Load.
func New(c Config) (*Sim, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &Sim{
		config: c,
		travel: int(math.Ceil(c.LaneLength / c.MaxSpeed)),
	}
	s.reset()
	return s, nil
}

// reset rebuilds the simulation state from the configuration
func (s *Sim) reset() {
	s.rng = rand.New(rand.NewSource(s.config.Seed))
	s.time = 0
	s.pending = s.config.Vehicles
	s.arrived = 0
	s.travelling = 0
	s.queued = 0

	s.junctions = lo.Times(s.config.Junctions, func(i int) *junction {
		id := fmt.Sprintf("J%d", i)
		return &junction{
			id: id,
			lanes: lo.Times(s.config.LanesPerJunction, func(l int) *lane {
				return &lane{id: fmt.Sprintf("%v_L%d", id, l)}
			}),
		}
	})
	s.byID = lo.KeyBy(s.junctions, func(j *junction) string { return j.id })
}

// Load restarts the simulation from its initial configuration
func (s *Sim) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.reset()
	return nil
}

// Step advances the simulation by one tick: vehicles are inserted,
// moved and discharged, and every waiting vehicle waits one more tick.
func (s *Sim) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, j := range s.junctions {
		for l, ln := range j.lanes {
			s.discharge(j, l, ln)
			s.advance(ln)
			s.insert(ln)
		}
		j.timeInPhase++
	}
	s.time++

	return nil
}

// discharge releases queued vehicles from a lane with green
func (s *Sim) discharge(j *junction, l int, ln *lane) {
	if l%s.config.Phases != j.phase {
		return
	}

	n := lo.Min([]int{s.config.DischargeRate, len(ln.queued)})
	ln.queued = ln.queued[n:]
	s.queued -= n
	s.arrived += n
	j.throughput += n
}

// advance moves travelling vehicles forward, queueing those that reach
// the stop line, and accrues waiting time for queued vehicles
func (s *Sim) advance(ln *lane) {
	for i := range ln.queued {
		ln.queued[i]++
	}

	moving := ln.travelling[:0]
	for _, remaining := range ln.travelling {
		remaining--
		if remaining <= 0 {
			ln.queued = append(ln.queued, 0)
			s.travelling--
			s.queued++
			continue
		}
		moving = append(moving, remaining)
	}
	ln.travelling = moving
}

// insert inserts a vehicle into a lane with probability ArrivalRate
// while the population has not been exhausted
func (s *Sim) insert(ln *lane) {
	if s.pending == 0 {
		return
	}
	if s.rng.Float64() >= s.config.ArrivalRate {
		return
	}

	ln.travelling = append(ln.travelling, s.travel)
	s.pending--
	s.travelling++
}

// TrafficLights returns the IDs of all junctions
func (s *Sim) TrafficLights(ctx context.Context) ([]string, error) {
	return lo.Map(s.junctions, func(j *junction, _ int) string {
		return j.id
	}), nil
}

// SetPhase sets the phase of a junction. Setting the current phase
// again keeps the time spent in the phase.
func (s *Sim) SetPhase(ctx context.Context, id string, phase int) error {
	j, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("setphase: %w %q", simulator.ErrUnknownJunction, id)
	}
	if phase < 0 || phase >= s.config.Phases {
		return fmt.Errorf("setphase: invalid phase for junction %v"+
			"\n\twant([0, %v))\n\thave(%v)", id, s.config.Phases, phase)
	}

	if phase != j.phase {
		j.phase = phase
		j.timeInPhase = 0
	}
	return nil
}

// Junction observes a junction. Its throughput counter is reset by the
// observation.
func (s *Sim) Junction(ctx context.Context,
	id string) (simulator.Junction, error) {
	j, ok := s.byID[id]
	if !ok {
		return simulator.Junction{}, fmt.Errorf("junction: %w %q",
			simulator.ErrUnknownJunction, id)
	}

	lanes := lo.Map(j.lanes, func(ln *lane, _ int) simulator.Lane {
		return s.observe(ln)
	})

	obs := simulator.Junction{
		ID:            j.id,
		Phase:         j.phase,
		NumPhases:     s.config.Phases,
		TimeInPhase:   j.timeInPhase,
		PhaseDuration: s.config.PhaseDuration,
		Throughput:    j.throughput,
		Lanes:         lanes,
	}
	j.throughput = 0

	return obs, nil
}

// observe builds the observation of a lane. An empty lane reports its
// maximum speed as the mean speed.
func (s *Sim) observe(ln *lane) simulator.Lane {
	vehicles := len(ln.travelling) + len(ln.queued)

	meanSpeed := s.config.MaxSpeed
	if vehicles > 0 {
		meanSpeed = s.config.MaxSpeed * float64(len(ln.travelling)) /
			float64(vehicles)
	}

	return simulator.Lane{
		ID:        ln.id,
		Length:    s.config.LaneLength,
		MaxSpeed:  s.config.MaxSpeed,
		Vehicles:  vehicles,
		Halting:   len(ln.queued),
		MeanSpeed: meanSpeed,
		WaitingTime: float64(lo.SumBy(ln.queued, func(w int) int {
			return w
		})),
	}
}

// Status returns the simulation summary
func (s *Sim) Status(ctx context.Context) (simulator.Status, error) {
	return simulator.Status{
		Time:     s.time,
		Expected: s.pending + s.travelling + s.queued,
		Arrived:  s.arrived,
	}, nil
}

// Close implements simulator.Simulator
func (s *Sim) Close() error {
	return nil
}
