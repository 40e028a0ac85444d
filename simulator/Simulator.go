// Package simulator defines the narrow contract through which the
// training code drives a step-wise traffic simulation.
package simulator

import (
	"context"
	"errors"
)

// ErrUnknownJunction is returned when a junction ID is not controlled by
// a traffic light in the running simulation.
var ErrUnknownJunction = errors.New("unknown junction")

// Lane holds the observation of a single incoming lane
type Lane struct {
	ID          string  `msgpack:"id"`
	Length      float64 `msgpack:"length"`    // metres
	MaxSpeed    float64 `msgpack:"max_speed"` // metres per second
	Vehicles    int     `msgpack:"vehicles"`
	Halting     int     `msgpack:"halting"`
	MeanSpeed   float64 `msgpack:"mean_speed"`
	WaitingTime float64 `msgpack:"waiting_time"` // accumulated seconds
}

// Junction holds the observation of a signalised junction
type Junction struct {
	ID            string  `msgpack:"id"`
	Phase         int     `msgpack:"phase"`
	NumPhases     int     `msgpack:"num_phases"`
	TimeInPhase   float64 `msgpack:"time_in_phase"`
	PhaseDuration float64 `msgpack:"phase_duration"`

	// Throughput is the number of vehicles that left the junction's
	// incoming lanes since the previous observation of the junction.
	Throughput int    `msgpack:"throughput"`
	Lanes      []Lane `msgpack:"lanes"`
}

// Status summarises the whole simulation
type Status struct {
	Time float64 `msgpack:"time"`

	// Expected is the number of vehicles that are either in the network
	// or still waiting to be inserted. Zero means the population has
	// drained.
	Expected int `msgpack:"expected"`
	Arrived  int `msgpack:"arrived"`
}

// Simulator is a step-wise traffic simulation. Calls block until the
// simulation answers; implementations do not retry failed calls.
type Simulator interface {
	// Load restarts the simulation from its initial configuration
	Load(ctx context.Context) error

	// Step advances the simulation by a single tick
	Step(ctx context.Context) error

	// TrafficLights returns the IDs of all signalised junctions
	TrafficLights(ctx context.Context) ([]string, error)

	// SetPhase commands the phase of a junction's traffic light
	SetPhase(ctx context.Context, junction string, phase int) error

	// Junction observes a single junction
	Junction(ctx context.Context, id string) (Junction, error)

	Status(ctx context.Context) (Status, error)
	Close() error
}
