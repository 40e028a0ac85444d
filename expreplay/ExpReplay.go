// Package expreplay implements a bounded experience replay buffer
package expreplay

import (
	"fmt"

	ts "github.com/natagapova/rl-sumo/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	Capacity int    `mapstructure:"capacity"`
	Seed     uint64 `mapstructure:"seed"`
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize, actionSize int) (ExperienceReplayer,
	error) {
	return New(NewUniformSelector(c.Seed), c.Capacity, featureSize,
		actionSize)
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a copy of a transition to the buffer, evicting the oldest
	// transition if the buffer is full
	Add(t ts.Transition) error

	// Sample returns n distinct transitions drawn from the buffer
	Sample(n int) ([]ts.Transition, error)

	// Len returns the current number of transitions in the buffer
	Len() int

	// Capacity returns the maximum number of transitions in the buffer
	Capacity() int

	// Contents returns the transitions in the buffer, oldest first
	Contents() []ts.Transition
}

// cache implements a concrete ExperienceReplayer as a ring of slots.
// Transitions are never modified once stored.
type cache struct {
	slots []ts.Transition

	// next is the slot the next transition is written to
	next int
	size int

	sampler Selector

	featureSize int
	actionSize  int
}

// New creates and returns a new ExperienceReplayer. The sampler
// determines how batches are drawn. The featureSize and actionSize
// parameters define the size of the state and action vectors.
func New(sampler Selector, capacity, featureSize,
	actionSize int) (ExperienceReplayer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1\n\twant(>0)"+
			"\n\thave(%v)", capacity)
	}
	if featureSize < 1 || actionSize < 1 {
		return nil, fmt.Errorf("new: feature and action sizes must be " +
			"positive")
	}

	return &cache{
		slots:       make([]ts.Transition, capacity),
		sampler:     sampler,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// String returns the string representation of the cache
func (c *cache) String() string {
	return fmt.Sprintf("Replay | Size: %v  |  Capacity: %v", c.size,
		c.Capacity())
}

// Add adds a transition to the cache
func (c *cache) Add(t ts.Transition) error {
	if t.State == nil || t.NextState == nil || t.Action == nil {
		return fmt.Errorf("add: transition has nil vectors")
	}
	if t.State.Len() != c.featureSize || t.NextState.Len() != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\thave(%v)",
			c.featureSize, t.State.Len())
	}
	if t.Action.Len() != c.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)\n\thave(%v)",
			c.actionSize, t.Action.Len())
	}

	c.slots[c.next] = t.Copy()
	c.next = (c.next + 1) % len(c.slots)
	if c.size < len(c.slots) {
		c.size++
	}
	return nil
}

// Sample samples and returns a batch of n transitions from the buffer
func (c *cache) Sample(n int) ([]ts.Transition, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample: batch size must be positive"+
			"\n\twant(>0)\n\thave(%v)", n)
	}
	if c.size == 0 {
		return nil, &ExpReplayError{Op: "sample", Err: ErrEmptyBuffer}
	}
	if c.size < n {
		return nil, &ExpReplayError{
			Op:  "sample",
			Err: fmt.Errorf("%w: want(%v) have(%v)", ErrInsufficientSamples, n, c.size),
		}
	}

	indices := c.sampler.choose(n, c.size)
	batch := make([]ts.Transition, n)
	for i, index := range indices {
		batch[i] = c.slots[index]
	}
	return batch, nil
}

// Len returns the number of transitions in the cache
func (c *cache) Len() int {
	return c.size
}

// Capacity returns the maximum number of transitions in the cache
func (c *cache) Capacity() int {
	return len(c.slots)
}

// Contents returns the transitions in insertion order
func (c *cache) Contents() []ts.Transition {
	contents := make([]ts.Transition, 0, c.size)
	start := 0
	if c.size == len(c.slots) {
		start = c.next
	}
	for i := 0; i < c.size; i++ {
		contents = append(contents, c.slots[(start+i)%len(c.slots)])
	}
	return contents
}
