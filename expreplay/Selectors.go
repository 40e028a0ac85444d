package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector chooses the slots of a buffer that a batch is drawn from
type Selector interface {
	// choose returns n distinct slot indices in [0, size)
	choose(n, size int) []int
}

// uniformSelector selects slots uniformly at random without
// replacement. It keeps a permutation of the occupied slots and
// shuffles only the prefix it returns.
type uniformSelector struct {
	rng  *rand.Rand
	perm []int
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly, without replacement, from an experience replay buffer
func NewUniformSelector(seed uint64) Selector {
	return &uniformSelector{rng: rand.New(rand.NewSource(seed))}
}

// choose selects n distinct indices at which to draw data from the
// buffer
func (u *uniformSelector) choose(n, size int) []int {
	// Buffers never shrink, so the permutation only grows
	for len(u.perm) < size {
		u.perm = append(u.perm, len(u.perm))
	}
	if len(u.perm) > size {
		u.perm = u.perm[:0]
		for i := 0; i < size; i++ {
			u.perm = append(u.perm, i)
		}
	}

	for i := 0; i < n; i++ {
		j := i + u.rng.Intn(size-i)
		u.perm[i], u.perm[j] = u.perm[j], u.perm[i]
	}

	selected := make([]int, n)
	copy(selected, u.perm[:n])
	return selected
}
