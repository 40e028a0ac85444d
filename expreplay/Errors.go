package expreplay

import (
	"errors"
	"fmt"
)

// ErrInsufficientSamples is returned when a buffer holds fewer
// transitions than were requested
var ErrInsufficientSamples = errors.New("insufficient samples in buffer")

// ErrEmptyBuffer is returned when sampling from an empty buffer. It is
// also an ErrInsufficientSamples.
var ErrEmptyBuffer = fmt.Errorf("empty buffer: %w", ErrInsufficientSamples)

// ExpReplayError records an error and the buffer operation that caused
// it
type ExpReplayError struct {
	Op  string
	Err error
}

func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// IsEmptyBuffer returns whether err was caused by an empty buffer
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, ErrEmptyBuffer)
}

// IsInsufficientSamples returns whether err was caused by a buffer
// holding too few transitions, including an empty buffer
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, ErrInsufficientSamples)
}
