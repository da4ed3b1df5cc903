package processing

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDistanceExceeded marks requests whose radius is above the configured
	// limit. The caller can fix it by asking for a smaller area.
	ErrDistanceExceeded = errors.New("distance exceeds maximum")
	// ErrUpstream marks failures of the rendering collaborator.
	ErrUpstream = errors.New("upstream failure")
	// ErrTaskTimeout marks tasks killed by the per-task deadline.
	ErrTaskTimeout = errors.New("task timed out")
	// ErrQueueFull is returned by Submit when no worker slot is free.
	ErrQueueFull = errors.New("processing queue full")
)

// DistanceError carries the requested and allowed radius in meters.
type DistanceError struct {
	Distance int
	Max      int
}

func (e *DistanceError) Error() string {
	return fmt.Sprintf("Distance %dm exceeds maximum allowed %dm. "+
		"Please use a smaller distance to avoid memory issues. "+
		"Recommended: 4000-6000m for dense cities, 8000-15000m for medium cities, 15000-25000m for large metros",
		e.Distance, e.Max)
}

func (e *DistanceError) Is(target error) bool { return target == ErrDistanceExceeded }

// upstreamError keeps the collaborator's message intact for the task record
// while still matching ErrUpstream.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string   { return e.err.Error() }
func (e *upstreamError) Unwrap() []error { return []error{ErrUpstream, e.err} }

func timeoutError(d time.Duration) error {
	return fmt.Errorf("%w after %s", ErrTaskTimeout, d)
}
