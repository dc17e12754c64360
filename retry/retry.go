// Package retry holds the randomized delay and bounded-attempt policy shared
// by navigation retries and strategy sequencing.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DelayRange is a closed interval of wait durations. Every pick is drawn
// uniformly from [Min, Max] so consecutive requests never fall into a
// fixed period.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Range builds a DelayRange.
func Range(min, max time.Duration) DelayRange {
	return DelayRange{Min: min, Max: max}
}

// Pick draws a duration from the range. A zero-width or inverted range
// returns Min.
func (r DelayRange) Pick() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rand.Int64N(int64(r.Max-r.Min)+1))
}

// Validate reports an inverted or negative range.
func (r DelayRange) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("negative minimum delay %s", r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("minimum delay %s exceeds maximum %s", r.Min, r.Max)
	}
	return nil
}

func (r DelayRange) String() string {
	return fmt.Sprintf("%s-%s", r.Min, r.Max)
}

// Wait sleeps for a random duration from the range, returning early with
// ctx.Err() if the context ends first.
func (r DelayRange) Wait(ctx context.Context) error {
	return Sleep(ctx, r.Pick())
}

// Policy bounds how many times an operation is tried and how long to wait
// between tries.
type Policy struct {
	MaxAttempts int
	Delay       DelayRange
}

// Attempts returns MaxAttempts, treating anything below one as one.
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
