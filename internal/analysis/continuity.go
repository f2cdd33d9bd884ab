package analysis

import (
	"errors"
	"fmt"
)

// ErrDiscontinuity matches any *DiscontinuityError.
var ErrDiscontinuity = errors.New("stream is not a continuous carrier")

// DiscontinuityError locates the first sample that breaks the periodic
// extension of a cycle.
type DiscontinuityError struct {
	Index int
	Got   int8
	Want  int8
	Phase int
}

func (e *DiscontinuityError) Error() string {
	return fmt.Sprintf("%v: sample %d is %d, want %d (cycle phase %d)",
		ErrDiscontinuity, e.Index, e.Got, e.Want, e.Phase)
}

func (e *DiscontinuityError) Unwrap() error { return ErrDiscontinuity }

// CheckContinuity verifies that stream is cycle repeated without a break,
// starting at some phase. It returns that phase. On failure the error is a
// *DiscontinuityError for the starting phase that matched the longest prefix.
func CheckContinuity(stream, cycle []int8) (int, error) {
	n := len(cycle)
	if n == 0 {
		return 0, ErrEmptyCycle
	}
	if len(stream) == 0 {
		return 0, nil
	}

	best := &DiscontinuityError{Index: -1}
	for phase := range n {
		i := firstMismatch(stream, cycle, phase)
		if i < 0 {
			return phase, nil
		}
		if i > best.Index {
			best = &DiscontinuityError{
				Index: i,
				Got:   stream[i],
				Want:  cycle[(phase+i)%n],
				Phase: phase,
			}
		}
	}
	return best.Phase, best
}

func firstMismatch(stream, cycle []int8, phase int) int {
	n := len(cycle)
	p := phase
	for i, v := range stream {
		if v != cycle[p] {
			return i
		}
		p++
		if p == n {
			p = 0
		}
	}
	return -1
}
