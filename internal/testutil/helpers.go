// Package testutil provides reusable test helpers for waveform and streaming tests.
package testutil

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// halfDivisor is used to find the midpoint of a cycle.
const halfDivisor = 2

// Goroutine leak polling.
const (
	leakDeadline     = 10 * time.Second
	leakPollInterval = 50 * time.Millisecond
)

// AssertOddSymmetric verifies s[k] == -s[k+len/2] for every k in the first half.
func AssertOddSymmetric(t *testing.T, s []int8, msgAndArgs ...any) bool {
	t.Helper()
	n := len(s)
	if n%halfDivisor != 0 {
		return assert.Fail(t, "odd-length cycle", "len=%d", n)
	}
	half := n / halfDivisor
	for k := range half {
		if s[k] != -s[k+half] {
			return assert.Fail(t, "cycle not odd-symmetric",
				"s[%d]=%d, s[%d]=%d", k, s[k], k+half, s[k+half])
		}
	}
	return true
}

// AssertAllInRange verifies that all samples are within [minVal, maxVal].
func AssertAllInRange(t *testing.T, s []int8, minVal, maxVal int, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if int(v) < minVal || int(v) > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%d is outside range [%d, %d]", i, v, minVal, maxVal)
		}
	}
	return true
}

// AssertPeriodic verifies that stream is the periodic extension of cycle,
// starting at cycle[phase].
func AssertPeriodic(t *testing.T, stream, cycle []int8, phase int, msgAndArgs ...any) bool {
	t.Helper()
	if len(cycle) == 0 {
		return assert.Fail(t, "empty cycle")
	}
	for i, v := range stream {
		want := cycle[(i+phase)%len(cycle)]
		if v != want {
			return assert.Fail(t, "stream not periodic",
				"stream[%d]=%d, want %d (cycle phase %d)", i, v, want, (i+phase)%len(cycle))
		}
	}
	return true
}

// AssertSumZero verifies that the samples of a cycle sum to zero.
func AssertSumZero(t *testing.T, s []int8, msgAndArgs ...any) bool {
	t.Helper()
	sum := 0
	for _, v := range s {
		sum += int(v)
	}
	return assert.Zero(t, sum, "cycle sum = %d, want 0", sum)
}

// AssertNoGoroutineLeaks checks that the goroutine count returns to baseline within a deadline.
func AssertNoGoroutineLeaks(t *testing.T, baseline, margin int) {
	t.Helper()
	deadline := time.Now().Add(leakDeadline)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline+margin {
			return
		}
		time.Sleep(leakPollInterval)
	}
	t.Errorf("goroutine leak: baseline=%d, current=%d, margin=%d", baseline, runtime.NumGoroutine(), margin)
}
