package executor

import "sync/atomic"

// Counters accumulates per-outcome success/failure counts for one process
// invocation. Increments are atomic so the contract holds even if stages
// ever run concurrently; today's pipeline is strictly sequential.
type Counters struct {
	success atomic.Int64
	failure atomic.Int64
}

// RecordSuccess increments the success count.
func (c *Counters) RecordSuccess() { c.success.Add(1) }

// RecordFailure increments the failure count.
func (c *Counters) RecordFailure() { c.failure.Add(1) }

// Successes returns the number of successful outcomes so far.
func (c *Counters) Successes() int64 { return c.success.Load() }

// Failures returns the number of failed outcomes so far.
func (c *Counters) Failures() int64 { return c.failure.Load() }
