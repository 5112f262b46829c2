// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import "time"

// Counters aggregates per-search outcome counts for progress reporting.
type Counters struct {
	Success     int           `json:"success"`
	RuleFail    int           `json:"ruleFail"`
	MatchFail   int           `json:"matchFail"`
	Errors      int           `json:"errors"`
	RateLimited int           `json:"rateLimited"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Observe tallies one matcher outcome.
func (c *Counters) Observe(reason Reason) {
	switch reason {
	case ReasonNone:
		c.Success++
	case ReasonNoName, ReasonRule:
		c.RuleFail++
	case ReasonMatchFail:
		c.MatchFail++
	case ReasonError, ReasonConfigError:
		c.Errors++
	case ReasonRateLimited:
		c.RateLimited++
	}
}

// Merge folds another unit's counters into c.
func (c *Counters) Merge(other Counters) {
	c.Success += other.Success
	c.RuleFail += other.RuleFail
	c.MatchFail += other.MatchFail
	c.Errors += other.Errors
	c.RateLimited += other.RateLimited
	if other.Elapsed > c.Elapsed {
		// Units run in parallel; wall time is the slowest unit.
		c.Elapsed = other.Elapsed
	}
}
