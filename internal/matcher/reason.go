// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package matcher decides whether a parsed release refers to a target
// media record and folds accepted releases into a deduplicated set.
package matcher

// Reason classifies why a listing was rejected. ReasonNone means the
// listing was accepted.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonNoName rejects listings the parser produced no name for.
	ReasonNoName
	// ReasonRule rejects filter-constraint violations and duplicates.
	ReasonRule
	// ReasonMatchFail rejects listings resolved to a different media id
	// or failing season/episode/year consistency.
	ReasonMatchFail
	// ReasonError rejects on lookup failure or a year-window violation.
	ReasonError
	// ReasonRateLimited marks a source skipped for this round.
	ReasonRateLimited
	// ReasonConfigError marks a source whose configuration is unusable.
	ReasonConfigError
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "accepted"
	case ReasonNoName:
		return "no_name"
	case ReasonRule:
		return "rule"
	case ReasonMatchFail:
		return "match_fail"
	case ReasonError:
		return "error"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonConfigError:
		return "config_error"
	default:
		return "unknown"
	}
}
