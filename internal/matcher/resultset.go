// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import "github.com/cespare/xxhash/v2"

// ResultSet is an insertion-ordered set of accepted results keyed by
// the (normalized title, season signature, episode signature) identity.
// One set exists per search unit; it is not safe for concurrent use.
type ResultSet struct {
	seen  map[uint64]struct{}
	items []*MatchResult
}

func NewResultSet() *ResultSet {
	return &ResultSet{seen: make(map[uint64]struct{})}
}

// Add inserts result unless an equal offer is already present. It
// reports whether the result was inserted.
func (s *ResultSet) Add(result *MatchResult) bool {
	key := xxhash.Sum64String(result.DedupKey())
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, result)
	return true
}

// Items returns the accepted results in arrival order.
func (s *ResultSet) Items() []*MatchResult {
	return s.items
}

func (s *ResultSet) Len() int {
	return len(s.items)
}
