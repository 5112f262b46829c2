// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package filter holds the per-search constraint set and the rule
// evaluator that scores parsed releases against it.
package filter

import (
	"strings"

	"github.com/aggregarr/aggregarr/internal/metainfo"
)

// Args carries the caller's constraints for one search. Each dispatched
// search unit receives its own copy; the slices must never be shared
// across concurrent units.
type Args struct {
	Seasons        []int              `json:"seasons,omitempty"`
	Episodes       []int              `json:"episodes,omitempty"`
	Year           string             `json:"year,omitempty"`
	Type           metainfo.MediaType `json:"type,omitempty"`
	Sites          []string           `json:"sites,omitempty"`
	RequireSeeders bool               `json:"requireSeeders,omitempty"`
	RuleID         string             `json:"ruleId,omitempty"`
	Keyword        string             `json:"keyword,omitempty"`
}

// Copy returns a deep copy safe to hand to a concurrent task.
func (a *Args) Copy() *Args {
	if a == nil {
		return &Args{}
	}
	dup := *a
	if a.Seasons != nil {
		dup.Seasons = append([]int(nil), a.Seasons...)
	}
	if a.Episodes != nil {
		dup.Episodes = append([]int(nil), a.Episodes...)
	}
	if a.Sites != nil {
		dup.Sites = append([]string(nil), a.Sites...)
	}
	return &dup
}

// AllowsSite reports whether the source name passes the allowlist.
// An empty allowlist allows every source.
func (a *Args) AllowsSite(name string) bool {
	if a == nil || len(a.Sites) == 0 {
		return true
	}
	for _, site := range a.Sites {
		if strings.EqualFold(site, name) {
			return true
		}
	}
	return false
}

// AllowsSeason reports whether every requested season is covered by the
// parsed season range.
func (a *Args) AllowsSeason(parsed *metainfo.ParsedTitle) bool {
	if a == nil || len(a.Seasons) == 0 {
		return true
	}
	if !parsed.HasSeason() {
		// A season-less record only satisfies a season-1 request.
		return len(a.Seasons) == 1 && a.Seasons[0] == 1
	}
	covered := make(map[int]bool)
	for _, s := range parsed.Seasons() {
		covered[s] = true
	}
	for _, want := range a.Seasons {
		if !covered[want] {
			return false
		}
	}
	return true
}

// AllowsEpisode reports whether every requested episode is covered.
// A record with no episode markers is a whole-season pack and covers
// any episode request.
func (a *Args) AllowsEpisode(parsed *metainfo.ParsedTitle) bool {
	if a == nil || len(a.Episodes) == 0 {
		return true
	}
	if !parsed.HasEpisode() {
		return true
	}
	covered := make(map[int]bool)
	for _, e := range parsed.Episodes() {
		covered[e] = true
	}
	for _, want := range a.Episodes {
		if !covered[want] {
			return false
		}
	}
	return true
}

// AllowsYear reports whether the parsed year satisfies the requested
// year. A record without a year is not rejected on year grounds.
func (a *Args) AllowsYear(parsed *metainfo.ParsedTitle) bool {
	if a == nil || a.Year == "" || parsed.Year == "" {
		return true
	}
	return a.Year == parsed.Year
}
