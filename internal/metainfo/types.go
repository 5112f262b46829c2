// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metainfo

import (
	"fmt"
	"strings"

	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

// MediaType classifies what a release title refers to.
type MediaType int

const (
	TypeUnknown MediaType = iota
	TypeMovie
	TypeTV
	TypeAnime
)

func (t MediaType) String() string {
	switch t {
	case TypeMovie:
		return "movie"
	case TypeTV:
		return "tv"
	case TypeAnime:
		return "anime"
	default:
		return "unknown"
	}
}

// ParseMediaType maps a config/API string to a MediaType.
func ParseMediaType(s string) MediaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return TypeMovie
	case "tv", "series", "show":
		return TypeTV
	case "anime":
		return TypeAnime
	default:
		return TypeUnknown
	}
}

// IsSeries reports whether t is episodic (TV or anime).
func (t MediaType) IsSeries() bool {
	return t == TypeTV || t == TypeAnime
}

// Compatible reports whether two types agree for filtering purposes.
// Anime is compatible with both movie and TV: an anime release can be
// either, and the movie-vs-tv filter must not discard it.
func (t MediaType) Compatible(other MediaType) bool {
	if t == TypeUnknown || other == TypeUnknown {
		return true
	}
	if t == TypeAnime || other == TypeAnime {
		return true
	}
	return t == other
}

const unset = -1

// ParsedTitle is the structured form of a free-text release title.
// Instances are created by Parser.Parse and not mutated afterwards,
// except for season correction against a known season table.
type ParsedTitle struct {
	Original  string `json:"original"`
	Processed string `json:"processed"`

	CNName string    `json:"cnName"`
	ENName string    `json:"enName"`
	Year   string    `json:"year"`
	Type   MediaType `json:"type"`

	BeginSeason  int `json:"beginSeason"`
	EndSeason    int `json:"endSeason"`
	TotalSeasons int `json:"totalSeasons"`

	BeginEpisode  int    `json:"beginEpisode"`
	EndEpisode    int    `json:"endEpisode"`
	TotalEpisodes int    `json:"totalEpisodes"`
	Part          string `json:"part,omitempty"`

	ResourcePix   string `json:"resourcePix,omitempty"`
	ResourceTeam  string `json:"resourceTeam,omitempty"`
	VideoEncode   string `json:"videoEncode,omitempty"`
	AudioEncode   string `json:"audioEncode,omitempty"`
	Customization string `json:"customization,omitempty"`

	// AppliedRules records which lexical rules fired during parsing.
	AppliedRules []string `json:"appliedRules,omitempty"`
}

func newParsedTitle(original string) *ParsedTitle {
	return &ParsedTitle{
		Original:     original,
		BeginSeason:  unset,
		EndSeason:    unset,
		BeginEpisode: unset,
		EndEpisode:   unset,
	}
}

// Name returns the preferred display name: Chinese if present, else English.
func (p *ParsedTitle) Name() string {
	if p.CNName != "" {
		return p.CNName
	}
	return p.ENName
}

// IsUnparsed reports whether the parser failed to extract any name.
func (p *ParsedTitle) IsUnparsed() bool {
	return p.CNName == "" && p.ENName == ""
}

// HasSeason reports whether an explicit season marker was parsed.
func (p *ParsedTitle) HasSeason() bool {
	return p.BeginSeason != unset
}

// HasEpisode reports whether an explicit episode marker was parsed.
func (p *ParsedTitle) HasEpisode() bool {
	return p.BeginEpisode != unset
}

// Seasons returns the inclusive list of parsed season numbers.
func (p *ParsedTitle) Seasons() []int {
	if !p.HasSeason() {
		return nil
	}
	end := p.EndSeason
	if end == unset {
		end = p.BeginSeason
	}
	out := make([]int, 0, end-p.BeginSeason+1)
	for s := p.BeginSeason; s <= end; s++ {
		out = append(out, s)
	}
	return out
}

// Episodes returns the inclusive list of parsed episode numbers.
func (p *ParsedTitle) Episodes() []int {
	if !p.HasEpisode() {
		return nil
	}
	end := p.EndEpisode
	if end == unset {
		end = p.BeginEpisode
	}
	out := make([]int, 0, end-p.BeginEpisode+1)
	for e := p.BeginEpisode; e <= end; e++ {
		out = append(out, e)
	}
	return out
}

// SeasonString renders the season signature, e.g. "S02" or "S01-S03".
// Series without an explicit marker default to season 1.
func (p *ParsedTitle) SeasonString() string {
	if !p.HasSeason() {
		if p.Type.IsSeries() {
			return "S01"
		}
		return ""
	}
	if p.EndSeason != unset && p.EndSeason != p.BeginSeason {
		return fmt.Sprintf("S%02d-S%02d", p.BeginSeason, p.EndSeason)
	}
	return fmt.Sprintf("S%02d", p.BeginSeason)
}

// EpisodeString renders the episode signature, e.g. "E05" or "E01-E12".
func (p *ParsedTitle) EpisodeString() string {
	if !p.HasEpisode() {
		return ""
	}
	if p.EndEpisode != unset && p.EndEpisode != p.BeginEpisode {
		return fmt.Sprintf("E%02d-E%02d", p.BeginEpisode, p.EndEpisode)
	}
	return fmt.Sprintf("E%02d", p.BeginEpisode)
}

// DedupKey is the identity under which two results are considered the
// same offer: normalized name plus season and episode signatures.
func (p *ParsedTitle) DedupKey() string {
	return stringutils.Normalize(stringutils.Simplified(p.Name())) +
		"|" + p.SeasonString() + "|" + p.EpisodeString()
}

func (p *ParsedTitle) setSeason(begin, end int) {
	if begin == unset {
		return
	}
	if end != unset && end < begin {
		begin, end = end, begin
	}
	if p.BeginSeason == unset {
		p.BeginSeason = begin
	}
	if end != unset && p.EndSeason == unset && end != p.BeginSeason {
		p.EndSeason = end
	}
	if p.EndSeason != unset {
		p.TotalSeasons = p.EndSeason - p.BeginSeason + 1
	} else if p.BeginSeason != unset {
		p.TotalSeasons = 1
	}
}

func (p *ParsedTitle) setEpisode(begin, end int) {
	if begin == unset {
		return
	}
	if end != unset && end < begin {
		begin, end = end, begin
	}
	if p.BeginEpisode == unset {
		p.BeginEpisode = begin
	}
	if end != unset && p.EndEpisode == unset && end != p.BeginEpisode {
		p.EndEpisode = end
	}
	if p.EndEpisode != unset {
		p.TotalEpisodes = p.EndEpisode - p.BeginEpisode + 1
	} else if p.BeginEpisode != unset {
		p.TotalEpisodes = 1
	}
}
