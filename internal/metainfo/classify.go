// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metainfo

import "regexp"

// Classification is a pure function over the pre-substitution title text:
// fansub releases follow a bracket-header convention that standard scene
// names never use, while SxxExx/EPxx style markers rule anime out.
var (
	// 【Group】【...】 header blocks used by CJK fansub groups.
	reAnimeCNHeader = regexp.MustCompile(`【[+0-9XVPI-]+】\s*【`)
	// [Group][...] variant of the same convention.
	reAnimeBracketHeader = regexp.MustCompile(`\[[+0-9XVPI-]+\]\s*\[`)
	// Isolated " - NN " episode marker, optionally with a vN revision.
	reAnimeEpisodeMarker = regexp.MustCompile(`\s+-\s+[\dvV]{1,4}\s+`)
	// Standard season/episode tokens; their presence means not anime.
	reStandardMarker = regexp.MustCompile(`(?i)S\d{2}\s*-\s*S\d{2}|S\d{2}|\s+S\d{1,2}|EP?\d{2,4}\s*-\s*EP?\d{2,4}|EP?\d{2,4}|\s+EP?\d{1,4}`)
)

// classifyAnime selects the sub-parser for a raw title.
func classifyAnime(title string) bool {
	if title == "" {
		return false
	}
	if reAnimeCNHeader.MatchString(title) {
		return true
	}
	if reAnimeEpisodeMarker.MatchString(title) {
		return true
	}
	if reStandardMarker.MatchString(title) {
		return false
	}
	return reAnimeBracketHeader.MatchString(title)
}
