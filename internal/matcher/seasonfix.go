// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import (
	"strings"

	"github.com/aggregarr/aggregarr/internal/mediadata"
	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

// FixSeasonByTable corrects season and episode numbers against the
// target's known season table. CJK shows often number a season into the
// title ("奔跑吧4") and number episodes continuously across seasons;
// both need the table to untangle.
func FixSeasonByTable(parsed *metainfo.ParsedTitle, media *mediadata.Media) {
	if media == nil || len(media.Seasons) == 0 || !media.Type.IsSeries() {
		return
	}

	if !parsed.HasSeason() && parsed.Year != "" {
		if frag, ok := trailingFragment(parsed, media); ok {
			if _, numeric := stringutils.ChineseToInt(frag); numeric {
				if season := uniqueSeasonByYear(media, parsed.Year); season != nil {
					parsed.BeginSeason = season.Number
					parsed.TotalSeasons = 1
				}
			}
		}
	}

	renumberEpisodes(parsed, media)
}

// trailingFragment returns what remains of a parsed name after removing
// the longest matching canonical alias prefix.
func trailingFragment(parsed *metainfo.ParsedTitle, media *mediadata.Media) (string, bool) {
	for _, parsedName := range []string{parsed.CNName, parsed.ENName} {
		if parsedName == "" {
			continue
		}
		name := stringutils.Simplified(stringutils.FoldWidth(parsedName))
		for _, alias := range media.Names() {
			prefix := stringutils.Simplified(stringutils.FoldWidth(alias))
			if prefix == "" || !strings.HasPrefix(name, prefix) {
				continue
			}
			if frag := strings.TrimSpace(strings.TrimPrefix(name, prefix)); frag != "" {
				return frag, true
			}
		}
	}
	return "", false
}

func uniqueSeasonByYear(media *mediadata.Media, year string) *mediadata.SeasonInfo {
	var found *mediadata.SeasonInfo
	for i := range media.Seasons {
		if media.Seasons[i].AirYear() != year {
			continue
		}
		if found != nil {
			return nil
		}
		found = &media.Seasons[i]
	}
	return found
}

// renumberEpisodes rebases continuously numbered episodes onto the
// matched season when the parsed number exceeds that season's count.
func renumberEpisodes(parsed *metainfo.ParsedTitle, media *mediadata.Media) {
	if !parsed.HasSeason() || !parsed.HasEpisode() {
		return
	}
	season := media.Season(parsed.BeginSeason)
	if season == nil || season.EpisodeCount <= 0 || parsed.BeginEpisode <= season.EpisodeCount {
		return
	}

	offset := 0
	for _, s := range media.Seasons {
		if s.Number < parsed.BeginSeason {
			offset += s.EpisodeCount
		}
	}
	if offset == 0 || parsed.BeginEpisode <= offset {
		return
	}

	parsed.BeginEpisode -= offset
	if parsed.EndEpisode > offset {
		parsed.EndEpisode -= offset
	}
}
