// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"regexp"
	"strings"

	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

var (
	reKeywordSeason  = regexp.MustCompile(`第\s*([0-9一二三四五六七八九十百零两]+)\s*季`)
	reKeywordEpisode = regexp.MustCompile(`第\s*([0-9一二三四五六七八九十百零两]+)\s*[集话話期]`)
)

// ExtractKeyword pulls season/episode phrases out of a user-typed
// query ("莲花楼 第2季") so the remote search sees only the name and the
// extracted numbers tighten the filter instead.
func ExtractKeyword(keyword string) (clean string, season, episode int) {
	clean = keyword

	if m := reKeywordSeason.FindStringSubmatch(clean); m != nil {
		if n, ok := stringutils.ChineseToInt(m[1]); ok && n > 0 {
			season = n
			clean = strings.Replace(clean, m[0], " ", 1)
		}
	}
	if m := reKeywordEpisode.FindStringSubmatch(clean); m != nil {
		if n, ok := stringutils.ChineseToInt(m[1]); ok && n > 0 {
			episode = n
			clean = strings.Replace(clean, m[0], " ", 1)
		}
	}

	clean = strings.Join(strings.Fields(clean), " ")
	return clean, season, episode
}
