// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import (
	"sort"
	"strconv"
	"strings"

	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

// SortResults orders results by the composite selection key: title,
// then season/episode coverage (bigger packs first), rule priority
// (lower better), resolution (higher better), seeders, publish date
// (newer first), size (smaller first) and finally source order.
// Downstream best-pick dedup relies on this exact ordering.
func SortResults(results []*MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]

		an, bn := sortName(a), sortName(b)
		if an != bn {
			return an < bn
		}
		if a.TotalSeasons != b.TotalSeasons {
			return a.TotalSeasons > b.TotalSeasons
		}
		if a.TotalEpisodes != b.TotalEpisodes {
			return a.TotalEpisodes > b.TotalEpisodes
		}
		if a.RulePriority != b.RulePriority {
			return a.RulePriority < b.RulePriority
		}
		if ap, bp := pixHeight(a.ResourcePix), pixHeight(b.ResourcePix); ap != bp {
			return ap > bp
		}
		if a.Seeders != b.Seeders {
			return a.Seeders > b.Seeders
		}
		if !a.PublishDate.Equal(b.PublishDate) {
			return a.PublishDate.After(b.PublishDate)
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.SiteOrder < b.SiteOrder
	})
}

// Best returns the top-ranked result without mutating the input order.
func Best(results []*MatchResult) *MatchResult {
	if len(results) == 0 {
		return nil
	}
	ranked := make([]*MatchResult, len(results))
	copy(ranked, results)
	SortResults(ranked)
	return ranked[0]
}

func sortName(r *MatchResult) string {
	return stringutils.Normalize(stringutils.Simplified(r.Name()))
}

// pixHeight extracts the numeric height from a "<n>p" token, 0 when absent.
func pixHeight(pix string) int {
	pix = strings.TrimSuffix(strings.ToLower(pix), "p")
	n, err := strconv.Atoi(pix)
	if err != nil {
		return 0
	}
	return n
}
