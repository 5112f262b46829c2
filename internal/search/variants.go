// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"github.com/aggregarr/aggregarr/internal/mediadata"
	"github.com/aggregarr/aggregarr/internal/models"
	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

// Unit is one dispatched (source, query variant) pair.
type Unit struct {
	Source *models.Source
	Query  string
	Mode   string
}

// buildUnits expands the selected sources into concrete query variants
// based on each source's declared capabilities. Every source gets the
// plain keyword; id and alias variants are added when the target
// supplies them. siblingDoubanIDs widens multi-season shows on sources
// that query by Douban id.
func buildUnits(sources []*models.Source, keyword string, target *mediadata.Media, siblingDoubanIDs []string) []Unit {
	var units []Unit

	for _, source := range sources {
		units = append(units, Unit{Source: source, Query: keyword, Mode: models.SearchModeKeyword})

		if target == nil {
			continue
		}

		if alias := englishAlias(target); alias != "" && alias != keyword &&
			source.SupportsMode(models.SearchModeEnglish) {
			units = append(units, Unit{Source: source, Query: alias, Mode: models.SearchModeEnglish})
		}

		if target.IMDBID != "" && source.SupportsMode(models.SearchModeIMDB) {
			units = append(units, Unit{Source: source, Query: target.IMDBID, Mode: models.SearchModeIMDB})
		}

		if source.SupportsMode(models.SearchModeDouban) {
			if target.DoubanID != "" {
				units = append(units, Unit{Source: source, Query: target.DoubanID, Mode: models.SearchModeDouban})
			}
			for _, id := range siblingDoubanIDs {
				units = append(units, Unit{Source: source, Query: id, Mode: models.SearchModeDouban})
			}
		}
	}

	return units
}

// englishAlias picks a Latin-script title for sources that index only
// romanized names.
func englishAlias(target *mediadata.Media) string {
	for _, name := range target.Names() {
		if name != "" && !stringutils.ContainsChinese(name) {
			return name
		}
	}
	return ""
}

// selectSources applies the explicit site allowlist, or falls back to
// target-type compatibility when a target is given without one.
func selectSources(sources []*models.Source, sites []string, targetType string) []*models.Source {
	selected := make([]*models.Source, 0, len(sources))
	for _, source := range sources {
		if len(sites) > 0 {
			if containsFold(sites, source.Name) {
				selected = append(selected, source)
			}
			continue
		}
		if targetType != "" && !source.SupportsType(targetType) {
			continue
		}
		selected = append(selected, source)
	}
	return selected
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if stringutils.Normalize(s) == stringutils.Normalize(needle) {
			return true
		}
	}
	return false
}
