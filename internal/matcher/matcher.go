// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aggregarr/aggregarr/internal/filter"
	"github.com/aggregarr/aggregarr/internal/mediadata"
	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/models"
	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

// Matcher runs the accept/reject cascade for one listing at a time.
// It is safe for concurrent use by parallel search units; upgradeMu
// serializes the read-compare-write on target.ResOrder, which all units
// of one search share.
type Matcher struct {
	resolver  *mediadata.Resolver
	evaluator filter.Evaluator
	norm      *stringutils.Normalizer
	upgradeMu sync.Mutex
	log       zerolog.Logger
}

func New(resolver *mediadata.Resolver, evaluator filter.Evaluator) *Matcher {
	return &Matcher{
		resolver:  resolver,
		evaluator: evaluator,
		norm:      stringutils.NewNormalizer(),
		log:       log.Logger.With().Str("module", "matcher").Logger(),
	}
}

// Resolve decides whether raw/parsed refers to target under args and,
// on acceptance, inserts the result into accepted. target may be nil
// (discovery mode: no canonical resolution, only filter checks). The
// returned result is nil whenever the reason is not ReasonNone.
//
// The cascade is ordered cheap to expensive; only the final step may
// reach the canonical provider over the network.
func (m *Matcher) Resolve(ctx context.Context, source *models.Source, raw *models.RawListing, parsed *metainfo.ParsedTitle, target *mediadata.Media, args *filter.Args, accepted *ResultSet) (*MatchResult, Reason) {
	if parsed == nil || parsed.IsUnparsed() {
		return nil, ReasonNoName
	}

	if ((args != nil && args.RequireSeeders) || source.RequireSeeders) &&
		!source.Public && raw.Seeders == 0 {
		m.log.Trace().Str("title", raw.Title).Str("source", source.Name).Msg("rejected: no seeders")
		return nil, ReasonRule
	}

	if args != nil && !args.Type.Compatible(parsed.Type) {
		return nil, ReasonRule
	}

	matched, rulePriority, ruleName := m.evaluator.Evaluate(parsed, args, filter.Factors{
		Upload:   raw.UploadFactor,
		Download: raw.DownloadFactor,
	})
	if !matched {
		m.log.Trace().Str("title", raw.Title).Str("message", ruleName).Msg("rejected: filter rule")
		return nil, ReasonRule
	}

	if target != nil {
		if reason := m.resolveAgainstTarget(ctx, raw, parsed, target); reason != ReasonNone {
			return nil, reason
		}
	}

	if args != nil {
		if !args.AllowsSeason(parsed) || !args.AllowsEpisode(parsed) || !args.AllowsYear(parsed) {
			return nil, ReasonMatchFail
		}
	}

	result := newMatchResult(source, raw, parsed, rulePriority, ruleName)
	if target != nil {
		result.MediaID = target.ID
	}

	if target != nil && target.OverEdition {
		// The upgrade gate compares against target.ResOrder and writes it
		// back on acceptance. Parallel units share target, so the compare
		// and the write must not interleave.
		m.upgradeMu.Lock()
		defer m.upgradeMu.Unlock()
		if reason := checkUpgrade(parsed, target, rulePriority); reason != ReasonNone {
			return nil, reason
		}
		if !accepted.Add(result) {
			return nil, ReasonRule
		}
		target.ResOrder = rulePriority
		return result, ReasonNone
	}

	if !accepted.Add(result) {
		return nil, ReasonRule
	}
	return result, ReasonNone
}

// resolveAgainstTarget runs the canonical resolution cascade, mutating
// parsed via season-table correction on a successful merge.
func (m *Matcher) resolveAgainstTarget(ctx context.Context, raw *models.RawListing, parsed *metainfo.ParsedTitle, target *mediadata.Media) Reason {
	merged := false

	// Exact external id, free.
	if raw.IMDBID != "" && target.IMDBID != "" && raw.IMDBID == target.IMDBID {
		merged = true
	}

	// Cache hit, no network. Entries are keyed under the target's type:
	// that is what the secondary lookup below writes, and a parse-side
	// anime classification must not miss a tv-keyed entry.
	if !merged {
		if id, ok := m.resolver.CachedID(ctx, parsed.Name(), target.Type, parsed.Year, firstSeason(parsed)); ok && id == target.ID {
			merged = true
		}
	}

	// Year window before any name work: a known release year that
	// disagrees means a different production entirely.
	if !merged && target.Year != "" && parsed.Year != "" && target.Year != parsed.Year {
		return ReasonError
	}

	// Alias equality, string-only.
	if !merged && m.nameMatchesTarget(parsed, target) {
		merged = true
	}

	// Last resort: one provider lookup by parsed name.
	if !merged {
		name := parsed.Name()
		if parsed.Year == "" && parsed.CNName != "" && parsed.ENName != "" {
			name = parsed.CNName + " " + parsed.ENName
		}
		media, err := m.resolver.Resolve(ctx, name, target.Type, parsed.Year, firstSeason(parsed))
		if err != nil {
			m.log.Debug().Err(err).Str("name", name).Msg("secondary lookup failed")
			return ReasonError
		}
		if media == nil || media.ID != target.ID {
			return ReasonMatchFail
		}
		merged = true
	}

	if target.Type.IsSeries() && len(target.Seasons) > 0 {
		FixSeasonByTable(parsed, target)
		if maxSeason := target.MaxSeason(); maxSeason > 0 && parsed.HasSeason() {
			end := parsed.EndSeason
			if end < parsed.BeginSeason {
				end = parsed.BeginSeason
			}
			if parsed.BeginSeason > maxSeason || end > maxSeason {
				return ReasonError
			}
		}
	}

	return ReasonNone
}

// nameMatchesTarget compares every parsed name candidate against every
// known target alias under script-folding normalization.
func (m *Matcher) nameMatchesTarget(parsed *metainfo.ParsedTitle, target *mediadata.Media) bool {
	candidates := make([]string, 0, 4)
	if parsed.CNName != "" {
		candidates = append(candidates, parsed.CNName)
	}
	if parsed.ENName != "" {
		candidates = append(candidates, parsed.ENName)
	}
	// Subtitles carry alternate names split by slashes and interpuncts.
	if parsed.Processed != "" && parsed.Processed != parsed.Original {
		candidates = append(candidates, stringutils.SplitWords(parsed.Processed)...)
	}

	for _, alias := range target.Names() {
		normAlias := m.norm.Normalize(alias)
		if normAlias == "" {
			continue
		}
		for _, candidate := range candidates {
			if m.norm.Normalize(candidate) == normAlias {
				return true
			}
		}
	}
	return false
}

// checkUpgrade gates upgrade-mode acceptance on a strict priority
// improvement; equal priority is a reject.
func checkUpgrade(parsed *metainfo.ParsedTitle, target *mediadata.Media, rulePriority int) Reason {
	if target.Type != metainfo.TypeMovie && parsed.HasEpisode() {
		season := target.Season(firstSeason(parsed))
		if season == nil || parsed.TotalEpisodes < season.EpisodeCount {
			// Partial seasons never upgrade a held copy.
			return ReasonRule
		}
	}
	if rulePriority >= target.ResOrder {
		return ReasonRule
	}
	return ReasonNone
}

func firstSeason(parsed *metainfo.ParsedTitle) int {
	if parsed.HasSeason() {
		return parsed.BeginSeason
	}
	return 0
}
