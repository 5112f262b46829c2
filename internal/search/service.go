// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/aggregarr/aggregarr/internal/filter"
	"github.com/aggregarr/aggregarr/internal/matcher"
	"github.com/aggregarr/aggregarr/internal/mediadata"
	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/metrics"
	"github.com/aggregarr/aggregarr/internal/models"
)

// Scraper fetches raw listings from one source. Implementations wrap
// the per-site HTML/JSON adapters; they signal failure via error and
// must not panic.
type Scraper interface {
	Search(ctx context.Context, source *models.Source, query, mode string) ([]*models.RawListing, error)
}

// Service is the search orchestrator: it selects sources, expands query
// variants, dispatches one concurrent unit per (source, variant) and
// merges the accepted results.
type Service struct {
	scraper Scraper
	sources *models.SourceStore
	matcher *matcher.Matcher
	parser  *metainfo.Parser
	limiter *RateLimiter

	resolver *mediadata.Resolver
	history  *models.SearchHistoryStore
	metrics  *metrics.Metrics

	log zerolog.Logger
}

type Option func(*Service)

// WithResolver enables sibling-season Douban id discovery.
func WithResolver(r *mediadata.Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithHistory records per-unit outcomes to the search history store.
func WithHistory(store *models.SearchHistoryStore) Option {
	return func(s *Service) { s.history = store }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithParser(p *metainfo.Parser) Option {
	return func(s *Service) { s.parser = p }
}

func NewService(scraper Scraper, sources *models.SourceStore, m *matcher.Matcher, opts ...Option) *Service {
	s := &Service{
		scraper: scraper,
		sources: sources,
		matcher: m,
		limiter: NewRateLimiter(),
		log:     log.Logger.With().Str("module", "search").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = metainfo.NewParser()
	}
	return s
}

// Search runs one round for keyword under args against an optional
// target. The returned slice is unsorted; callers needing a single best
// pick apply matcher.Best. Unit failures surface only in the counters,
// never as the returned error, so partial results always flow.
func (s *Service) Search(ctx context.Context, keyword string, args *filter.Args, target *mediadata.Media, notify ProgressFunc) ([]*matcher.MatchResult, matcher.Counters, error) {
	start := time.Now()
	base := args.Copy()

	if keyword == "" {
		keyword = base.Keyword
	}
	clean, season, episode := ExtractKeyword(keyword)
	if season > 0 && len(base.Seasons) == 0 {
		base.Seasons = []int{season}
	}
	if episode > 0 && len(base.Episodes) == 0 {
		base.Episodes = []int{episode}
	}

	all, err := s.sources.ListEnabled(ctx)
	if err != nil {
		return nil, matcher.Counters{}, fmt.Errorf("select sources: %w", err)
	}
	targetType := ""
	if target != nil {
		targetType = target.Type.String()
	}
	selected := selectSources(all, base.Sites, targetType)

	units := buildUnits(selected, clean, target, s.siblingIDs(ctx, selected, target))
	if len(units) == 0 {
		s.log.Debug().Str("keyword", clean).Msg("no eligible sources")
		return nil, matcher.Counters{}, nil
	}

	if s.metrics != nil {
		s.metrics.SearchesTotal.Inc()
	}
	s.log.Info().
		Str("keyword", clean).
		Int("sources", len(selected)).
		Int("units", len(units)).
		Msg("dispatching search")

	progress := NewProgress(len(units), notify)

	var (
		group  errgroup.Group
		mu     sync.Mutex
		merged []*matcher.MatchResult
		totals matcher.Counters
	)

	for _, unit := range units {
		unit := unit
		group.Go(func() error {
			results, counters := s.runUnit(ctx, unit, base.Copy(), target)

			mu.Lock()
			merged = append(merged, results...)
			totals.Merge(counters)
			mu.Unlock()

			progress.Done(fmt.Sprintf("%s (%s)", unit.Source.Name, unit.Mode))
			return nil
		})
	}
	_ = group.Wait()

	totals.Elapsed = time.Since(start)
	if s.metrics != nil {
		s.metrics.SearchDuration.Observe(totals.Elapsed.Seconds())
	}
	s.log.Info().
		Str("keyword", clean).
		Int("accepted", len(merged)).
		Int("ruleFail", totals.RuleFail).
		Int("matchFail", totals.MatchFail).
		Int("errors", totals.Errors).
		Dur("elapsed", totals.Elapsed).
		Msg("search finished")

	return merged, totals, nil
}

// runUnit executes one (source, variant) pair. All failure modes are
// contained here: a panic or scraper error yields empty results and a
// counter bump, never a cancelled sibling.
func (s *Service) runUnit(ctx context.Context, unit Unit, args *filter.Args, target *mediadata.Media) (results []*matcher.MatchResult, counters matcher.Counters) {
	started := time.Now()
	status := "success"
	errMsg := ""

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("source", unit.Source.Name).Msg("search unit panicked")
			results, status, errMsg = nil, "error", fmt.Sprint(r)
			counters.Errors++
		}
		s.recordUnit(unit, args, status, errMsg, len(results), counters.Success, started)
		if s.metrics != nil {
			s.metrics.UnitsTotal.WithLabelValues(unit.Source.Name, status).Inc()
		}
	}()

	if ctx.Err() != nil {
		status, errMsg = "cancelled", ctx.Err().Error()
		return nil, counters
	}

	if limited, msg := s.limiter.CheckAndRecord(unit.Source.ID, LimitsFor(unit.Source)); limited {
		s.log.Debug().Str("source", unit.Source.Name).Str("reason", msg).Msg("source rate limited")
		counters.Observe(matcher.ReasonRateLimited)
		status, errMsg = "rate_limited", msg
		return nil, counters
	}

	listings, err := s.scraper.Search(ctx, unit.Source, unit.Query, unit.Mode)
	if err != nil {
		s.log.Warn().Err(err).Str("source", unit.Source.Name).Str("mode", unit.Mode).Msg("source search failed")
		counters.Observe(matcher.ReasonError)
		status, errMsg = "error", err.Error()
		return nil, counters
	}

	var hint *metainfo.Hint
	if target != nil {
		hint = &metainfo.Hint{Type: target.Type, Year: target.Year}
	}

	accepted := matcher.NewResultSet()
	for _, listing := range listings {
		parsed := s.parser.ParseWithHint(listing.Title, listing.Description, hint)
		_, reason := s.matcher.Resolve(ctx, unit.Source, listing, parsed, target, args, accepted)
		counters.Observe(reason)
		if s.metrics != nil {
			if reason == matcher.ReasonNone {
				s.metrics.ResultsAccepted.Inc()
			} else {
				s.metrics.ResultsRejected.WithLabelValues(reason.String()).Inc()
			}
		}
	}

	return accepted.Items(), counters
}

func (s *Service) recordUnit(unit Unit, args *filter.Args, status, errMsg string, resultCount, acceptedCount int, started time.Time) {
	if s.history == nil {
		return
	}
	entry := &models.SearchHistoryEntry{
		SourceID:      unit.Source.ID,
		SourceName:    unit.Source.Name,
		Query:         unit.Query,
		SearchMode:    unit.Mode,
		Status:        status,
		ResultCount:   resultCount,
		AcceptedCount: acceptedCount,
		DurationMs:    int(time.Since(started).Milliseconds()),
		ErrorMessage:  errMsg,
		StartedAt:     started,
		CompletedAt:   time.Now(),
	}
	if err := s.history.Record(context.Background(), entry); err != nil {
		s.log.Warn().Err(err).Str("source", unit.Source.Name).Msg("failed to record search history")
	}
}

// siblingIDs resolves additional Douban ids for multi-season shows when
// at least one selected source queries by Douban id.
func (s *Service) siblingIDs(ctx context.Context, sources []*models.Source, target *mediadata.Media) []string {
	if s.resolver == nil || target == nil || len(target.Seasons) < 2 {
		return nil
	}
	wanted := false
	for _, source := range sources {
		if source.SupportsMode(models.SearchModeDouban) {
			wanted = true
			break
		}
	}
	if !wanted {
		return nil
	}
	return s.resolver.SiblingSeasonIDs(ctx, target)
}
