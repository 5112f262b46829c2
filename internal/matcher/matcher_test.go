// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggregarr/aggregarr/internal/database"
	"github.com/aggregarr/aggregarr/internal/filter"
	"github.com/aggregarr/aggregarr/internal/mediadata"
	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/models"
)

type stubEvaluator struct {
	matched  bool
	priority int
}

func (s stubEvaluator) Evaluate(*metainfo.ParsedTitle, *filter.Args, filter.Factors) (bool, int, string) {
	return s.matched, s.priority, ""
}

type countingProvider struct {
	lookups atomic.Int64
	byName  map[string]*mediadata.Media
}

func (p *countingProvider) Lookup(_ context.Context, name string, _ metainfo.MediaType, _ string, _ int) (*mediadata.Media, error) {
	p.lookups.Add(1)
	return p.byName[name], nil
}

func (p *countingProvider) LookupAllNames(context.Context, metainfo.MediaType, int64) ([]string, error) {
	return nil, nil
}

func (p *countingProvider) LookupSeasons(context.Context, int64) ([]mediadata.SeasonInfo, error) {
	return nil, nil
}

func (p *countingProvider) Search(context.Context, string) ([]*mediadata.Media, error) {
	return nil, nil
}

func newTestMatcher(t *testing.T, provider mediadata.Provider, eval filter.Evaluator) *Matcher {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	resolver := mediadata.NewResolver(provider, models.NewResolutionCacheStore(db.Conn()))
	return New(resolver, eval)
}

func testSource() *models.Source {
	return &models.Source{ID: 1, Name: "tracker-a", Priority: 80, Public: false}
}

func testListing(title string) *models.RawListing {
	return &models.RawListing{
		Title:          title,
		Enclosure:      "https://tracker-a.example/dl/1",
		Size:           4 << 30,
		Seeders:        12,
		UploadFactor:   1,
		DownloadFactor: 1,
		PublishDate:    time.Now(),
		SourceID:       1,
	}
}

func TestMatcher_DuplicateSuppression(t *testing.T) {
	ctx := context.Background()
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	raw := testListing("Example.Show.S02E05.1080p.WEB-DL.x264-GROUP")
	parsed := parser.Parse(raw.Title, "")
	accepted := NewResultSet()

	result, reason := m.Resolve(ctx, testSource(), raw, parsed, nil, nil, accepted)
	require.Equal(t, ReasonNone, reason)
	require.NotNil(t, result)

	result, reason = m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), nil, nil, accepted)
	assert.Equal(t, ReasonRule, reason, "second identical offer counts as rule_fail")
	assert.Nil(t, result)
	assert.Equal(t, 1, accepted.Len())
}

func TestMatcher_UnparsedIsNoName(t *testing.T) {
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	raw := testListing("----")
	_, reason := m.Resolve(context.Background(), testSource(), raw, parser.Parse(raw.Title, ""), nil, nil, NewResultSet())
	assert.Equal(t, ReasonNoName, reason)
}

func TestMatcher_SeedersRule(t *testing.T) {
	ctx := context.Background()
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true})
	parser := metainfo.NewParser()
	args := &filter.Args{RequireSeeders: true}

	raw := testListing("Example.Show.S02E05.1080p.WEB-DL.x264-GROUP")
	raw.Seeders = 0

	t.Run("private source with zero seeders is rejected", func(t *testing.T) {
		_, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), nil, args, NewResultSet())
		assert.Equal(t, ReasonRule, reason)
	})

	t.Run("public source with zero seeders is accepted", func(t *testing.T) {
		source := testSource()
		source.Public = true
		_, reason := m.Resolve(ctx, source, raw, parser.Parse(raw.Title, ""), nil, args, NewResultSet())
		assert.Equal(t, ReasonNone, reason)
	})

	t.Run("per-source flag applies without the search flag", func(t *testing.T) {
		source := testSource()
		source.RequireSeeders = true
		_, reason := m.Resolve(ctx, source, raw, parser.Parse(raw.Title, ""), nil, nil, NewResultSet())
		assert.Equal(t, ReasonRule, reason)
	})
}

func TestMatcher_TypeFilter(t *testing.T) {
	ctx := context.Background()
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	raw := testListing("Example.Show.S02E05.1080p.WEB-DL.x264-GROUP")
	parsed := parser.Parse(raw.Title, "")
	require.Equal(t, metainfo.TypeTV, parsed.Type)

	_, reason := m.Resolve(ctx, testSource(), raw, parsed, nil, &filter.Args{Type: metainfo.TypeMovie}, NewResultSet())
	assert.Equal(t, ReasonRule, reason)

	// Anime is compatible with both sides of the movie/tv check.
	_, reason = m.Resolve(ctx, testSource(), raw, parsed, nil, &filter.Args{Type: metainfo.TypeAnime}, NewResultSet())
	assert.Equal(t, ReasonNone, reason)
}

func TestMatcher_FilterRuleReject(t *testing.T) {
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: false})
	parser := metainfo.NewParser()

	raw := testListing("Example.Show.S02E05.1080p.WEB-DL.x264-GROUP")
	_, reason := m.Resolve(context.Background(), testSource(), raw, parser.Parse(raw.Title, ""), nil, nil, NewResultSet())
	assert.Equal(t, ReasonRule, reason)
}

func TestMatcher_IMDBMerge(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{}
	m := newTestMatcher(t, provider, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	target := &mediadata.Media{ID: 7, Type: metainfo.TypeTV, Title: "Something Else", IMDBID: "tt0944947"}
	raw := testListing("Example.Show.S01E01.1080p.WEB-DL.x264-GROUP")
	raw.IMDBID = "tt0944947"

	result, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
	require.Equal(t, ReasonNone, reason)
	assert.Equal(t, int64(7), result.MediaID)
	assert.Equal(t, int64(0), provider.lookups.Load(), "id equality must not reach the provider")
}

func TestMatcher_CacheMergeUsesTargetType(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := models.NewResolutionCacheStore(db.Conn())
	provider := &countingProvider{}
	m := New(mediadata.NewResolver(provider, cache), stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	// The listing classifies as anime, but the cache entry was written
	// under the target's tv type by an earlier secondary lookup. The
	// fast path must key on the target's type to find it.
	raw := testListing("[SubGroup] Example Anime - 05 [1080p]")
	parsed := parser.Parse(raw.Title, "")
	require.Equal(t, metainfo.TypeAnime, parsed.Type)

	target := &mediadata.Media{ID: 7, Type: metainfo.TypeTV, Title: "Unrelated Alias"}
	require.NoError(t, cache.Put(ctx, &models.ResolutionCacheEntry{
		Key:       mediadata.CacheKey(target.Type, parsed.Name(), parsed.Year, 0),
		MediaID:   7,
		MediaType: target.Type.String(),
		Title:     target.Title,
	}))

	result, reason := m.Resolve(ctx, testSource(), raw, parsed, target, nil, NewResultSet())
	require.Equal(t, ReasonNone, reason)
	assert.Equal(t, int64(7), result.MediaID)
	assert.Equal(t, int64(0), provider.lookups.Load(), "cache hit must not reach the provider")
}

func TestMatcher_YearWindowReject(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{}
	m := newTestMatcher(t, provider, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	// Same name, wrong year: the year gate fires before alias equality.
	target := &mediadata.Media{ID: 7, Type: metainfo.TypeTV, Title: "Example Show", Year: "2018"}
	raw := testListing("Example.Show.2020.S01E01.1080p.WEB-DL.x264-GROUP")

	_, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
	assert.Equal(t, ReasonError, reason)
	assert.Equal(t, int64(0), provider.lookups.Load())
}

func TestMatcher_NameEqualityMerge(t *testing.T) {
	ctx := context.Background()
	provider := &countingProvider{}
	m := newTestMatcher(t, provider, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	target := &mediadata.Media{ID: 7, Type: metainfo.TypeTV, Title: "Example Show", Year: "2020"}
	raw := testListing("Example.Show.S01E01.1080p.WEB-DL.x264-GROUP")

	result, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
	require.Equal(t, ReasonNone, reason)
	assert.Equal(t, int64(7), result.MediaID)
	assert.Equal(t, int64(0), provider.lookups.Load(), "alias equality must not reach the provider")
}

func TestMatcher_SecondaryLookup(t *testing.T) {
	ctx := context.Background()
	parser := metainfo.NewParser()
	raw := testListing("Example.Show.S01E01.1080p.WEB-DL.x264-GROUP")

	t.Run("different id rejects match_fail", func(t *testing.T) {
		provider := &countingProvider{byName: map[string]*mediadata.Media{
			"Example Show": {ID: 99, Type: metainfo.TypeTV, Title: "Example Show"},
		}}
		m := newTestMatcher(t, provider, stubEvaluator{matched: true})
		target := &mediadata.Media{ID: 7, Type: metainfo.TypeTV, Title: "Unrelated Name"}

		_, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
		assert.Equal(t, ReasonMatchFail, reason)
		assert.Equal(t, int64(1), provider.lookups.Load())
	})

	t.Run("matching id merges", func(t *testing.T) {
		provider := &countingProvider{byName: map[string]*mediadata.Media{
			"Example Show": {ID: 7, Type: metainfo.TypeTV, Title: "Alias Of Example"},
		}}
		m := newTestMatcher(t, provider, stubEvaluator{matched: true})
		target := &mediadata.Media{ID: 7, Type: metainfo.TypeTV, Title: "Alias Of Example"}

		result, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
		require.Equal(t, ReasonNone, reason)
		assert.Equal(t, int64(7), result.MediaID)
	})
}

func TestMatcher_SeasonBeyondTable(t *testing.T) {
	ctx := context.Background()
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	target := &mediadata.Media{
		ID: 7, Type: metainfo.TypeTV, Title: "Example Show",
		Seasons: []mediadata.SeasonInfo{
			{Number: 1, AirDate: "2019-01-01", EpisodeCount: 10},
			{Number: 2, AirDate: "2020-01-01", EpisodeCount: 10},
		},
	}
	raw := testListing("Example.Show.S03E01.1080p.WEB-DL.x264-GROUP")

	_, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
	assert.Equal(t, ReasonError, reason)
}

func TestMatcher_SeasonEpisodeArgs(t *testing.T) {
	ctx := context.Background()
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true})
	parser := metainfo.NewParser()

	raw := testListing("Example.Show.S02E05.1080p.WEB-DL.x264-GROUP")
	parsed := parser.Parse(raw.Title, "")

	_, reason := m.Resolve(ctx, testSource(), raw, parsed, nil, &filter.Args{Seasons: []int{3}}, NewResultSet())
	assert.Equal(t, ReasonMatchFail, reason)

	_, reason = m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), nil, &filter.Args{Seasons: []int{2}, Episodes: []int{5}}, NewResultSet())
	assert.Equal(t, ReasonNone, reason)
}

func TestMatcher_UpgradeMode(t *testing.T) {
	ctx := context.Background()
	parser := metainfo.NewParser()
	raw := testListing("Example.Movie.2020.2160p.WEB-DL.x265-GROUP")

	newTarget := func() *mediadata.Media {
		return &mediadata.Media{
			ID: 7, Type: metainfo.TypeMovie, Title: "Example Movie", Year: "2020",
			OverEdition: true, ResOrder: 10,
		}
	}

	t.Run("worse priority rejects", func(t *testing.T) {
		m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true, priority: 20})
		target := newTarget()
		_, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
		assert.Equal(t, ReasonRule, reason)
		assert.Equal(t, 10, target.ResOrder, "rejected candidate must not touch the held priority")
	})

	t.Run("equal priority rejects", func(t *testing.T) {
		m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true, priority: 10})
		_, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), newTarget(), nil, NewResultSet())
		assert.Equal(t, ReasonRule, reason)
	})

	t.Run("better priority accepts and writes back", func(t *testing.T) {
		m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true, priority: 5})
		target := newTarget()
		result, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
		require.Equal(t, ReasonNone, reason)
		require.NotNil(t, result)
		assert.Equal(t, 5, target.ResOrder)
	})

	t.Run("partial season never upgrades", func(t *testing.T) {
		m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true, priority: 5})
		target := &mediadata.Media{
			ID: 7, Type: metainfo.TypeTV, Title: "Example Show", Year: "2020",
			OverEdition: true, ResOrder: 10,
			Seasons: []mediadata.SeasonInfo{{Number: 2, AirDate: "2020-01-01", EpisodeCount: 10}},
		}
		episodeRaw := testListing("Example.Show.S02E05.2160p.WEB-DL.x265-GROUP")
		_, reason := m.Resolve(ctx, testSource(), episodeRaw, parser.Parse(episodeRaw.Title, ""), target, nil, NewResultSet())
		assert.Equal(t, ReasonRule, reason)
	})
}

func TestMatcher_UpgradeConcurrentUnits(t *testing.T) {
	ctx := context.Background()
	parser := metainfo.NewParser()
	m := newTestMatcher(t, &countingProvider{}, stubEvaluator{matched: true, priority: 5})

	// All units of one search share the target, each with its own
	// accepted set. Every offer beats the held priority, but only the
	// first acceptance may win; the rest must observe the write-back.
	target := &mediadata.Media{
		ID: 7, Type: metainfo.TypeMovie, Title: "Example Movie", Year: "2020",
		OverEdition: true, ResOrder: 10,
	}

	const units = 16
	var accepts atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < units; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw := testListing("Example.Movie.2020.2160p.WEB-DL.x265-GROUP")
			_, reason := m.Resolve(ctx, testSource(), raw, parser.Parse(raw.Title, ""), target, nil, NewResultSet())
			if reason == ReasonNone {
				accepts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), accepts.Load(), "exactly one unit may claim the upgrade")
	assert.Equal(t, 5, target.ResOrder)
}

func TestFixSeasonByTable(t *testing.T) {
	media := &mediadata.Media{
		ID: 7, Type: metainfo.TypeTV, Title: "奔跑吧",
		Seasons: []mediadata.SeasonInfo{
			{Number: 1, AirDate: "2017-04-01", EpisodeCount: 12},
			{Number: 2, AirDate: "2018-04-01", EpisodeCount: 12},
			{Number: 3, AirDate: "2019-04-01", EpisodeCount: 12},
			{Number: 4, AirDate: "2020-05-01", EpisodeCount: 12},
		},
	}

	t.Run("trailing number resolves season by air year", func(t *testing.T) {
		parsed := &metainfo.ParsedTitle{
			CNName: "奔跑吧4", Year: "2020", Type: metainfo.TypeTV,
			BeginSeason: -1, EndSeason: -1, BeginEpisode: -1, EndEpisode: -1,
		}
		FixSeasonByTable(parsed, media)
		assert.Equal(t, 4, parsed.BeginSeason)
	})

	t.Run("ambiguous air year leaves season alone", func(t *testing.T) {
		twoInOneYear := &mediadata.Media{
			ID: 7, Type: metainfo.TypeTV, Title: "奔跑吧",
			Seasons: []mediadata.SeasonInfo{
				{Number: 1, AirDate: "2020-01-01", EpisodeCount: 12},
				{Number: 2, AirDate: "2020-09-01", EpisodeCount: 12},
			},
		}
		parsed := &metainfo.ParsedTitle{
			CNName: "奔跑吧2", Year: "2020", Type: metainfo.TypeTV,
			BeginSeason: -1, EndSeason: -1, BeginEpisode: -1, EndEpisode: -1,
		}
		FixSeasonByTable(parsed, twoInOneYear)
		assert.False(t, parsed.HasSeason())
	})

	t.Run("continuous episode numbering rebases onto season", func(t *testing.T) {
		parsed := &metainfo.ParsedTitle{
			CNName: "奔跑吧", Type: metainfo.TypeTV,
			BeginSeason: 2, EndSeason: -1, BeginEpisode: 15, EndEpisode: -1, TotalEpisodes: 1,
		}
		FixSeasonByTable(parsed, media)
		assert.Equal(t, 3, parsed.BeginEpisode, "episode 15 is the third episode of season 2")
	})

	t.Run("in-range episode untouched", func(t *testing.T) {
		parsed := &metainfo.ParsedTitle{
			CNName: "奔跑吧", Type: metainfo.TypeTV,
			BeginSeason: 2, EndSeason: -1, BeginEpisode: 7, EndEpisode: -1, TotalEpisodes: 1,
		}
		FixSeasonByTable(parsed, media)
		assert.Equal(t, 7, parsed.BeginEpisode)
	})
}

func TestSortResultsAndBest(t *testing.T) {
	now := time.Now()

	a := &MatchResult{ParsedTitle: metainfo.ParsedTitle{ENName: "Example Show", ResourcePix: "1080p"}, RulePriority: 4, Seeders: 50, PublishDate: now, Size: 2 << 30, SiteOrder: 20}
	b := &MatchResult{ParsedTitle: metainfo.ParsedTitle{ENName: "Example Show", ResourcePix: "2160p"}, RulePriority: 2, Seeders: 10, PublishDate: now, Size: 8 << 30, SiteOrder: 20}
	c := &MatchResult{ParsedTitle: metainfo.ParsedTitle{ENName: "Example Show", ResourcePix: "2160p"}, RulePriority: 2, Seeders: 90, PublishDate: now, Size: 9 << 30, SiteOrder: 20}

	results := []*MatchResult{a, b, c}
	best := Best(results)
	assert.Same(t, c, best, "same rule priority ranks by seeders")
	assert.Same(t, a, results[0], "Best must not reorder the input")

	SortResults(results)
	assert.Same(t, c, results[0])
	assert.Same(t, b, results[1])
	assert.Same(t, a, results[2])
}

func TestCounters(t *testing.T) {
	var c Counters
	for _, r := range []Reason{ReasonNone, ReasonNone, ReasonRule, ReasonNoName, ReasonMatchFail, ReasonError, ReasonRateLimited} {
		c.Observe(r)
	}
	assert.Equal(t, 2, c.Success)
	assert.Equal(t, 2, c.RuleFail)
	assert.Equal(t, 1, c.MatchFail)
	assert.Equal(t, 1, c.Errors)
	assert.Equal(t, 1, c.RateLimited)

	other := Counters{Success: 1, Elapsed: 5 * time.Second}
	c.Merge(other)
	assert.Equal(t, 3, c.Success)
	assert.Equal(t, 5*time.Second, c.Elapsed)
}
