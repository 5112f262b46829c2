// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mediadata

import (
	"context"
	"strconv"

	"github.com/avast/retry-go"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/models"
	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

const lookupAttempts = 3

// Resolver fronts a Provider with the persistent resolution cache and
// collapses concurrent identical lookups. Search tasks for different
// sources routinely race on the same parsed name; only one of them
// should reach the provider.
type Resolver struct {
	provider Provider
	cache    *models.ResolutionCacheStore
	sf       singleflight.Group
	norm     *stringutils.Normalizer
	log      zerolog.Logger
}

func NewResolver(provider Provider, cache *models.ResolutionCacheStore) *Resolver {
	return &Resolver{
		provider: provider,
		cache:    cache,
		norm:     stringutils.NewNormalizer(),
		log:      log.Logger.With().Str("module", "mediadata").Logger(),
	}
}

// Resolve looks up name, serving from cache when possible. A nil result
// with nil error means the name is known to resolve to nothing, either
// freshly or via the negative cache.
func (r *Resolver) Resolve(ctx context.Context, name string, mediaType metainfo.MediaType, year string, season int) (*Media, error) {
	if name == "" {
		return nil, nil
	}
	key := CacheKey(mediaType, name, year, season)

	if r.cache != nil {
		entry, err := r.cache.Get(ctx, key)
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("resolution cache read failed")
		} else if entry != nil {
			if entry.Negative() {
				return nil, nil
			}
			return &Media{
				ID:     entry.MediaID,
				Type:   metainfo.ParseMediaType(entry.MediaType),
				Title:  entry.Title,
				Year:   entry.Year,
				Poster: entry.Poster,
			}, nil
		}
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		return r.lookupAndStore(ctx, key, name, mediaType, year, season)
	})
	if err != nil {
		return nil, err
	}
	media, _ := v.(*Media)
	return media, nil
}

// CachedID returns the cached canonical id for a lookup without touching
// the provider. ok is false on miss; a negative entry yields (0, true).
func (r *Resolver) CachedID(ctx context.Context, name string, mediaType metainfo.MediaType, year string, season int) (int64, bool) {
	if r.cache == nil || name == "" {
		return 0, false
	}
	entry, err := r.cache.Get(ctx, CacheKey(mediaType, name, year, season))
	if err != nil || entry == nil {
		return 0, false
	}
	return entry.MediaID, true
}

func (r *Resolver) lookupAndStore(ctx context.Context, key, name string, mediaType metainfo.MediaType, year string, season int) (*Media, error) {
	var media *Media
	err := retry.Do(
		func() error {
			var lookupErr error
			media, lookupErr = r.provider.Lookup(ctx, name, mediaType, year, season)
			return lookupErr
		},
		retry.Attempts(lookupAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	if r.cache == nil {
		return media, nil
	}

	if media == nil {
		if cacheErr := r.cache.PutNegative(ctx, key); cacheErr != nil {
			r.log.Warn().Err(cacheErr).Str("key", key).Msg("negative cache write failed")
		}
		return nil, nil
	}

	entry := &models.ResolutionCacheEntry{
		Key:       key,
		MediaID:   media.ID,
		MediaType: media.Type.String(),
		Title:     media.Title,
		Year:      media.Year,
		Poster:    media.Poster,
	}
	if cacheErr := r.cache.Put(ctx, entry); cacheErr != nil {
		r.log.Warn().Err(cacheErr).Str("key", key).Msg("resolution cache write failed")
	}

	return media, nil
}

// SearchBest runs a provider keyword search and picks the candidate
// whose title is closest to the keyword, preferring the requested type.
func (r *Resolver) SearchBest(ctx context.Context, keyword string, mediaType metainfo.MediaType) (*Media, error) {
	candidates, err := r.provider.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	normKeyword := r.norm.Normalize(keyword)
	var best *Media
	bestRank := -1

	for _, candidate := range candidates {
		if mediaType != metainfo.TypeUnknown && !candidate.Type.Compatible(mediaType) {
			continue
		}
		for _, name := range candidate.Names() {
			rank := fuzzy.RankMatchNormalizedFold(normKeyword, r.norm.Normalize(name))
			if rank < 0 {
				continue
			}
			if best == nil || rank < bestRank {
				best = candidate
				bestRank = rank
			}
		}
	}

	if best == nil {
		best = candidates[0]
	}

	r.log.Debug().
		Str("keyword", keyword).
		Int64("mediaID", best.ID).
		Int("rank", bestRank).
		Msg("picked closest search candidate")

	return best, nil
}

// EnrichSeasons fills media.Seasons from the provider when absent.
func (r *Resolver) EnrichSeasons(ctx context.Context, media *Media) error {
	if media == nil || media.ID == 0 || len(media.Seasons) > 0 || !media.Type.IsSeries() {
		return nil
	}
	seasons, err := r.provider.LookupSeasons(ctx, media.ID)
	if err != nil {
		return err
	}
	media.Seasons = seasons
	return nil
}

// SiblingSeasonIDs discovers provider ids for the other seasons of a
// multi-season show by name, used to widen id-capable source queries.
func (r *Resolver) SiblingSeasonIDs(ctx context.Context, media *Media) []string {
	if media == nil || len(media.Seasons) < 2 {
		return nil
	}
	candidates, err := r.provider.Search(ctx, media.Title)
	if err != nil {
		r.log.Debug().Err(err).Str("title", media.Title).Msg("sibling season search failed")
		return nil
	}

	normTitle := r.norm.Normalize(media.Title)
	var ids []string
	for _, candidate := range candidates {
		if candidate.ID == media.ID || candidate.DoubanID == "" {
			continue
		}
		for _, name := range candidate.Names() {
			if r.norm.Normalize(name) == normTitle ||
				fuzzy.MatchNormalizedFold(normTitle, r.norm.Normalize(name)) {
				ids = append(ids, candidate.DoubanID)
				break
			}
		}
	}
	if len(ids) > 0 {
		r.log.Debug().Str("title", media.Title).Strs("doubanIds", ids).Msg("found sibling season ids")
	}
	return ids
}

// MediaIDString renders a provider id for query building.
func MediaIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
