// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mediadata defines the canonical-metadata provider interface
// and the caching resolver in front of it.
package mediadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/aggregarr/aggregarr/internal/metainfo"
)

// SeasonInfo is one row of a show's season table.
type SeasonInfo struct {
	Number       int    `json:"number"`
	AirDate      string `json:"airDate"`
	EpisodeCount int    `json:"episodeCount"`
}

// AirYear returns the four-digit year of the season's air date.
func (s SeasonInfo) AirYear() string {
	if len(s.AirDate) >= 4 {
		return s.AirDate[:4]
	}
	return ""
}

// Media is the externally identified authoritative record a release is
// matched against. The engine only reads it, with one exception: after
// an accepted upgrade candidate it writes back the new best priority.
type Media struct {
	ID            int64              `json:"id"`
	Type          metainfo.MediaType `json:"type"`
	Title         string             `json:"title"`
	OriginalTitle string             `json:"originalTitle,omitempty"`
	Alternates    []string           `json:"alternates,omitempty"`
	Year          string             `json:"year,omitempty"`
	IMDBID        string             `json:"imdbId,omitempty"`
	DoubanID      string             `json:"doubanId,omitempty"`
	Poster        string             `json:"poster,omitempty"`
	Seasons       []SeasonInfo       `json:"seasons,omitempty"`

	// OverEdition gates re-acquisition: only strictly better releases
	// than ResOrder are accepted. Lower ResOrder is better.
	OverEdition bool `json:"overEdition,omitempty"`
	ResOrder    int  `json:"resOrder,omitempty"`
}

// Names returns every title the media is known under.
func (m *Media) Names() []string {
	names := make([]string, 0, 2+len(m.Alternates))
	if m.Title != "" {
		names = append(names, m.Title)
	}
	if m.OriginalTitle != "" {
		names = append(names, m.OriginalTitle)
	}
	names = append(names, m.Alternates...)
	return names
}

// MaxSeason returns the highest known season number, or 0 when the
// season table is absent.
func (m *Media) MaxSeason() int {
	maxSeason := 0
	for _, s := range m.Seasons {
		if s.Number > maxSeason {
			maxSeason = s.Number
		}
	}
	return maxSeason
}

// Season returns the table row for number, or nil.
func (m *Media) Season(number int) *SeasonInfo {
	for i := range m.Seasons {
		if m.Seasons[i].Number == number {
			return &m.Seasons[i]
		}
	}
	return nil
}

// Provider looks up canonical media records by id or name. It is an
// external collaborator; implementations wrap TMDB-style HTTP APIs.
type Provider interface {
	// Lookup resolves a name to a media record, or nil when nothing
	// matches. year and season are optional refinements.
	Lookup(ctx context.Context, name string, mediaType metainfo.MediaType, year string, season int) (*Media, error)
	// LookupAllNames returns every alias of the given media id.
	LookupAllNames(ctx context.Context, mediaType metainfo.MediaType, id int64) ([]string, error)
	// LookupSeasons returns the season table of a show.
	LookupSeasons(ctx context.Context, id int64) ([]SeasonInfo, error)
	// Search returns candidate records for a free keyword.
	Search(ctx context.Context, keyword string) ([]*Media, error)
}

// CacheKey builds the resolution-cache key for a lookup. Season 0 keys
// movie lookups and season-less show lookups identically to the
// provider call they stand in for.
func CacheKey(mediaType metainfo.MediaType, name, year string, season int) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if season > 0 {
		return fmt.Sprintf("%s|%s|%s|%d", mediaType, name, year, season)
	}
	return fmt.Sprintf("%s|%s|%s|", mediaType, name, year)
}
