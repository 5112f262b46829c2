// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mediadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aggregarr/aggregarr/internal/metainfo"
)

const maxProviderResponseBytes int64 = 8 << 20

// TMDBProvider implements Provider against a TMDB v3 compatible API.
type TMDBProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewTMDBProvider(baseURL, apiKey string) *TMDBProvider {
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	return &TMDBProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.Logger.With().Str("module", "tmdb").Logger(),
	}
}

// SetHTTPClient overrides the transport, used by tests.
func (p *TMDBProvider) SetHTTPClient(client *http.Client) {
	p.httpClient = client
}

type tmdbSearchResponse struct {
	Results []tmdbResult `json:"results"`
}

type tmdbResult struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Name          string `json:"name"`
	OriginalTitle string `json:"original_title"`
	OriginalName  string `json:"original_name"`
	ReleaseDate   string `json:"release_date"`
	FirstAirDate  string `json:"first_air_date"`
	PosterPath    string `json:"poster_path"`
	MediaType     string `json:"media_type"`
}

type tmdbShowDetail struct {
	Seasons []struct {
		SeasonNumber int    `json:"season_number"`
		AirDate      string `json:"air_date"`
		EpisodeCount int    `json:"episode_count"`
	} `json:"seasons"`
}

type tmdbAlternativeTitles struct {
	Titles []struct {
		Title string `json:"title"`
	} `json:"titles"`
	Results []struct {
		Title string `json:"title"`
	} `json:"results"`
}

func (p *TMDBProvider) Lookup(ctx context.Context, name string, mediaType metainfo.MediaType, year string, season int) (*Media, error) {
	path := "/search/tv"
	if mediaType == metainfo.TypeMovie {
		path = "/search/movie"
	}

	params := url.Values{}
	params.Set("query", name)
	if year != "" {
		if mediaType == metainfo.TypeMovie {
			params.Set("year", year)
		} else {
			params.Set("first_air_date_year", year)
		}
	}

	var resp tmdbSearchResponse
	if err := p.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	media := p.toMedia(resp.Results[0], mediaType)
	if media.Type.IsSeries() {
		if seasons, err := p.LookupSeasons(ctx, media.ID); err == nil {
			media.Seasons = seasons
		} else {
			p.log.Debug().Err(err).Int64("id", media.ID).Msg("season table fetch failed")
		}
	}
	return media, nil
}

func (p *TMDBProvider) LookupAllNames(ctx context.Context, mediaType metainfo.MediaType, id int64) ([]string, error) {
	path := fmt.Sprintf("/tv/%d/alternative_titles", id)
	if mediaType == metainfo.TypeMovie {
		path = fmt.Sprintf("/movie/%d/alternative_titles", id)
	}

	var resp tmdbAlternativeTitles
	if err := p.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	// Movies report under "titles", shows under "results".
	names := make([]string, 0, len(resp.Titles)+len(resp.Results))
	for _, t := range resp.Titles {
		if t.Title != "" {
			names = append(names, t.Title)
		}
	}
	for _, t := range resp.Results {
		if t.Title != "" {
			names = append(names, t.Title)
		}
	}
	return names, nil
}

func (p *TMDBProvider) LookupSeasons(ctx context.Context, id int64) ([]SeasonInfo, error) {
	var detail tmdbShowDetail
	if err := p.get(ctx, fmt.Sprintf("/tv/%d", id), nil, &detail); err != nil {
		return nil, err
	}

	seasons := make([]SeasonInfo, 0, len(detail.Seasons))
	for _, s := range detail.Seasons {
		// Season 0 holds specials; it never participates in matching.
		if s.SeasonNumber <= 0 {
			continue
		}
		seasons = append(seasons, SeasonInfo{
			Number:       s.SeasonNumber,
			AirDate:      s.AirDate,
			EpisodeCount: s.EpisodeCount,
		})
	}
	return seasons, nil
}

func (p *TMDBProvider) Search(ctx context.Context, keyword string) ([]*Media, error) {
	params := url.Values{}
	params.Set("query", keyword)

	var resp tmdbSearchResponse
	if err := p.get(ctx, "/search/multi", params, &resp); err != nil {
		return nil, err
	}

	media := make([]*Media, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.MediaType != "" && result.MediaType != "movie" && result.MediaType != "tv" {
			continue
		}
		media = append(media, p.toMedia(result, metainfo.TypeUnknown))
	}
	return media, nil
}

func (p *TMDBProvider) toMedia(result tmdbResult, requested metainfo.MediaType) *Media {
	mediaType := requested
	switch result.MediaType {
	case "movie":
		mediaType = metainfo.TypeMovie
	case "tv":
		mediaType = metainfo.TypeTV
	}

	title := result.Title
	original := result.OriginalTitle
	date := result.ReleaseDate
	if title == "" {
		title = result.Name
		original = result.OriginalName
		date = result.FirstAirDate
	}

	year := ""
	if len(date) >= 4 {
		year = date[:4]
	}

	return &Media{
		ID:            result.ID,
		Type:          mediaType,
		Title:         title,
		OriginalTitle: original,
		Year:          year,
		Poster:        result.PosterPath,
	}
}

func (p *TMDBProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if p.apiKey != "" {
		params.Set("api_key", p.apiKey)
	}

	endpoint := p.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProviderResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
