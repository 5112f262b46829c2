// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mediadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggregarr/aggregarr/internal/metainfo"
)

func newTestTMDB(t *testing.T, handler http.HandlerFunc) *TMDBProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewTMDBProvider(server.URL, "test-key")
}

func TestTMDBProvider_LookupShow(t *testing.T) {
	var paths []string
	provider := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/search/tv":
			assert.Equal(t, "example show", r.URL.Query().Get("query"))
			assert.Equal(t, "2019", r.URL.Query().Get("first_air_date_year"))
			assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"id": 42, "name": "Example Show", "original_name": "Das Beispiel", "first_air_date": "2019-04-01"},
				},
			})
		case "/tv/42":
			json.NewEncoder(w).Encode(map[string]any{
				"seasons": []map[string]any{
					{"season_number": 0, "air_date": "2018-12-01", "episode_count": 2},
					{"season_number": 1, "air_date": "2019-04-01", "episode_count": 10},
					{"season_number": 2, "air_date": "2020-04-01", "episode_count": 12},
				},
			})
		default:
			http.NotFound(w, r)
		}
	})

	media, err := provider.Lookup(context.Background(), "example show", metainfo.TypeTV, "2019", 0)
	require.NoError(t, err)
	require.NotNil(t, media)

	assert.Equal(t, int64(42), media.ID)
	assert.Equal(t, metainfo.TypeTV, media.Type)
	assert.Equal(t, "Example Show", media.Title)
	assert.Equal(t, "Das Beispiel", media.OriginalTitle)
	assert.Equal(t, "2019", media.Year)

	// Specials season is dropped from the table.
	require.Len(t, media.Seasons, 2)
	assert.Equal(t, 1, media.Seasons[0].Number)
	assert.Equal(t, 10, media.Seasons[0].EpisodeCount)
	assert.Equal(t, "2020", media.Seasons[1].AirYear())

	assert.Equal(t, []string{"/search/tv", "/tv/42"}, paths)
}

func TestTMDBProvider_LookupMovieNoMatch(t *testing.T) {
	provider := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "2020", r.URL.Query().Get("year"))
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	media, err := provider.Lookup(context.Background(), "missing movie", metainfo.TypeMovie, "2020", 0)
	require.NoError(t, err)
	assert.Nil(t, media)
}

func TestTMDBProvider_SearchFiltersPeople(t *testing.T) {
	provider := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/multi", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": 1, "media_type": "movie", "title": "Some Movie", "release_date": "2021-06-01"},
				{"id": 2, "media_type": "person", "name": "Some Actor"},
				{"id": 3, "media_type": "tv", "name": "Some Show", "first_air_date": "2015-01-01"},
			},
		})
	})

	results, err := provider.Search(context.Background(), "some")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, metainfo.TypeMovie, results[0].Type)
	assert.Equal(t, "2021", results[0].Year)
	assert.Equal(t, metainfo.TypeTV, results[1].Type)
	assert.Equal(t, "Some Show", results[1].Title)
}

func TestTMDBProvider_LookupAllNames(t *testing.T) {
	provider := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/7/alternative_titles":
			json.NewEncoder(w).Encode(map[string]any{
				"titles": []map[string]any{{"title": "Alias One"}, {"title": "Alias Two"}},
			})
		case "/tv/9/alternative_titles":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"title": "Show Alias"}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	names, err := provider.LookupAllNames(context.Background(), metainfo.TypeMovie, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alias One", "Alias Two"}, names)

	names, err = provider.LookupAllNames(context.Background(), metainfo.TypeTV, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"Show Alias"}, names)
}

func TestTMDBProvider_ErrorStatus(t *testing.T) {
	provider := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := provider.Lookup(context.Background(), "anything", metainfo.TypeMovie, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
