// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggregarr/aggregarr/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSourceStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewSourceStore(newTestDB(t).Conn())

	src := &Source{
		Name:                 "tracker-a",
		Domain:               "tracker-a.example",
		Enabled:              true,
		Public:               false,
		Priority:             80,
		SupportedTypes:       []string{"movie", "tv"},
		SearchModes:          []string{SearchModeIMDB, SearchModeEnglish},
		RequireSeeders:       true,
		LimitCount:           10,
		LimitIntervalSeconds: 60,
	}
	require.NoError(t, store.Create(ctx, src))
	require.NotZero(t, src.ID)

	got, err := store.Get(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "tracker-a", got.Name)
	assert.Equal(t, []string{"movie", "tv"}, got.SupportedTypes)
	assert.True(t, got.RequireSeeders)
	assert.Equal(t, 10, got.LimitCount)

	got.Enabled = false
	require.NoError(t, store.Update(ctx, got))

	enabled, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, store.Delete(ctx, src.ID))
	_, err = store.Get(ctx, src.ID)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestSource_SupportsType(t *testing.T) {
	tests := []struct {
		name      string
		types     []string
		mediaType string
		want      bool
	}{
		{name: "no restriction", types: nil, mediaType: "movie", want: true},
		{name: "exact match", types: []string{"movie"}, mediaType: "movie", want: true},
		{name: "mismatch", types: []string{"movie"}, mediaType: "tv", want: false},
		{name: "anime on tv source", types: []string{"tv"}, mediaType: "anime", want: true},
		{name: "empty query type", types: []string{"movie"}, mediaType: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &Source{SupportedTypes: tt.types}
			assert.Equal(t, tt.want, src.SupportsType(tt.mediaType))
		})
	}
}

func TestSource_SupportsMode(t *testing.T) {
	src := &Source{SearchModes: []string{SearchModeIMDB}}
	assert.True(t, src.SupportsMode(SearchModeKeyword), "keyword is always available")
	assert.True(t, src.SupportsMode(SearchModeIMDB))
	assert.False(t, src.SupportsMode(SearchModeDouban))
}

func TestResolutionCacheStore(t *testing.T) {
	ctx := context.Background()
	store := NewResolutionCacheStore(newTestDB(t).Conn())

	t.Run("miss returns nil", func(t *testing.T) {
		entry, err := store.Get(ctx, "tv|missing|2020|1")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("put then get refreshes ttl", func(t *testing.T) {
		put := &ResolutionCacheEntry{
			Key:       "tv|example show|2020|2",
			MediaID:   1399,
			MediaType: "tv",
			Title:     "Example Show",
			Year:      "2020",
		}
		require.NoError(t, store.Put(ctx, put))
		firstExpiry := put.ExpiresAt

		entry, err := store.Get(ctx, put.Key)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, int64(1399), entry.MediaID)
		assert.False(t, entry.Negative())
		assert.False(t, entry.ExpiresAt.Before(firstExpiry))
	})

	t.Run("negative sentinel", func(t *testing.T) {
		require.NoError(t, store.PutNegative(ctx, "movie|no such film|"))

		entry, err := store.Get(ctx, "movie|no such film|")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.True(t, entry.Negative())
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		expired := &ResolutionCacheEntry{Key: "tv|stale|", MediaID: 7}
		require.NoError(t, store.Put(ctx, expired))

		// Force the row into the past.
		_, err := storeDB(store).ExecContext(ctx,
			`UPDATE resolution_cache SET expires_at = ? WHERE cache_key = ?`,
			time.Now().Add(-time.Hour), expired.Key)
		require.NoError(t, err)

		entry, err := store.Get(ctx, expired.Key)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}

func storeDB(s *ResolutionCacheStore) database.Querier {
	return s.db
}

func TestSearchHistoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewSearchHistoryStore(newTestDB(t).Conn())

	start := time.Now().Add(-2 * time.Second)
	entry := &SearchHistoryEntry{
		SourceID:      1,
		SourceName:    "tracker-a",
		Query:         "example show",
		SearchMode:    SearchModeKeyword,
		Status:        "success",
		ResultCount:   25,
		AcceptedCount: 3,
		DurationMs:    1800,
		StartedAt:     start,
		CompletedAt:   time.Now(),
	}
	require.NoError(t, store.Record(ctx, entry))
	require.NotZero(t, entry.ID)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "tracker-a", recent[0].SourceName)
	assert.Equal(t, 3, recent[0].AcceptedCount)
}
