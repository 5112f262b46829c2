// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aggregarr/aggregarr/internal/database"
)

// ResolutionCacheTTL is how long a cached name→id resolution stays
// valid. Reads refresh the window, so actively searched names never
// re-resolve.
const ResolutionCacheTTL = 7 * 24 * time.Hour

// ResolutionCacheEntry maps a parsed-name key to a canonical media id.
// MediaID 0 is the negative sentinel: the name was looked up and is
// known to resolve to nothing, so don't ask the provider again.
type ResolutionCacheEntry struct {
	Key       string    `json:"key"`
	MediaID   int64     `json:"mediaId"`
	MediaType string    `json:"mediaType"`
	Title     string    `json:"title"`
	Year      string    `json:"year"`
	Poster    string    `json:"poster"`
	Alias     string    `json:"alias"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Negative reports whether the entry is a confirmed failed resolution.
func (e *ResolutionCacheEntry) Negative() bool {
	return e.MediaID == 0
}

// ResolutionCacheStore persists resolution cache entries in sqlite.
type ResolutionCacheStore struct {
	db  database.Querier
	ttl time.Duration
}

func NewResolutionCacheStore(db database.Querier) *ResolutionCacheStore {
	return &ResolutionCacheStore{db: db, ttl: ResolutionCacheTTL}
}

// Get returns the entry for key, or nil on miss. A hit refreshes the
// entry's TTL as a side effect. Expired entries are treated as misses
// and removed.
func (s *ResolutionCacheStore) Get(ctx context.Context, key string) (*ResolutionCacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT cache_key, media_id, media_type, title, year, poster, alias, expires_at
		FROM resolution_cache WHERE cache_key = ?`, key)

	var entry ResolutionCacheEntry
	err := row.Scan(&entry.Key, &entry.MediaID, &entry.MediaType, &entry.Title,
		&entry.Year, &entry.Poster, &entry.Alias, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resolution cache entry: %w", err)
	}

	now := time.Now()
	if entry.ExpiresAt.Before(now) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM resolution_cache WHERE cache_key = ?`, key)
		return nil, nil
	}

	entry.ExpiresAt = now.Add(s.ttl)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE resolution_cache SET expires_at = ? WHERE cache_key = ?`,
		entry.ExpiresAt, key); err != nil {
		return nil, fmt.Errorf("touch resolution cache entry: %w", err)
	}

	return &entry, nil
}

// Put stores or replaces the entry for entry.Key with a fresh TTL.
func (s *ResolutionCacheStore) Put(ctx context.Context, entry *ResolutionCacheEntry) error {
	entry.ExpiresAt = time.Now().Add(s.ttl)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resolution_cache (cache_key, media_id, media_type, title, year, poster, alias, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			media_id = excluded.media_id,
			media_type = excluded.media_type,
			title = excluded.title,
			year = excluded.year,
			poster = excluded.poster,
			alias = excluded.alias,
			expires_at = excluded.expires_at`,
		entry.Key, entry.MediaID, entry.MediaType, entry.Title, entry.Year,
		entry.Poster, entry.Alias, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("put resolution cache entry: %w", err)
	}
	return nil
}

// PutNegative records that key resolved to nothing.
func (s *ResolutionCacheStore) PutNegative(ctx context.Context, key string) error {
	return s.Put(ctx, &ResolutionCacheEntry{Key: key})
}

// Prune removes expired entries and returns how many were dropped.
func (s *ResolutionCacheStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM resolution_cache WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("prune resolution cache: %w", err)
	}
	return res.RowsAffected()
}
