// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aggregarr/aggregarr/internal/database"
)

var ErrSourceNotFound = errors.New("source not found")

// Search modes a source can declare support for.
const (
	SearchModeKeyword = "keyword"
	SearchModeEnglish = "english"
	SearchModeIMDB    = "imdbid"
	SearchModeDouban  = "doubanid"
)

// Source is a configured provider of listings: a tracker site or JSON
// API with declared capabilities and rate-limit settings.
type Source struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Enabled bool   `json:"enabled"`
	Public  bool   `json:"public"`
	// Priority 1..100; higher is preferred. Dispatch order is 100-priority.
	Priority int `json:"priority"`

	// SupportedTypes restricts which media types the source carries.
	// Empty means all types.
	SupportedTypes []string `json:"supportedTypes"`
	// SearchModes lists the query variants the source understands.
	SearchModes []string `json:"searchModes"`

	// RequireSeeders rejects zero-seeder results from this source when it
	// is not public.
	RequireSeeders bool `json:"requireSeeders"`

	// Sliding window: LimitCount requests per LimitIntervalSeconds.
	// Zero disables the window.
	LimitCount           int `json:"limitCount"`
	LimitIntervalSeconds int `json:"limitIntervalSeconds"`
	// Fixed cooldown between consecutive requests. Zero disables.
	LimitCooldownSeconds int `json:"limitCooldownSeconds"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SupportsType reports whether the source carries the given media type.
// Anime releases live on both dedicated anime sources and general TV
// sources, so an anime query matches either.
func (s *Source) SupportsType(mediaType string) bool {
	if len(s.SupportedTypes) == 0 || mediaType == "" {
		return true
	}
	for _, t := range s.SupportedTypes {
		if strings.EqualFold(t, mediaType) {
			return true
		}
		if strings.EqualFold(mediaType, "anime") &&
			(strings.EqualFold(t, "tv") || strings.EqualFold(t, "movie")) {
			return true
		}
	}
	return false
}

// SupportsMode reports whether the source declares the search mode.
// Plain keyword search is always available.
func (s *Source) SupportsMode(mode string) bool {
	if mode == SearchModeKeyword {
		return true
	}
	for _, m := range s.SearchModes {
		if strings.EqualFold(m, mode) {
			return true
		}
	}
	return false
}

type SourceStore struct {
	db database.Querier
}

func NewSourceStore(db database.Querier) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `id, name, domain, enabled, public, priority, supported_types, search_modes,
	require_seeders, limit_count, limit_interval_seconds, limit_cooldown_seconds, created_at, updated_at`

func (s *SourceStore) List(ctx context.Context) ([]*Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources ORDER BY priority DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// ListEnabled returns only sources eligible for dispatch.
func (s *SourceStore) ListEnabled(ctx context.Context) ([]*Source, error) {
	sources, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	enabled := sources[:0]
	for _, src := range sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled, nil
}

func (s *SourceStore) Get(ctx context.Context, id int) (*Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	src, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	return src, nil
}

func (s *SourceStore) Create(ctx context.Context, src *Source) error {
	if src.Priority <= 0 {
		src.Priority = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, domain, enabled, public, priority, supported_types, search_modes,
			require_seeders, limit_count, limit_interval_seconds, limit_cooldown_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.Name, src.Domain, src.Enabled, src.Public, src.Priority,
		strings.Join(src.SupportedTypes, ","), strings.Join(src.SearchModes, ","),
		src.RequireSeeders, src.LimitCount, src.LimitIntervalSeconds, src.LimitCooldownSeconds)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	src.ID = int(id)
	return nil
}

func (s *SourceStore) Update(ctx context.Context, src *Source) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET name = ?, domain = ?, enabled = ?, public = ?, priority = ?,
			supported_types = ?, search_modes = ?, require_seeders = ?,
			limit_count = ?, limit_interval_seconds = ?, limit_cooldown_seconds = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		src.Name, src.Domain, src.Enabled, src.Public, src.Priority,
		strings.Join(src.SupportedTypes, ","), strings.Join(src.SearchModes, ","),
		src.RequireSeeders, src.LimitCount, src.LimitIntervalSeconds, src.LimitCooldownSeconds,
		src.ID)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSourceNotFound
	}
	return nil
}

func (s *SourceStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSourceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var src Source
	var supportedTypes, searchModes string
	err := row.Scan(&src.ID, &src.Name, &src.Domain, &src.Enabled, &src.Public, &src.Priority,
		&supportedTypes, &searchModes, &src.RequireSeeders,
		&src.LimitCount, &src.LimitIntervalSeconds, &src.LimitCooldownSeconds,
		&src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	src.SupportedTypes = splitCSV(supportedTypes)
	src.SearchModes = splitCSV(searchModes)
	return &src, nil
}

func splitCSV(s string) []string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
