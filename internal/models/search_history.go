// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"fmt"
	"time"

	"github.com/aggregarr/aggregarr/internal/database"
)

// SearchHistoryEntry records the outcome of one dispatched search unit.
type SearchHistoryEntry struct {
	ID            int64     `json:"id"`
	SourceID      int       `json:"sourceId"`
	SourceName    string    `json:"sourceName"`
	Query         string    `json:"query"`
	SearchMode    string    `json:"searchMode"`
	Status        string    `json:"status"`
	ResultCount   int       `json:"resultCount"`
	AcceptedCount int       `json:"acceptedCount"`
	DurationMs    int       `json:"durationMs"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
}

type SearchHistoryStore struct {
	db database.Querier
}

func NewSearchHistoryStore(db database.Querier) *SearchHistoryStore {
	return &SearchHistoryStore{db: db}
}

func (s *SearchHistoryStore) Record(ctx context.Context, entry *SearchHistoryEntry) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (source_id, source_name, query, search_mode, status,
			result_count, accepted_count, duration_ms, error_message, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SourceID, entry.SourceName, entry.Query, entry.SearchMode, entry.Status,
		entry.ResultCount, entry.AcceptedCount, entry.DurationMs, entry.ErrorMessage,
		entry.StartedAt, entry.CompletedAt)
	if err != nil {
		return fmt.Errorf("record search history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (s *SearchHistoryStore) Recent(ctx context.Context, limit int) ([]*SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, source_name, query, search_mode, status,
			result_count, accepted_count, duration_ms, error_message, started_at, completed_at
		FROM search_history ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	defer rows.Close()

	var entries []*SearchHistoryEntry
	for rows.Next() {
		var e SearchHistoryEntry
		if err := rows.Scan(&e.ID, &e.SourceID, &e.SourceName, &e.Query, &e.SearchMode, &e.Status,
			&e.ResultCount, &e.AcceptedCount, &e.DurationMs, &e.ErrorMessage,
			&e.StartedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
