// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strconv"

	"github.com/aggregarr/aggregarr/internal/models"
)

type HistoryHandler struct {
	store *models.SearchHistoryStore
}

func NewHistoryHandler(store *models.SearchHistoryStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// Recent returns the latest per-unit search outcomes, newest first.
func (h *HistoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.SearchHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
