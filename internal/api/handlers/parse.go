// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/aggregarr/aggregarr/internal/metainfo"
)

type ParseHandler struct {
	parser *metainfo.Parser
}

func NewParseHandler(parser *metainfo.Parser) *ParseHandler {
	return &ParseHandler{parser: parser}
}

// Parse exposes the title parser for debugging source configurations:
// GET /api/parse?title=...&subtitle=...
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title query parameter required")
		return
	}
	parsed := h.parser.Parse(title, r.URL.Query().Get("subtitle"))
	writeJSON(w, http.StatusOK, parsed)
}
