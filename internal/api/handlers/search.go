// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aggregarr/aggregarr/internal/filter"
	"github.com/aggregarr/aggregarr/internal/matcher"
	"github.com/aggregarr/aggregarr/internal/mediadata"
	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/search"
)

type SearchRequest struct {
	Keyword        string   `json:"keyword"`
	Type           string   `json:"type,omitempty"`
	Year           string   `json:"year,omitempty"`
	Seasons        []int    `json:"seasons,omitempty"`
	Episodes       []int    `json:"episodes,omitempty"`
	Sites          []string `json:"sites,omitempty"`
	RuleID         string   `json:"ruleId,omitempty"`
	RequireSeeders bool     `json:"requireSeeders,omitempty"`
	// Best reduces the response to the single top-ranked result.
	Best bool `json:"best,omitempty"`

	// Target, when set, switches from discovery to targeted matching.
	Target *mediadata.Media `json:"target,omitempty"`
}

type SearchResponse struct {
	Results  []*matcher.MatchResult `json:"results"`
	Best     *matcher.MatchResult   `json:"best,omitempty"`
	Counters matcher.Counters       `json:"counters"`
}

type progressState struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Message   string `json:"message,omitempty"`
	Running   bool   `json:"running"`
}

type SearchHandler struct {
	service *search.Service
	log     zerolog.Logger

	mu       sync.Mutex
	progress progressState
}

func NewSearchHandler(service *search.Service) *SearchHandler {
	return &SearchHandler{
		service: service,
		log:     log.Logger.With().Str("module", "api").Logger(),
	}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Keyword == "" && req.Target == nil {
		writeError(w, http.StatusBadRequest, "keyword or target required")
		return
	}

	args := &filter.Args{
		Seasons:        req.Seasons,
		Episodes:       req.Episodes,
		Year:           req.Year,
		Type:           metainfo.ParseMediaType(req.Type),
		Sites:          req.Sites,
		RequireSeeders: req.RequireSeeders,
		RuleID:         req.RuleID,
	}

	keyword := req.Keyword
	if keyword == "" && req.Target != nil {
		keyword = req.Target.Title
	}

	h.setProgress(progressState{Running: true})
	results, counters, err := h.service.Search(r.Context(), keyword, args, req.Target, h.onProgress)
	h.finishProgress()

	if err != nil {
		h.log.Error().Err(err).Str("keyword", keyword).Msg("search failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := SearchResponse{Results: results, Counters: counters}
	if req.Best {
		resp.Best = matcher.Best(results)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Progress reports completion of the search currently in flight, or the
// last finished one.
func (h *SearchHandler) Progress(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	state := h.progress
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, state)
}

func (h *SearchHandler) onProgress(completed, total int, message string) {
	percent := 0
	if total > 0 {
		percent = completed * 100 / total
	}
	h.setProgress(progressState{
		Completed: completed,
		Total:     total,
		Percent:   percent,
		Message:   message,
		Running:   completed < total,
	})
}

func (h *SearchHandler) setProgress(state progressState) {
	h.mu.Lock()
	h.progress = state
	h.mu.Unlock()
}

func (h *SearchHandler) finishProgress() {
	h.mu.Lock()
	h.progress.Running = false
	h.mu.Unlock()
}
