// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aggregarr/aggregarr/internal/models"
)

type SourcesHandler struct {
	store *models.SourceStore
}

func NewSourcesHandler(store *models.SourceStore) *SourcesHandler {
	return &SourcesHandler{store: store}
}

func (h *SourcesHandler) Routes(r chi.Router) {
	r.Route("/sources", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{sourceID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []*models.Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (h *SourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sourceID(w, r)
	if !ok {
		return
	}
	source, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func (h *SourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var source models.Source
	if !readJSON(w, r, &source) {
		return
	}
	if source.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.store.Create(r.Context(), &source); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, source)
}

func (h *SourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := sourceID(w, r)
	if !ok {
		return
	}
	var source models.Source
	if !readJSON(w, r, &source) {
		return
	}
	source.ID = id
	if err := h.store.Update(r.Context(), &source); err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, source)
}

func (h *SourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sourceID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sourceID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "sourceID"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid source id")
		return 0, false
	}
	return id, true
}
