// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aggregarr/aggregarr/internal/api/handlers"
	"github.com/aggregarr/aggregarr/internal/config"
	"github.com/aggregarr/aggregarr/internal/database"
	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/metrics"
	"github.com/aggregarr/aggregarr/internal/models"
	"github.com/aggregarr/aggregarr/internal/search"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	db            *database.DB
	sourceStore   *models.SourceStore
	historyStore  *models.SearchHistoryStore
	searchService *search.Service
	parser        *metainfo.Parser
	metrics       *metrics.Metrics
}

type Dependencies struct {
	Config  *config.AppConfig
	Version string

	DB            *database.DB
	SourceStore   *models.SourceStore
	HistoryStore  *models.SearchHistoryStore
	SearchService *search.Service
	Parser        *metainfo.Parser
	Metrics       *metrics.Metrics
}

func NewServer(deps *Dependencies) *Server {
	return &Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:        log.Logger.With().Str("module", "api").Logger(),
		config:        deps.Config,
		version:       deps.Version,
		db:            deps.DB,
		sourceStore:   deps.SourceStore,
		historyStore:  deps.HistoryStore,
		searchService: deps.SearchService,
		parser:        deps.Parser,
		metrics:       deps.Metrics,
	}
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msg("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Msgf("Starting API server - Open: http://%s%s", host, s.config.Config.BaseURL)

	handler, err := s.Handler()
	if err != nil {
		listener.Close()
		return fmt.Errorf("build API router: %w", err)
	}

	s.server.Handler = handler

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	// HTTP compression - handles gzip, brotli, zstd, deflate automatically
	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowOriginFunc:  func(origin string) bool { return true },
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)

	var pinger handlers.Pinger
	if s.db != nil {
		pinger = s.db.Conn()
	}
	healthHandler := handlers.NewHealthHandler(pinger)
	searchHandler := handlers.NewSearchHandler(s.searchService)
	parseHandler := handlers.NewParseHandler(s.parser)
	sourcesHandler := handlers.NewSourcesHandler(s.sourceStore)
	historyHandler := handlers.NewHistoryHandler(s.historyStore)

	apiRouter := chi.NewRouter()
	apiRouter.Group(func(r chi.Router) {
		r.Use(chimiddleware.Logger)

		r.Post("/search", searchHandler.Search)
		r.Get("/search/progress", searchHandler.Progress)
		r.Get("/parse", parseHandler.Parse)
		r.Get("/history", historyHandler.Recent)
		sourcesHandler.Routes(r)
	})

	r.Get("/healthz/liveness", healthHandler.HandleLiveness)
	r.Get("/healthz/readiness", healthHandler.HandleReady)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	baseURL := s.config.Config.BaseURL
	if baseURL == "" {
		baseURL = "/"
	}
	r.Mount(baseURL+"api", apiRouter)

	return r, nil
}
