// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aggregarr/aggregarr/internal/api"
	"github.com/aggregarr/aggregarr/internal/config"
	"github.com/aggregarr/aggregarr/internal/database"
	"github.com/aggregarr/aggregarr/internal/filter"
	"github.com/aggregarr/aggregarr/internal/matcher"
	"github.com/aggregarr/aggregarr/internal/mediadata"
	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/metrics"
	"github.com/aggregarr/aggregarr/internal/models"
	"github.com/aggregarr/aggregarr/internal/scraper"
	"github.com/aggregarr/aggregarr/internal/search"
)

// Version is set during build via ldflags: -X main.Version=...
var Version = "dev"

func main() {
	config.InitDefaultLogger(Version)

	var rootCmd = &cobra.Command{
		Use:   "aggregarr",
		Short: "Media release search aggregation engine",
		Long: `aggregarr - Aggregated release search across multiple trackers with
title parsing, canonical metadata matching and quality filtering.`,
	}

	rootCmd.Version = Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())
	rootCmd.AddCommand(RunParseCommand())
	rootCmd.AddCommand(RunSearchCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
		pprofFlag bool
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/aggregarr/ or %APPDATA%\\aggregarr\\). Can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for database and other files (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")
	command.Flags().BoolVar(&pprofFlag, "pprof", false, "enable pprof server on :6060")

	command.Run = func(cmd *cobra.Command, args []string) {
		app := NewApplication(configDir, dataDir, logPath, pprofFlag)
		app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of aggregarr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/aggregarr/config.toml
- Windows: %APPDATA%\aggregarr\config.toml

You can specify either a directory path or a direct file path:
- Directory: aggregarr generate-config --config-dir /path/to/config/
- File: aggregarr generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				defaultDir := config.GetDefaultConfigDir()
				configPath = filepath.Join(defaultDir, "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

func RunParseCommand() *cobra.Command {
	var (
		configDir string
		subtitle  string
	)

	command := &cobra.Command{
		Use:   "parse <title>",
		Short: "Parse a release title and print the extracted fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(configDir, Version)
			if err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			parser, err := buildParser(cfg)
			if err != nil {
				return err
			}

			parsed := parser.Parse(args[0], subtitle)
			out, err := json.MarshalIndent(parsed, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")
	command.Flags().StringVar(&subtitle, "subtitle", "", "optional release subtitle/description")

	return command
}

func RunSearchCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		mediaType string
		year      string
		ruleID    string
		sites     []string
		timeout   time.Duration
	)

	command := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Run a one-shot search across all enabled sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(configDir, Version)
			if err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			if dataDir != "" {
				cfg.SetDataDir(dataDir)
			}
			cfg.ApplyLogConfig()

			db, err := database.New(cfg.GetDatabasePath())
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			service, _, err := buildSearchService(cfg, db, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			filterArgs := &filter.Args{
				Type:   metainfo.ParseMediaType(mediaType),
				Year:   year,
				RuleID: ruleID,
				Sites:  sites,
			}

			results, counters, err := service.Search(ctx, args[0], filterArgs, nil, nil)
			if err != nil {
				return err
			}

			matcher.SortResults(results)
			for _, result := range results {
				cmd.Printf("%-20s %8d seeders  %10d MiB  %s\n",
					result.SourceName, result.Seeders, result.Size>>20, result.Original)
			}
			cmd.Printf("\n%d accepted, %d rule, %d match, %d errors, %d rate limited (%s)\n",
				counters.Success, counters.RuleFail, counters.MatchFail,
				counters.Errors, counters.RateLimited, counters.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")
	command.Flags().StringVar(&dataDir, "data-dir", "",
		"data directory path (defaults to next to config file)")
	command.Flags().StringVar(&mediaType, "type", "", "media type filter: movie, tv or anime")
	command.Flags().StringVar(&year, "year", "", "release year filter")
	command.Flags().StringVar(&ruleID, "rule", "", "filter rule set id")
	command.Flags().StringSliceVar(&sites, "site", nil, "restrict to the named sources")
	command.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall search timeout")

	return command
}

type Application struct {
	configDir string
	dataDir   string
	logPath   string
	pprofFlag bool
}

func NewApplication(configDir, dataDir, logPath string, pprofFlag bool) *Application {
	return &Application{
		configDir: configDir,
		dataDir:   dataDir,
		logPath:   logPath,
		pprofFlag: pprofFlag,
	}
}

func (app *Application) runServer() {
	cfg, err := config.New(app.configDir, Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	// Override with CLI flags if provided
	if app.dataDir != "" {
		os.Setenv("AGGREGARR__DATA_DIR", app.dataDir)
		cfg.SetDataDir(app.dataDir)
	}
	if app.logPath != "" {
		os.Setenv("AGGREGARR__LOG_PATH", app.logPath)
		cfg.Config.LogPath = app.logPath
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", Version).Msg("Starting aggregarr")

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	var metricsCollector *metrics.Metrics
	if cfg.Config.MetricsEnabled {
		metricsCollector = metrics.New()
	}

	searchService, parser, err := buildSearchService(cfg, db, metricsCollector)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize search service")
	}

	httpServer := api.NewServer(&api.Dependencies{
		Config:        cfg,
		Version:       Version,
		DB:            db,
		SourceStore:   models.NewSourceStore(db.Conn()),
		HistoryStore:  models.NewSearchHistoryStore(db.Conn()),
		SearchService: searchService,
		Parser:        parser,
		Metrics:       metricsCollector,
	})

	errorChannel := make(chan error)
	serverReady := make(chan struct{}, 1)
	go func() {
		if err := httpServer.ListenAndServeReady(serverReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	select {
	case <-serverReady:
	case err := <-errorChannel:
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	if app.pprofFlag {
		go func() {
			log.Info().Msg("Starting pprof server on :6060")
			if err := http.ListenAndServe(":6060", nil); err != nil {
				log.Error().Err(err).Msg("Profiling server failed")
			}
		}()
	}

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")
		os.Exit(1)
	}

	os.Exit(0)
}

func buildParser(cfg *config.AppConfig) (*metainfo.Parser, error) {
	wordTable, err := metainfo.LoadWordTable(cfg.Config.WordTablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load word table: %w", err)
	}
	return metainfo.NewParser(metainfo.WithLexicalRules(wordTable)), nil
}

func buildSearchService(cfg *config.AppConfig, db *database.DB, metricsCollector *metrics.Metrics) (*search.Service, *metainfo.Parser, error) {
	parser, err := buildParser(cfg)
	if err != nil {
		return nil, nil, err
	}

	ruleSets, err := filter.LoadRuleSets(cfg.Config.FilterRulesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load filter rules: %w", err)
	}
	evaluator, err := filter.NewExprEvaluator(ruleSets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile filter rules: %w", err)
	}

	provider := mediadata.NewTMDBProvider(cfg.Config.MetadataURL, cfg.Config.MetadataAPIKey)
	resolver := mediadata.NewResolver(provider, models.NewResolutionCacheStore(db.Conn()))

	torznab := scraper.NewTorznabScraper(scraper.WithUserAgent("aggregarr/" + Version))

	opts := []search.Option{
		search.WithParser(parser),
		search.WithResolver(resolver),
		search.WithHistory(models.NewSearchHistoryStore(db.Conn())),
	}
	if metricsCollector != nil {
		opts = append(opts, search.WithMetrics(metricsCollector))
	}

	service := search.NewService(torznab,
		models.NewSourceStore(db.Conn()),
		matcher.New(resolver, evaluator),
		opts...)

	return service, parser, nil
}
