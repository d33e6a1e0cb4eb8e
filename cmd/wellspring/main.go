// Package main provides the wellspring worker entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halcyonlabs/wellspring/internal/analysis"
	"github.com/halcyonlabs/wellspring/internal/assessment"
	"github.com/halcyonlabs/wellspring/internal/assessment/extract"
	"github.com/halcyonlabs/wellspring/internal/assessment/scoring"
	"github.com/halcyonlabs/wellspring/internal/config"
	"github.com/halcyonlabs/wellspring/internal/db/sqlite"
	"github.com/halcyonlabs/wellspring/internal/media"
	"github.com/halcyonlabs/wellspring/internal/watcher"
	"github.com/halcyonlabs/wellspring/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP port (default: from settings)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if cfg.LogLevel == "debug" && !*debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if *port > 0 {
		cfg.WorkerPort = *port
	} else if envPort := config.GetWorkerPort(); envPort > 0 {
		cfg.WorkerPort = envPort
	}

	store, err := sqlite.NewStore(sqlite.Config{
		Path:     config.DBPath(),
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize SQLite store")
	}
	defer store.Close()

	analysisClient := analysis.NewClient(analysis.Config{
		FrameURL:       cfg.FrameAnalysisURL,
		AudioURL:       cfg.AudioAnalysisURL,
		VisualURL:      cfg.VisualAnalysisURL,
		TextURL:        cfg.TextAnalysisURL,
		FusionURL:      cfg.FusionURL,
		TimeoutSeconds: cfg.AnalysisTimeoutSeconds,
	})

	deps := assessment.Deps{
		Extractor:      extract.NewKeywordExtractor(),
		Scorer:         scoring.NewScorer(analysisClient, log.Logger),
		Analyzer:       analysisClient,
		SampleInterval: time.Duration(cfg.SampleIntervalSeconds) * time.Second,
	}
	if cfg.MediaGatewayURL != "" {
		deps.Media = media.NewClient(cfg.MediaGatewayURL,
			time.Duration(cfg.MediaTimeoutSeconds)*time.Second)
	} else {
		log.Warn().Msg("No media gateway configured, sessions run transcript-only")
	}

	svc := worker.NewService(Version, cfg, store, deps, log.Logger)

	startWatchers()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down worker")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := svc.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
	}()

	log.Info().Str("version", Version).Int("port", cfg.WorkerPort).Msg("Starting wellspring worker")
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Worker error")
	}
}

// startWatchers initializes data directory file watchers.
func startWatchers() {
	// Watch the settings file: a change invalidates the cached config so the
	// next reader picks up the new values.
	configPath := config.SettingsPath()
	configWatcher, err := watcher.New(configPath, watcher.Callbacks{
		OnChange: func() {
			log.Info().Str("path", configPath).Msg("Settings changed, reloading config")
			config.Reset()
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
	} else if err := configWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
	}

	// Watch the database file: deletion while the worker is live means
	// someone reset the data dir underneath us. Exit so the supervisor
	// restarts with a fresh store; continuing would write into a stale
	// file handle.
	dbPath := config.DBPath()
	dbWatcher, err := watcher.New(dbPath, watcher.Callbacks{
		OnDelete: func() {
			log.Warn().Str("path", dbPath).Msg("Database deleted, exiting for restart...")
			time.Sleep(100 * time.Millisecond) // Give logs time to flush
			os.Exit(0)
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create database watcher")
	} else if err := dbWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start database watcher")
	}
}
