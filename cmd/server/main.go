// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package main is the entry point for the Draftforge server.
//
// Draftforge serves ordered, phase-partitioned item build recommendations
// for a hero draft, backed by an inference bundle: a DuckDB reference store
// with match statistics plus one gradient-boosted tree model per game phase.
//
// # Startup
//
// The server initializes in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, config.yaml, env)
//  2. Logging: zerolog, JSON or console format
//  3. Bundle: optionally downloaded from S3, then loaded from a local
//     directory or zip archive
//  4. Engine: draft context builder, phase scorers, sequence builder
//  5. HTTP server: chi router with CORS, rate limiting and Prometheus metrics
//
// A bundle that fails to load is fatal; the process never serves without one.
//
// # Configuration
//
// Environment variables use the DRAFTFORGE_ prefix with "__" separating
// sections, e.g. DRAFTFORGE_SERVER__ADDR or DRAFTFORGE_BUNDLE__S3_BUCKET.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops accepting
// connections, in-flight requests get the configured drain window, then the
// bundle is closed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/draftforge/draftforge/internal/api"
	"github.com/draftforge/draftforge/internal/bundle"
	"github.com/draftforge/draftforge/internal/config"
	"github.com/draftforge/draftforge/internal/engine"
	"github.com/draftforge/draftforge/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.Config{Level: "info", Format: "json"})
		logging.Fatal().Err(err).Msg("configuration failed")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	b, err := loadBundle(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("bundle load failed")
	}
	defer b.Close()

	eng, err := engine.New(engine.Params{
		Store:           b.Store,
		Index:           b.Index,
		Scorers:         b.Scorers,
		Phases:          b.Meta.Phases,
		Features:        b.Meta.Features,
		NumericFeatures: b.Meta.NumericFeatures,
		SlotsPerPhase:   cfg.Recommend.SlotsPerPhase,
		LambdaByPhase:   cfg.Recommend.LambdaByPhase,
		CandidateTopN:   cfg.Recommend.CandidateTopN,
		DefaultTopK:     cfg.Recommend.DefaultTopK,
		Logger:          logging.Logger(),
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("engine setup failed")
	}

	handler := api.NewHandler(eng, api.BundleInfo{
		ModelVersion: b.Meta.ModelVersion,
		TrainedAt:    b.Meta.TrainedAt,
	})
	mw := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimit,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimit <= 0,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, mw).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// loadBundle resolves the bundle source: an optional S3 download, then a
// local directory or zip archive.
func loadBundle(cfg *config.Config) (*bundle.Bundle, error) {
	path := cfg.Bundle.Path

	if cfg.Bundle.S3Bucket != "" && cfg.Bundle.S3Key != "" {
		ctx := context.Background()
		client, err := bundle.NewS3Client(ctx, cfg.Bundle.S3Region)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cfg.Bundle.ScratchDir, "download", "bundle.zip")
		if err := bundle.FetchS3(ctx, client, cfg.Bundle.S3Bucket, cfg.Bundle.S3Key, path); err != nil {
			return nil, err
		}
	}

	if strings.HasSuffix(path, ".zip") {
		return bundle.LoadZip(path, filepath.Join(cfg.Bundle.ScratchDir, "extracted"))
	}
	return bundle.LoadDir(path)
}
