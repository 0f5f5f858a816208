// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package config provides layered configuration for Draftforge using Koanf v2.
// Sources are applied in priority order: built-in defaults, an optional YAML
// config file, then environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Draftforge server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Bundle    BundleConfig    `koanf:"bundle"`
	Log       LogConfig       `koanf:"log"`
	Recommend RecommendConfig `koanf:"recommend"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ReadTimeout bounds the time spent reading a request.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds the time spent writing a response.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed CORS origins. "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit is the per-IP request limit per RateLimitWindow. Zero disables.
	RateLimit int `koanf:"rate_limit"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// BundleConfig configures where the inference bundle comes from.
//
// Exactly one of Path (a bundle directory or .zip archive) or the S3 triple
// (bucket+key) must resolve to a bundle at startup.
type BundleConfig struct {
	// Path is a local bundle directory or zip archive.
	Path string `koanf:"path"`

	// ScratchDir is where zip bundles are extracted. Cleared before each
	// extraction so stale artifacts from a previous bundle never survive.
	ScratchDir string `koanf:"scratch_dir"`

	// S3Bucket and S3Key locate a bundle zip in object storage. When set,
	// the archive is downloaded to ScratchDir before loading.
	S3Bucket string `koanf:"s3_bucket"`
	S3Key    string `koanf:"s3_key"`
	S3Region string `koanf:"s3_region"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RecommendConfig configures the sequence builder.
type RecommendConfig struct {
	// SlotsPerPhase is the number of build slots per phase name.
	SlotsPerPhase map[string]int `koanf:"slots_per_phase"`

	// LambdaByPhase is the transition blending weight per phase name.
	LambdaByPhase map[string]float64 `koanf:"lambda_by_phase"`

	// CandidateTopN bounds the candidate pool considered per slot.
	CandidateTopN int `koanf:"candidate_top_n"`

	// DefaultTopK is the per-phase result count when the request omits it.
	DefaultTopK int `koanf:"default_top_k"`
}

// defaultConfig returns a Config with all default values. Slot and lambda
// defaults match the values the phase models were tuned with.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       120,
			RateLimitWindow: time.Minute,
		},
		Bundle: BundleConfig{
			Path:       "",
			ScratchDir: "/tmp/draftforge-bundle",
			S3Region:   "us-east-1",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			SlotsPerPhase: map[string]int{
				"early":     4,
				"mid":       4,
				"late":      4,
				"very_late": 3,
			},
			LambdaByPhase: map[string]float64{
				"early":     0.01,
				"mid":       0.03,
				"late":      0.05,
				"very_late": 0.02,
			},
			CandidateTopN: 30,
			DefaultTopK:   8,
		},
	}
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Bundle.Path == "" && (c.Bundle.S3Bucket == "" || c.Bundle.S3Key == "") {
		return fmt.Errorf("either bundle.path or bundle.s3_bucket+bundle.s3_key must be set")
	}
	if c.Bundle.ScratchDir == "" {
		return fmt.Errorf("bundle.scratch_dir must not be empty")
	}
	if c.Recommend.CandidateTopN <= 0 {
		return fmt.Errorf("recommend.candidate_top_n must be positive, got %d", c.Recommend.CandidateTopN)
	}
	if c.Recommend.DefaultTopK <= 0 {
		return fmt.Errorf("recommend.default_top_k must be positive, got %d", c.Recommend.DefaultTopK)
	}
	for phase, slots := range c.Recommend.SlotsPerPhase {
		if slots < 0 {
			return fmt.Errorf("recommend.slots_per_phase[%s] must not be negative, got %d", phase, slots)
		}
	}
	for phase, lambda := range c.Recommend.LambdaByPhase {
		if lambda < 0 {
			return fmt.Errorf("recommend.lambda_by_phase[%s] must not be negative, got %g", phase, lambda)
		}
	}
	return nil
}
