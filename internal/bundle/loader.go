// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package bundle loads inference bundles: the reference store, the per-phase
// model artifacts and the metadata describing what the models consume. A
// bundle is immutable after load and everything in it is shared read-only
// across requests.
package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/draftforge/draftforge/internal/engine"
	"github.com/draftforge/draftforge/internal/logging"
	"github.com/draftforge/draftforge/internal/metrics"
	"github.com/draftforge/draftforge/internal/refstore"
	"github.com/draftforge/draftforge/internal/statsindex"
)

// Artifact names inside a bundle directory. Phase models are named after
// their phase with the model suffix.
const (
	artifactReferenceStore   = "inference.duckdb"
	artifactTrainingMetadata = "training_metadata.json"
	artifactBundleMetadata   = "bundle_metadata.json"
	artifactModelSuffix      = ".model"

	// modelsSubdir is an optional nesting level some packaging scripts
	// produce; artifacts are resolved there when it exists.
	modelsSubdir = "models"
)

// LoadError reports that a specific bundle artifact is missing or broken.
// Any LoadError is fatal for the whole bundle.
type LoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("bundle artifact %s (%s): %v", e.Artifact, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Bundle is a fully loaded inference bundle.
type Bundle struct {
	Meta    Metadata
	Store   *refstore.Store
	Index   *statsindex.Index
	Scorers map[string]engine.PhaseScorer

	dir string
}

// Dir returns the directory the bundle artifacts were resolved in.
func (b *Bundle) Dir() string { return b.dir }

// Close releases the reference store. Models hold no external resources.
func (b *Bundle) Close() error {
	if b.Store != nil {
		return b.Store.Close()
	}
	return nil
}

// LoadDir loads a bundle from a directory. If a models/ subdirectory exists
// the artifacts are resolved there instead. Every failure is reported as a
// LoadError naming the offending artifact, and nothing stays open on error.
func LoadDir(dir string) (*Bundle, error) {
	start := time.Now()

	b, err := loadDir(dir)
	if err != nil {
		metrics.BundleLoads.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.BundleLoads.WithLabelValues("success").Inc()
	metrics.BundleLoadDuration.Observe(time.Since(start).Seconds())
	metrics.BundlePhases.Set(float64(len(b.Meta.Phases)))

	logging.Info().
		Str("dir", b.dir).
		Strs("phases", b.Meta.Phases).
		Str("model_version", b.Meta.ModelVersion).
		Dur("elapsed", time.Since(start)).
		Msg("inference bundle loaded")

	return b, nil
}

func loadDir(dir string) (*Bundle, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, &LoadError{Artifact: "bundle directory", Path: dir, Err: errOrNotDir(err)}
	}
	if nested := filepath.Join(dir, modelsSubdir); isDir(nested) {
		dir = nested
	}

	meta, err := loadMetadata(
		filepath.Join(dir, artifactTrainingMetadata),
		filepath.Join(dir, artifactBundleMetadata),
	)
	if err != nil {
		return nil, err
	}

	storePath := filepath.Join(dir, artifactReferenceStore)
	store, err := refstore.Open(storePath)
	if err != nil {
		return nil, &LoadError{Artifact: artifactReferenceStore, Path: storePath, Err: err}
	}

	scorers := make(map[string]engine.PhaseScorer, len(meta.Phases))
	for _, phase := range meta.Phases {
		modelPath := filepath.Join(dir, phase+artifactModelSuffix)
		scorer, err := loadPhaseModel(modelPath)
		if err != nil {
			store.Close()
			return nil, &LoadError{Artifact: phase + artifactModelSuffix, Path: modelPath, Err: err}
		}
		scorers[phase] = scorer
	}

	// The statistics index is built eagerly so a broken store fails the
	// load instead of the first request.
	idx, err := statsindex.Build(context.Background(), store)
	if err != nil {
		store.Close()
		return nil, &LoadError{Artifact: artifactReferenceStore, Path: storePath, Err: err}
	}

	return &Bundle{
		Meta:    meta,
		Store:   store,
		Index:   idx,
		Scorers: scorers,
		dir:     dir,
	}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func errOrNotDir(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("not a directory")
}
