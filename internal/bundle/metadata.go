// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package bundle

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Metadata is the merged view of the bundle's two metadata files. The
// training export describes what the models were fitted on; the bundle
// file can override any key at packaging time and wins per key.
type Metadata struct {
	Phases              []string `json:"phases"`
	Features            []string `json:"features"`
	NumericFeatures     []string `json:"numeric_features"`
	CategoricalFeatures []string `json:"categorical_features"`

	// ModelVersion identifies the training run, if the export recorded one.
	ModelVersion string `json:"model_version"`

	// TrainedAt is the training timestamp as exported, if present.
	TrainedAt string `json:"trained_at"`
}

// rawMetadata distinguishes absent keys from empty ones during the merge.
type rawMetadata struct {
	Phases              *[]string `json:"phases"`
	Features            *[]string `json:"features"`
	NumericFeatures     *[]string `json:"numeric_features"`
	CategoricalFeatures *[]string `json:"categorical_features"`
	ModelVersion        *string   `json:"model_version"`
	TrainedAt           *string   `json:"trained_at"`
}

func readRawMetadata(path string) (rawMetadata, error) {
	var raw rawMetadata
	data, err := os.ReadFile(path)
	if err != nil {
		return raw, err
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("parse %s: %w", path, err)
	}
	return raw, nil
}

func (m *Metadata) apply(raw rawMetadata) {
	if raw.Phases != nil {
		m.Phases = *raw.Phases
	}
	if raw.Features != nil {
		m.Features = *raw.Features
	}
	if raw.NumericFeatures != nil {
		m.NumericFeatures = *raw.NumericFeatures
	}
	if raw.CategoricalFeatures != nil {
		m.CategoricalFeatures = *raw.CategoricalFeatures
	}
	if raw.ModelVersion != nil {
		m.ModelVersion = *raw.ModelVersion
	}
	if raw.TrainedAt != nil {
		m.TrainedAt = *raw.TrainedAt
	}
}

// loadMetadata reads the training metadata, overlays the bundle metadata
// key by key, and checks that everything the engine needs is present.
func loadMetadata(trainingPath, bundlePath string) (Metadata, error) {
	var meta Metadata

	training, err := readRawMetadata(trainingPath)
	if err != nil {
		return meta, &LoadError{Artifact: artifactTrainingMetadata, Path: trainingPath, Err: err}
	}
	meta.apply(training)

	override, err := readRawMetadata(bundlePath)
	if err != nil {
		return meta, &LoadError{Artifact: artifactBundleMetadata, Path: bundlePath, Err: err}
	}
	meta.apply(override)

	if err := meta.validate(); err != nil {
		return meta, &LoadError{Artifact: artifactBundleMetadata, Path: bundlePath, Err: err}
	}
	return meta, nil
}

func (m *Metadata) validate() error {
	if len(m.Phases) == 0 {
		return fmt.Errorf("merged metadata has no phases")
	}
	if len(m.Features) == 0 {
		return fmt.Errorf("merged metadata has no features")
	}
	if m.NumericFeatures == nil {
		return fmt.Errorf("merged metadata has no numeric_features")
	}
	if m.CategoricalFeatures == nil {
		return fmt.Errorf("merged metadata has no categorical_features")
	}
	return nil
}
