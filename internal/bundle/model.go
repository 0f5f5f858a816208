// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package bundle

import (
	"fmt"

	"github.com/dmitryikh/leaves"
)

// xgbScorer wraps one phase's gradient-boosted tree ensemble. The
// transformation (sigmoid for binary objectives) is loaded with the model,
// so Score yields probability-like outputs directly.
type xgbScorer struct {
	ensemble *leaves.Ensemble
	features int
}

// loadPhaseModel loads an XGBoost model artifact for one phase.
func loadPhaseModel(path string) (*xgbScorer, error) {
	ensemble, err := leaves.XGEnsembleFromFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &xgbScorer{
		ensemble: ensemble,
		features: ensemble.NFeatures(),
	}, nil
}

// Score predicts one score per feature row. The matrix is flattened
// row-major for the ensemble's dense prediction path.
func (s *xgbScorer) Score(features [][]float64) ([]float64, error) {
	if len(features) == 0 {
		return []float64{}, nil
	}

	ncols := len(features[0])
	flat := make([]float64, 0, len(features)*ncols)
	for i, row := range features {
		if len(row) != ncols {
			return nil, fmt.Errorf("feature row %d has %d columns, want %d", i, len(row), ncols)
		}
		flat = append(flat, row...)
	}

	preds := make([]float64, len(features)*s.ensemble.NOutputGroups())
	if err := s.ensemble.PredictDense(flat, len(features), ncols, preds, 0, 1); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	if s.ensemble.NOutputGroups() == 1 {
		return preds[:len(features)], nil
	}

	// The training pipeline only exports binary objectives; anything with
	// multiple output groups scores with the first group.
	scores := make([]float64, len(features))
	groups := s.ensemble.NOutputGroups()
	for i := range scores {
		scores[i] = preds[i*groups]
	}
	return scores, nil
}
