// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/draftforge/draftforge/internal/engine"
	"github.com/draftforge/draftforge/internal/validation"
)

// maxRequestBody caps request payloads; a draft is a handful of integers.
const maxRequestBody = 64 << 10

// BuildRecommendationRequest is the POST body for a build recommendation.
type BuildRecommendationRequest struct {
	HeroID        int   `json:"hero_id" validate:"required,gt=0"`
	LaneAllyID    int   `json:"lane_ally_id" validate:"required,gt=0"`
	TeamOtherIDs  []int `json:"team_other_ids" validate:"len=4,dive,gt=0"`
	LaneEnemyIDs  []int `json:"lane_enemy_ids" validate:"len=2,dive,gt=0"`
	EnemyOtherIDs []int `json:"enemy_other_ids" validate:"len=4,dive,gt=0"`

	// TopKPerPhase overrides the configured per-phase result count.
	TopKPerPhase *int `json:"top_k_per_phase" validate:"omitempty,min=1,max=50"`
}

// Validate checks the request shape, reporting every failing field.
func (req *BuildRecommendationRequest) Validate() *validation.RequestValidationError {
	return validation.ValidateStruct(req)
}

// Draft converts the request into the engine's draft type.
func (req *BuildRecommendationRequest) Draft() *engine.Draft {
	return &engine.Draft{
		HeroID:        req.HeroID,
		LaneAllyID:    req.LaneAllyID,
		TeamOtherIDs:  req.TeamOtherIDs,
		LaneEnemyIDs:  req.LaneEnemyIDs,
		EnemyOtherIDs: req.EnemyOtherIDs,
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields and
// oversized payloads.
func decodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid JSON body: trailing data after object")
	}
	// Drain so keep-alive connections can be reused.
	io.Copy(io.Discard, body) //nolint:errcheck
	return nil
}
