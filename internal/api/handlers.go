// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package api

import (
	"context"
	"net/http"

	"github.com/draftforge/draftforge/internal/engine"
	"github.com/draftforge/draftforge/internal/logging"
)

// Recommender is the engine surface the handlers depend on.
// Implemented by *engine.Engine; faked in tests.
type Recommender interface {
	Recommend(ctx context.Context, draft *engine.Draft, topK int) (map[string][]engine.Recommendation, error)
	Phases() []string
}

// BundleInfo describes the loaded bundle for the health endpoint.
type BundleInfo struct {
	ModelVersion string `json:"model_version,omitempty"`
	TrainedAt    string `json:"trained_at,omitempty"`
}

// Handler carries the dependencies of all HTTP handlers.
type Handler struct {
	recommender Recommender
	bundleInfo  BundleInfo
}

// NewHandler creates the handler set.
func NewHandler(recommender Recommender, info BundleInfo) *Handler {
	return &Handler{recommender: recommender, bundleInfo: info}
}

// BuildRecommendationResponse is the payload of a successful recommendation.
type BuildRecommendationResponse struct {
	Phases map[string][]engine.Recommendation `json:"phases"`
}

// Recommendations handles POST /api/v1/recommendations/build.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req BuildRecommendationRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := req.Validate(); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	topK := 0
	if req.TopKPerPhase != nil {
		topK = *req.TopKPerPhase
	}

	result, err := h.recommender.Recommend(r.Context(), req.Draft(), topK)
	if err != nil {
		// Draft validation happened above, so anything here is internal:
		// store failures, model failures. The client gets a generic body,
		// the log line gets the detail.
		logger := logging.Ctx(r.Context())
		logger.Error().
			Err(err).
			Int("hero_id", req.HeroID).
			Msg("recommendation failed")
		rw.InternalError("Failed to compute recommendations")
		return
	}

	rw.Success(BuildRecommendationResponse{Phases: result})
}

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status string     `json:"status"`
	Phases []string   `json:"phases"`
	Bundle BundleInfo `json:"bundle"`
}

// Health handles GET /api/v1/health. The service only starts after a bundle
// loads, so a serving process is always healthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthResponse{
		Status: "ok",
		Phases: h.recommender.Phases(),
		Bundle: h.bundleInfo,
	})
}
