// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package engine implements the build recommendation core: draft context
// building, per-phase candidate scoring and greedy transition-aware
// sequencing.
//
// The engine holds only read-only state after construction (reference-store
// handle, statistics index, phase scorers) and is safe for concurrent use.
// Each Recommend call is one uninterrupted pass: reference-store reads, then
// in-memory computation. Nothing is cached between calls.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftforge/draftforge/internal/metrics"
	"github.com/draftforge/draftforge/internal/refstore"
)

// defaultLambda is the transition blending weight for phases without an
// explicit entry in LambdaByPhase.
const defaultLambda = 0.3

// Params configures a new Engine. Store, Index, Phases, Features and one
// scorer per phase are required; the sequencing knobs fall back to defaults.
type Params struct {
	Store    Store
	Index    StatsIndex
	Scorers  map[string]PhaseScorer
	Phases   []string
	Features []string

	// NumericFeatures lists the feature columns narrowed to float32.
	NumericFeatures []string

	// SlotsPerPhase is the number of build slots per phase. Phases without
	// an entry get no slots.
	SlotsPerPhase map[string]int

	// LambdaByPhase is the transition blending weight per phase.
	LambdaByPhase map[string]float64

	// CandidateTopN bounds the candidate pool considered per slot.
	CandidateTopN int

	// DefaultTopK is the per-phase result count when the caller passes none.
	DefaultTopK int

	Logger zerolog.Logger
}

// Engine produces phase-partitioned item build recommendations.
type Engine struct {
	store   Store
	index   StatsIndex
	scorers map[string]PhaseScorer

	phases   []string
	features []string
	numeric  map[string]bool

	slotsPerPhase map[string]int
	lambdaByPhase map[string]float64
	candidateTopN int
	defaultTopK   int

	logger zerolog.Logger
}

// New validates params and builds an Engine.
func New(p Params) (*Engine, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if p.Index == nil {
		return nil, fmt.Errorf("engine: stats index is required")
	}
	if len(p.Phases) == 0 {
		return nil, fmt.Errorf("engine: at least one phase is required")
	}
	if len(p.Features) == 0 {
		return nil, fmt.Errorf("engine: feature list is required")
	}
	for _, phase := range p.Phases {
		if _, ok := p.Scorers[phase]; !ok {
			return nil, fmt.Errorf("engine: no scorer for phase %q", phase)
		}
	}

	if p.CandidateTopN <= 0 {
		p.CandidateTopN = 30
	}
	if p.DefaultTopK <= 0 {
		p.DefaultTopK = 8
	}
	if p.SlotsPerPhase == nil {
		p.SlotsPerPhase = map[string]int{}
	}
	if p.LambdaByPhase == nil {
		p.LambdaByPhase = map[string]float64{}
	}

	numeric := make(map[string]bool, len(p.NumericFeatures))
	for _, name := range p.NumericFeatures {
		numeric[name] = true
	}

	return &Engine{
		store:         p.Store,
		index:         p.Index,
		scorers:       p.Scorers,
		phases:        p.Phases,
		features:      p.Features,
		numeric:       numeric,
		slotsPerPhase: p.SlotsPerPhase,
		lambdaByPhase: p.LambdaByPhase,
		candidateTopN: p.CandidateTopN,
		defaultTopK:   p.DefaultTopK,
		logger:        p.Logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Phases returns the bundle's ordered phase names.
func (e *Engine) Phases() []string { return e.phases }

// scoredItem is one catalog item with merged statistics and per-phase scores.
type scoredItem struct {
	item     refstore.Item
	heroWR   float64
	globalWR float64
	scores   map[string]float64
}

// Recommend returns the recommended build for the draft, as an ordered list
// of items per phase, truncated to topK items per phase (engine default when
// topK <= 0). Truncation happens after sequencing, so it never changes which
// items are chosen.
func (e *Engine) Recommend(ctx context.Context, draft *Draft, topK int) (map[string][]Recommendation, error) {
	start := time.Now()

	if err := draft.Validate(); err != nil {
		metrics.RecommendErrors.WithLabelValues("validation").Inc()
		return nil, err
	}
	if topK <= 0 {
		topK = e.defaultTopK
	}

	row, err := e.BuildContext(ctx, draft)
	if err != nil {
		metrics.RecommendErrors.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("build context: %w", err)
	}

	items, err := e.store.Items(ctx)
	if err != nil {
		metrics.RecommendErrors.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("load item catalog: %w", err)
	}

	cands, err := e.scoreCandidates(row, items)
	if err != nil {
		metrics.RecommendErrors.WithLabelValues("scoring").Inc()
		return nil, err
	}

	result := e.buildSequence(draft.HeroID, cands, topK)

	var returned int
	for _, recs := range result {
		returned += len(recs)
	}
	metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	metrics.RecommendItems.Observe(float64(returned))

	e.logger.Debug().
		Int("hero_id", draft.HeroID).
		Int("items_returned", returned).
		Dur("elapsed", time.Since(start)).
		Msg("recommendation computed")

	return result, nil
}

// scoreCandidates expands the context row across the whole catalog, merges
// win-rate statistics and scores the matrix once per phase. Memory is
// bounded by catalog size x phase count regardless of draft contents, and
// the catalog may change size between calls.
func (e *Engine) scoreCandidates(row *ContextRow, items []refstore.Item) ([]scoredItem, error) {
	base := contextFeatureMap(row)

	matrix := make([][]float64, len(items))
	cands := make([]scoredItem, len(items))
	for i, item := range items {
		heroWR, globalWR := e.index.MergedWinRates(row.HeroID, item.ItemID)

		base[featItemID] = float64(item.ItemID)
		base[featHeroItemWR] = heroWR
		base[featItemGlobalWR] = globalWR
		matrix[i] = buildFeatureVector(e.features, e.numeric, base)

		cands[i] = scoredItem{
			item:     item,
			heroWR:   heroWR,
			globalWR: globalWR,
			scores:   make(map[string]float64, len(e.phases)),
		}
	}

	for _, phase := range e.phases {
		scores, err := e.scorers[phase].Score(matrix)
		if err != nil {
			return nil, &ScoringError{Phase: phase, Err: err}
		}
		if len(scores) != len(items) {
			return nil, &ScoringError{
				Phase: phase,
				Err:   fmt.Errorf("scorer returned %d scores for %d items", len(scores), len(items)),
			}
		}
		for i, s := range scores {
			cands[i].scores[phase] = s
		}
	}

	return cands, nil
}

// lambda returns the transition blending weight for a phase.
func (e *Engine) lambda(phase string) float64 {
	if lam, ok := e.lambdaByPhase[phase]; ok {
		return lam
	}
	return defaultLambda
}
