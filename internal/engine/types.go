// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package engine

import (
	"context"
	"fmt"

	"github.com/draftforge/draftforge/internal/refstore"
	"github.com/draftforge/draftforge/internal/validation"
)

// Draft is the current pick situation from the perspective of one hero.
type Draft struct {
	// HeroID is the hero the build is recommended for.
	HeroID int `json:"hero_id" validate:"required,gt=0"`

	// LaneAllyID is the ally sharing the hero's lane.
	LaneAllyID int `json:"lane_ally_id" validate:"required,gt=0"`

	// TeamOtherIDs are the four allies outside the hero's lane.
	TeamOtherIDs []int `json:"team_other_ids" validate:"len=4,dive,gt=0"`

	// LaneEnemyIDs are the two enemies laning against the hero.
	LaneEnemyIDs []int `json:"lane_enemy_ids" validate:"len=2,dive,gt=0"`

	// EnemyOtherIDs are the four enemies outside the hero's lane.
	EnemyOtherIDs []int `json:"enemy_other_ids" validate:"len=4,dive,gt=0"`
}

// Validate checks the draft shape. Violations are reported per field and
// are caller errors, never silently tolerated.
func (d *Draft) Validate() error {
	if verr := validation.ValidateStruct(d); verr != nil {
		return verr
	}
	return nil
}

// AllyIDs returns the lane ally followed by the other allies.
func (d *Draft) AllyIDs() []int {
	ids := make([]int, 0, 1+len(d.TeamOtherIDs))
	ids = append(ids, d.LaneAllyID)
	return append(ids, d.TeamOtherIDs...)
}

// EnemyIDs returns the lane enemies followed by the other enemies.
func (d *Draft) EnemyIDs() []int {
	ids := make([]int, 0, len(d.LaneEnemyIDs)+len(d.EnemyOtherIDs))
	ids = append(ids, d.LaneEnemyIDs...)
	return append(ids, d.EnemyOtherIDs...)
}

// ContextRow is the synthetic feature record for "this hero in this draft",
// independent of any item. Built fresh per recommendation call.
type ContextRow struct {
	HeroID       int
	TeamCode     int
	AssignedLane int

	DurationS float64
	Team0Tier float64
	Team1Tier float64

	Souls9m       float64
	CS9m          float64
	Kills9m       float64
	LaneAdvSigned float64

	SynergyAvg         float64
	SynergyMax         float64
	SynergySum         float64
	SynergyStrongCount float64

	CounterAvg       float64
	CounterMax       float64
	CounterSum       float64
	CounterHardCount float64

	LaneOpponent  int
	AvgSoulDiff   float64
	AvgSoulsRaw   float64
	LaneTowerRate float64
}

// Recommendation is one recommended item with its explanation metadata.
type Recommendation struct {
	ItemID        int    `json:"item_id"`
	Name          string `json:"name"`
	Tier          int    `json:"tier"`
	Cost          int    `json:"cost"`
	ShopImage     string `json:"shop_image,omitempty"`
	ShopImageWebp string `json:"shop_image_webp,omitempty"`
	ItemSlotType  string `json:"item_slot_type,omitempty"`

	// Score is the raw phase-model score for this item.
	Score float64 `json:"score"`

	// PhaseRank and PhasePercentile place the item within the full
	// catalog scoring for its phase (rank 1 is best).
	PhaseRank       int     `json:"phase_rank"`
	PhasePercentile float64 `json:"phase_percentile"`

	HeroItemWR     float64 `json:"hero_item_wr"`
	ItemGlobalWR   float64 `json:"item_global_wr"`
	SynergyDeltaWR float64 `json:"synergy_delta_wr"`

	// TransitionProbFromPrev is nil for the first item in the sequence.
	TransitionProbFromPrev *float64 `json:"transition_prob_from_prev"`

	OrderInPhase int `json:"order_in_phase"`
	OrderGlobal  int `json:"order_global"`

	// TotalScore is the combined selection score that chose this item.
	TotalScore float64 `json:"total_score"`
}

// Store is the reference-store query surface the engine depends on.
// Implemented by refstore.Store; faked in tests.
type Store interface {
	LaneSnapshot(ctx context.Context, heroID int) (refstore.LaneSnapshot, error)
	SynergyWinRates(ctx context.Context, heroID int, allyIDs []int) (map[int]float64, error)
	CounterWinRates(ctx context.Context, heroID int, enemyIDs []int) (map[int]float64, error)
	LaneMatchups(ctx context.Context, heroID int, laneEnemyIDs []int) ([]refstore.LaneMatchup, error)
	GlobalMatchStats(ctx context.Context) (refstore.MatchAverages, error)
	Items(ctx context.Context) ([]refstore.Item, error)
}

// PhaseScorer scores a feature matrix, one probability-like score per row.
// The engine assumes nothing about the scorer beyond this contract.
type PhaseScorer interface {
	Score(features [][]float64) ([]float64, error)
}

// StatsIndex is the precomputed statistics lookup the engine consults.
// Implemented by statsindex.Index; faked in tests.
type StatsIndex interface {
	MergedWinRates(heroID, itemID int) (heroWR, globalWR float64)
	TransitionProb(heroID, current, next int) float64
}

// ScoringError reports that a phase's model failed to score the candidate
// matrix. The whole recommendation call is aborted, never partial phases.
type ScoringError struct {
	Phase string
	Err   error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring phase %q: %v", e.Phase, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }
