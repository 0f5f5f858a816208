// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package engine

import (
	"context"
	"fmt"
)

// Documented defaults applied when the reference store has no rows.
const (
	// neutralWinRate stands in for missing synergy/counter pairs.
	neutralWinRate = 50.0

	// synergyStrongThreshold marks an ally pairing as notably strong.
	synergyStrongThreshold = 55.0

	// counterHardThreshold marks an enemy as a hard counter.
	counterHardThreshold = 45.0

	// laneOpponentNone is the sentinel when no lane matchup data exists.
	laneOpponentNone = -1

	// neutralTowerRate is the lane tower rate with no matchup data.
	neutralTowerRate = 0.5

	// defaultDurationS is the match duration with an empty match_info table.
	defaultDurationS = 1800.0

	// phantomTier is the average skill tier assumed when unknown.
	phantomTier = 9.0
)

// BuildContext assembles the single context row for the hero's draft
// situation. It is a pure function of (draft, store state): five independent
// lookups, each with documented defaults when no rows are found.
func (e *Engine) BuildContext(ctx context.Context, draft *Draft) (*ContextRow, error) {
	heroID := draft.HeroID
	allyIDs := draft.AllyIDs()
	enemyIDs := draft.EnemyIDs()

	// 1) Early-lane performance snapshot.
	snap, err := e.store.LaneSnapshot(ctx, heroID)
	if err != nil {
		return nil, fmt.Errorf("lane snapshot: %w", err)
	}

	// 2) Synergy vs every ally.
	synergy, err := e.store.SynergyWinRates(ctx, heroID, allyIDs)
	if err != nil {
		return nil, fmt.Errorf("synergy win rates: %w", err)
	}
	synergyVals := make([]float64, len(allyIDs))
	for i, id := range allyIDs {
		if wr, ok := synergy[id]; ok {
			synergyVals[i] = wr
		} else {
			synergyVals[i] = neutralWinRate
		}
	}

	// 3) Counters vs every enemy.
	counters, err := e.store.CounterWinRates(ctx, heroID, enemyIDs)
	if err != nil {
		return nil, fmt.Errorf("counter win rates: %w", err)
	}
	counterVals := make([]float64, len(enemyIDs))
	for i, id := range enemyIDs {
		if wr, ok := counters[id]; ok {
			counterVals[i] = wr
		} else {
			counterVals[i] = neutralWinRate
		}
	}

	// 4) Lane matchups against the two lane enemies.
	matchups, err := e.store.LaneMatchups(ctx, heroID, draft.LaneEnemyIDs)
	if err != nil {
		return nil, fmt.Errorf("lane matchups: %w", err)
	}

	laneOpponent := laneOpponentNone
	avgSoulDiff := 0.0
	avgSoulsRaw := 0.0
	laneTowerRate := neutralTowerRate
	if len(matchups) > 0 {
		// Worst opponent is the one with the minimum average soul
		// differential; the aggregate stats average over found rows.
		worst := matchups[0]
		var diffSum, rawSum, towerSum float64
		for _, m := range matchups {
			if m.AvgSoulDiff < worst.AvgSoulDiff {
				worst = m
			}
			diffSum += m.AvgSoulDiff
			rawSum += m.AvgSoulsRaw
			towerSum += m.TowerRate
		}
		n := float64(len(matchups))
		laneOpponent = worst.Opponent
		avgSoulDiff = diffSum / n
		avgSoulsRaw = rawSum / n
		laneTowerRate = towerSum / n
	}

	// 5) Global match-context averages.
	global, err := e.store.GlobalMatchStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("global match stats: %w", err)
	}
	durationS := defaultDurationS
	team0Tier := phantomTier
	team1Tier := phantomTier
	if global.Found {
		durationS = global.DurationS
		team0Tier = global.Team0Tier
		team1Tier = global.Team1Tier
	}

	synergyAvg, synergyMax, synergySum := summarize(synergyVals)
	counterAvg, counterMax, counterSum := summarize(counterVals)

	return &ContextRow{
		HeroID:       heroID,
		TeamCode:     0, // the hero's own perspective is always Team0
		AssignedLane: 1,

		DurationS: durationS,
		Team0Tier: team0Tier,
		Team1Tier: team1Tier,

		Souls9m:       snap.Souls9m,
		CS9m:          snap.CS9m,
		Kills9m:       snap.Kills9m,
		LaneAdvSigned: 0.0,

		SynergyAvg:         synergyAvg,
		SynergyMax:         synergyMax,
		SynergySum:         synergySum,
		SynergyStrongCount: countAtLeast(synergyVals, synergyStrongThreshold),

		CounterAvg:       counterAvg,
		CounterMax:       counterMax,
		CounterSum:       counterSum,
		CounterHardCount: countAtMost(counterVals, counterHardThreshold),

		LaneOpponent:  laneOpponent,
		AvgSoulDiff:   avgSoulDiff,
		AvgSoulsRaw:   avgSoulsRaw,
		LaneTowerRate: laneTowerRate,
	}, nil
}

// summarize returns mean, max and sum of vals. vals is never empty here:
// the draft shape guarantees five allies and six enemies.
func summarize(vals []float64) (mean, max, sum float64) {
	max = vals[0]
	for _, v := range vals {
		sum += v
		if v > max {
			max = v
		}
	}
	return sum / float64(len(vals)), max, sum
}

func countAtLeast(vals []float64, threshold float64) float64 {
	var n float64
	for _, v := range vals {
		if v >= threshold {
			n++
		}
	}
	return n
}

func countAtMost(vals []float64, threshold float64) float64 {
	var n float64
	for _, v := range vals {
		if v <= threshold {
			n++
		}
	}
	return n
}
