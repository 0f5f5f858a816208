// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package statsindex builds the in-memory lookup structures derived from the
// reference store: per-item global win rates, per-(hero,item) win rates and
// purchase-order transition tables with a global fallback.
//
// The index is built once at bundle load time (one full pass over the store)
// and is read-only afterwards, so it is safe to share across requests.
package statsindex

import (
	"context"
	"fmt"

	"github.com/draftforge/draftforge/internal/refstore"
)

const (
	// NeutralWinRate is the win rate assumed for items with no statistics.
	NeutralWinRate = 50.0

	// TransitionFloor is returned for transitions absent from both the
	// hero-specific and the global table. It is never zero so that the
	// log-domain blend in the sequence builder stays finite.
	TransitionFloor = 0.01
)

// Source is the slice of the reference store the index is built from.
type Source interface {
	HeroItemWinRates(ctx context.Context) ([]refstore.HeroItemWinRate, error)
	ItemTransitions(ctx context.Context) ([]refstore.ItemTransition, error)
}

// Index holds the precomputed statistics lookups. Immutable after Build.
type Index struct {
	itemGlobalWR map[int]float64
	heroItemWR   map[int]map[int]float64

	// heroTransitions[hero][current][next] = probability, row-stochastic
	// per (hero, current) as provided by the upstream computation.
	heroTransitions map[int]map[int]map[int]float64

	// globalTransitions[current][next] = probability aggregated across
	// heroes and renormalized per current item.
	globalTransitions map[int]map[int]float64
}

// Build constructs the index with one pass over each source table.
func Build(ctx context.Context, src Source) (*Index, error) {
	winRates, err := src.HeroItemWinRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hero item win rates: %w", err)
	}

	transitions, err := src.ItemTransitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load item transitions: %w", err)
	}

	idx := &Index{
		itemGlobalWR:      make(map[int]float64),
		heroItemWR:        make(map[int]map[int]float64),
		heroTransitions:   make(map[int]map[int]map[int]float64),
		globalTransitions: make(map[int]map[int]float64),
	}

	// Per-(hero,item) win rates plus the arithmetic mean per item.
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, wr := range winRates {
		heroMap, ok := idx.heroItemWR[wr.HeroID]
		if !ok {
			heroMap = make(map[int]float64)
			idx.heroItemWR[wr.HeroID] = heroMap
		}
		heroMap[wr.ItemID] = wr.SmoothedWR

		sums[wr.ItemID] += wr.SmoothedWR
		counts[wr.ItemID]++
	}
	for itemID, sum := range sums {
		idx.itemGlobalWR[itemID] = sum / float64(counts[itemID])
	}

	// Hero transition tables store the provided probabilities directly.
	// The global fallback sums per-hero mass per (current, next) pair and
	// renormalizes by the total mass of the current item.
	globalMass := make(map[int]map[int]float64)
	totalMass := make(map[int]float64)
	for _, tr := range transitions {
		currentMap, ok := idx.heroTransitions[tr.HeroID]
		if !ok {
			currentMap = make(map[int]map[int]float64)
			idx.heroTransitions[tr.HeroID] = currentMap
		}
		nextMap, ok := currentMap[tr.ItemCurrent]
		if !ok {
			nextMap = make(map[int]float64)
			currentMap[tr.ItemCurrent] = nextMap
		}
		nextMap[tr.ItemNext] = tr.TransProb

		mass, ok := globalMass[tr.ItemCurrent]
		if !ok {
			mass = make(map[int]float64)
			globalMass[tr.ItemCurrent] = mass
		}
		mass[tr.ItemNext] += tr.TransProb
		totalMass[tr.ItemCurrent] += tr.TransProb
	}
	for current, mass := range globalMass {
		total := totalMass[current]
		if total <= 0 {
			continue
		}
		row := make(map[int]float64, len(mass))
		for next, p := range mass {
			row[next] = p / total
		}
		idx.globalTransitions[current] = row
	}

	return idx, nil
}

// ItemGlobalWR returns the item's average win rate across all heroes.
func (idx *Index) ItemGlobalWR(itemID int) (float64, bool) {
	wr, ok := idx.itemGlobalWR[itemID]
	return wr, ok
}

// HeroItemWR returns the hero-specific win rate for the item.
func (idx *Index) HeroItemWR(heroID, itemID int) (float64, bool) {
	if heroMap, ok := idx.heroItemWR[heroID]; ok {
		wr, ok := heroMap[itemID]
		return wr, ok
	}
	return 0, false
}

// MergedWinRates resolves the (hero, global) win-rate pair for an item:
// the global rate falls back to NeutralWinRate when the item has no
// statistics at all, and the hero rate falls back to the global rate.
func (idx *Index) MergedWinRates(heroID, itemID int) (heroWR, globalWR float64) {
	globalWR, ok := idx.itemGlobalWR[itemID]
	if !ok {
		globalWR = NeutralWinRate
	}
	heroWR, ok = idx.HeroItemWR(heroID, itemID)
	if !ok {
		heroWR = globalWR
	}
	return heroWR, globalWR
}

// TransitionProb returns the probability that next is purchased immediately
// after current: hero-specific if observed, else the global fallback, else
// TransitionFloor. Never zero.
func (idx *Index) TransitionProb(heroID, current, next int) float64 {
	if currentMap, ok := idx.heroTransitions[heroID]; ok {
		if nextMap, ok := currentMap[current]; ok {
			if p, ok := nextMap[next]; ok {
				return p
			}
		}
	}
	if row, ok := idx.globalTransitions[current]; ok {
		if p, ok := row[next]; ok {
			return p
		}
	}
	return TransitionFloor
}
