// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package refstore

// LaneSnapshot is a hero's average early-lane performance at the nine-minute
// mark. Found reports whether the store had any rows for the hero.
type LaneSnapshot struct {
	Souls9m float64
	CS9m    float64
	Kills9m float64
	Found   bool
}

// LaneMatchup describes a hero's laning statistics against one opponent.
type LaneMatchup struct {
	Opponent    int
	AvgSoulDiff float64
	AvgSoulsRaw float64
	TowerRate   float64
}

// MatchAverages holds global match-context averages. Found reports whether
// the match_info table had any rows.
type MatchAverages struct {
	DurationS float64
	Team0Tier float64
	Team1Tier float64
	Found     bool
}

// Item is one purchasable catalog entry with display metadata.
type Item struct {
	ItemID        int
	Name          string
	Tier          int
	Cost          int
	ShopImage     string
	ShopImageWebp string
	ItemSlotType  string
}

// HeroItemWinRate is one (hero, item) smoothed win-rate observation.
type HeroItemWinRate struct {
	HeroID     int
	ItemID     int
	SmoothedWR float64
}

// ItemTransition is one observed purchase-order transition for a hero,
// already row-normalized per (hero, current item) upstream.
type ItemTransition struct {
	HeroID      int
	ItemCurrent int
	ItemNext    int
	TransProb   float64
}
