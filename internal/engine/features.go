// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package engine

// Feature-column names shared between training exports and inference.
// The bundle metadata decides which of these (and in what order) the phase
// models actually consume.
const (
	featHeroID       = "hero_id"
	featItemID       = "item_id"
	featTeam         = "team"
	featAssignedLane = "assigned_lane"
	featHeroItemWR   = "hero_item_wr"
	featItemGlobalWR = "item_global_wr"
)

// contextFeatureMap flattens the context row into named numeric features.
// Categorical fields are already encoded as small integer codes: team has
// exactly two codes (Team0=0, Team1=1) and assigned_lane is a small lane
// index.
func contextFeatureMap(row *ContextRow) map[string]float64 {
	return map[string]float64{
		featHeroID:             float64(row.HeroID),
		featTeam:               float64(row.TeamCode),
		featAssignedLane:       float64(row.AssignedLane),
		"duration_s":           row.DurationS,
		"souls_9m":             row.Souls9m,
		"cs_9m":                row.CS9m,
		"kills_9m":             row.Kills9m,
		"lane_adv_signed":      row.LaneAdvSigned,
		"team0_tier":           row.Team0Tier,
		"team1_tier":           row.Team1Tier,
		"synergy_avg":          row.SynergyAvg,
		"synergy_max":          row.SynergyMax,
		"synergy_sum":          row.SynergySum,
		"synergy_strong_count": row.SynergyStrongCount,
		"counter_avg":          row.CounterAvg,
		"counter_max":          row.CounterMax,
		"counter_sum":          row.CounterSum,
		"counter_hard_count":   row.CounterHardCount,
		"lane_opponent":        float64(row.LaneOpponent),
		"avg_soul_diff":        row.AvgSoulDiff,
		"avg_souls_raw":        row.AvgSoulsRaw,
		"lane_tower_rate":      row.LaneTowerRate,
	}
}

// buildFeatureVector projects the named feature values onto the bundle's
// declared feature order. Numeric features are narrowed through float32, the
// width the models were trained with; any still-missing column becomes 0.
func buildFeatureVector(features []string, numeric map[string]bool, values map[string]float64) []float64 {
	vec := make([]float64, len(features))
	for i, name := range features {
		v, ok := values[name]
		if !ok {
			continue
		}
		if numeric[name] {
			v = float64(float32(v))
		}
		vec[i] = v
	}
	return vec
}
