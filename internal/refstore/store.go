// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package refstore provides read-only access to the reference-statistics
// store shipped inside an inference bundle (a DuckDB database with hero,
// item and matchup aggregates).
//
// The engine depends only on the query shapes exposed here, not on DuckDB
// itself. All methods are safe for concurrent use: database/sql pools
// connections and the store is opened in read-only mode, so requests never
// contend on writes.
package refstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/draftforge/draftforge/internal/metrics"
)

// queryTimeout bounds every reference-store query. The store is a local
// file, so anything slower than this indicates a broken bundle.
const queryTimeout = 10 * time.Second

// Store wraps a read-only DuckDB connection to the bundle's reference store.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens the reference store at path in read-only mode.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reference store not found at %s: %w", path, err)
	}

	connStr := fmt.Sprintf("%s?access_mode=read_only&autoinstall_known_extensions=false&autoload_known_extensions=false", path)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open reference store %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping reference store %s: %w", path, err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Path returns the filesystem path of the underlying database.
func (s *Store) Path() string { return s.path }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

// LaneSnapshot returns the hero's average early-lane performance snapshot.
// Found is false when the store has no rows for the hero; callers apply
// their documented defaults in that case.
func (s *Store) LaneSnapshot(ctx context.Context, heroID int) (LaneSnapshot, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT
			AVG(souls_9m) AS souls_9m,
			AVG(cs_9m)    AS cs_9m,
			AVG(kills_9m) AS kills_9m
		FROM hero_lane_snap_9
		WHERE hero_id = ?
	`

	var souls, cs, kills sql.NullFloat64
	err := s.conn.QueryRowContext(ctx, query, heroID).Scan(&souls, &cs, &kills)
	metrics.ObserveStoreQuery("lane_snapshot", start, err)
	if err != nil {
		return LaneSnapshot{}, fmt.Errorf("query lane snapshot for hero %d: %w", heroID, err)
	}

	return LaneSnapshot{
		Souls9m: souls.Float64,
		CS9m:    cs.Float64,
		Kills9m: kills.Float64,
		Found:   souls.Valid,
	}, nil
}

// SynergyWinRates returns the win rate of the hero paired with each of the
// given allies, keyed by ally id. Pairs without data are absent from the map.
// The synergy table is symmetric: the hero may appear as either hero1 or hero2.
func (s *Store) SynergyWinRates(ctx context.Context, heroID int, allyIDs []int) (map[int]float64, error) {
	if len(allyIDs) == 0 {
		return map[int]float64{}, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	placeholders := idPlaceholders(len(allyIDs))
	query := fmt.Sprintf(`
		SELECT hero1, hero2, winrate
		FROM hero_synergy
		WHERE (hero1 = ? AND hero2 IN (%s))
		   OR (hero2 = ? AND hero1 IN (%s))
	`, placeholders, placeholders)

	args := make([]interface{}, 0, 2*len(allyIDs)+2)
	args = append(args, heroID)
	for _, id := range allyIDs {
		args = append(args, id)
	}
	args = append(args, heroID)
	for _, id := range allyIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	metrics.ObserveStoreQuery("synergy", start, err)
	if err != nil {
		return nil, fmt.Errorf("query synergy for hero %d: %w", heroID, err)
	}
	defer rows.Close()

	result := make(map[int]float64, len(allyIDs))
	for rows.Next() {
		var hero1, hero2 int
		var winrate float64
		if err := rows.Scan(&hero1, &hero2, &winrate); err != nil {
			return nil, fmt.Errorf("scan synergy row: %w", err)
		}
		other := hero2
		if hero2 == heroID {
			other = hero1
		}
		result[other] = winrate
	}
	return result, rows.Err()
}

// CounterWinRates returns the hero's win rate against each of the given
// enemies, keyed by enemy id. Pairs without data are absent from the map.
func (s *Store) CounterWinRates(ctx context.Context, heroID int, enemyIDs []int) (map[int]float64, error) {
	if len(enemyIDs) == 0 {
		return map[int]float64{}, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT enemy, winrate
		FROM hero_counter
		WHERE hero = ? AND enemy IN (%s)
	`, idPlaceholders(len(enemyIDs)))

	args := make([]interface{}, 0, len(enemyIDs)+1)
	args = append(args, heroID)
	for _, id := range enemyIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	metrics.ObserveStoreQuery("counter", start, err)
	if err != nil {
		return nil, fmt.Errorf("query counters for hero %d: %w", heroID, err)
	}
	defer rows.Close()

	result := make(map[int]float64, len(enemyIDs))
	for rows.Next() {
		var enemy int
		var winrate float64
		if err := rows.Scan(&enemy, &winrate); err != nil {
			return nil, fmt.Errorf("scan counter row: %w", err)
		}
		result[enemy] = winrate
	}
	return result, rows.Err()
}

// LaneMatchups returns soul-matchup statistics for the hero against the
// given lane enemies. Opponents without data are simply absent.
func (s *Store) LaneMatchups(ctx context.Context, heroID int, laneEnemyIDs []int) ([]LaneMatchup, error) {
	if len(laneEnemyIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT opponent, avg_soul_diff, avg_souls_raw, tower_rate
		FROM hero_soul_matchup
		WHERE hero = ? AND opponent IN (%s)
	`, idPlaceholders(len(laneEnemyIDs)))

	args := make([]interface{}, 0, len(laneEnemyIDs)+1)
	args = append(args, heroID)
	for _, id := range laneEnemyIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	metrics.ObserveStoreQuery("lane_matchup", start, err)
	if err != nil {
		return nil, fmt.Errorf("query lane matchups for hero %d: %w", heroID, err)
	}
	defer rows.Close()

	var matchups []LaneMatchup
	for rows.Next() {
		var m LaneMatchup
		if err := rows.Scan(&m.Opponent, &m.AvgSoulDiff, &m.AvgSoulsRaw, &m.TowerRate); err != nil {
			return nil, fmt.Errorf("scan lane matchup row: %w", err)
		}
		matchups = append(matchups, m)
	}
	return matchups, rows.Err()
}

// GlobalMatchStats returns global match-context averages. Found is false
// when the match_info table is empty.
func (s *Store) GlobalMatchStats(ctx context.Context) (MatchAverages, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT
			AVG(duration_s) AS avg_duration_s,
			AVG(team0_tier) AS avg_team0_tier,
			AVG(team1_tier) AS avg_team1_tier
		FROM match_info
	`

	var duration, team0, team1 sql.NullFloat64
	err := s.conn.QueryRowContext(ctx, query).Scan(&duration, &team0, &team1)
	metrics.ObserveStoreQuery("global_match_stats", start, err)
	if err != nil {
		return MatchAverages{}, fmt.Errorf("query global match stats: %w", err)
	}

	return MatchAverages{
		DurationS: duration.Float64,
		Team0Tier: team0.Float64,
		Team1Tier: team1.Float64,
		Found:     duration.Valid,
	}, nil
}

// Items returns the full purchasable-item catalog with display metadata.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT
			si.id   AS item_id,
			si.name AS item_name,
			si.tier,
			si.cost,
			ia.shop_image,
			ia.shop_image_webp,
			ia.item_slot_type
		FROM shop_items si
		LEFT JOIN item_assets ia
		       ON ia.item_id = si.id
		ORDER BY si.id
	`

	rows, err := s.conn.QueryContext(ctx, query)
	metrics.ObserveStoreQuery("items", start, err)
	if err != nil {
		return nil, fmt.Errorf("query item catalog: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var tier, cost sql.NullInt64
		var shopImage, shopImageWebp, slotType sql.NullString
		if err := rows.Scan(&it.ItemID, &it.Name, &tier, &cost, &shopImage, &shopImageWebp, &slotType); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		it.Tier = int(tier.Int64)
		it.Cost = int(cost.Int64)
		it.ShopImage = shopImage.String
		it.ShopImageWebp = shopImageWebp.String
		it.ItemSlotType = slotType.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// HeroItemWinRates returns every (hero, item) smoothed win-rate row. Used
// once at load time to build the statistics index.
func (s *Store) HeroItemWinRates(ctx context.Context) ([]HeroItemWinRate, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT hero_id, item_id, smoothed_wr FROM hero_item_winrate`

	rows, err := s.conn.QueryContext(ctx, query)
	metrics.ObserveStoreQuery("hero_item_winrate", start, err)
	if err != nil {
		return nil, fmt.Errorf("query hero item win rates: %w", err)
	}
	defer rows.Close()

	var result []HeroItemWinRate
	for rows.Next() {
		var r HeroItemWinRate
		if err := rows.Scan(&r.HeroID, &r.ItemID, &r.SmoothedWR); err != nil {
			return nil, fmt.Errorf("scan hero item win rate row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ItemTransitions returns every observed (hero, current item, next item)
// purchase transition with its probability. Used once at load time.
func (s *Store) ItemTransitions(ctx context.Context) ([]ItemTransition, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT hero_id, item_current, item_next, trans_prob FROM item_transition_stats`

	rows, err := s.conn.QueryContext(ctx, query)
	metrics.ObserveStoreQuery("item_transitions", start, err)
	if err != nil {
		return nil, fmt.Errorf("query item transitions: %w", err)
	}
	defer rows.Close()

	var result []ItemTransition
	for rows.Next() {
		var r ItemTransition
		if err := rows.Scan(&r.HeroID, &r.ItemCurrent, &r.ItemNext, &r.TransProb); err != nil {
			return nil, fmt.Errorf("scan item transition row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// idPlaceholders returns n comma-separated "?" placeholders.
func idPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
