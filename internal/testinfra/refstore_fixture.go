// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

// Package testinfra provides shared test fixtures, most importantly a seeded
// reference-statistics DuckDB file matching the bundle schema. Used by the
// refstore and bundle package tests.
package testinfra

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

// referenceSchema creates the logical tables the inference engine queries.
const referenceSchema = `
CREATE TABLE hero_lane_snap_9 (
	hero_id  INTEGER,
	souls_9m DOUBLE,
	cs_9m    DOUBLE,
	kills_9m DOUBLE
);
CREATE TABLE hero_synergy (
	hero1   INTEGER,
	hero2   INTEGER,
	winrate DOUBLE
);
CREATE TABLE hero_counter (
	hero    INTEGER,
	enemy   INTEGER,
	winrate DOUBLE
);
CREATE TABLE hero_soul_matchup (
	hero          INTEGER,
	opponent      INTEGER,
	avg_soul_diff DOUBLE,
	avg_souls_raw DOUBLE,
	tower_rate    DOUBLE
);
CREATE TABLE match_info (
	match_id   INTEGER,
	duration_s DOUBLE,
	team0_tier DOUBLE,
	team1_tier DOUBLE
);
CREATE TABLE shop_items (
	id   INTEGER,
	name VARCHAR,
	tier INTEGER,
	cost INTEGER
);
CREATE TABLE item_assets (
	item_id         INTEGER,
	shop_image      VARCHAR,
	shop_image_webp VARCHAR,
	item_slot_type  VARCHAR
);
CREATE TABLE hero_item_winrate (
	hero_id     INTEGER,
	item_id     INTEGER,
	smoothed_wr DOUBLE
);
CREATE TABLE item_transition_stats (
	hero_id      INTEGER,
	item_current INTEGER,
	item_next    INTEGER,
	trans_prob   DOUBLE
);
`

// referenceSeed populates a small but representative data set:
// hero 1 has full statistics, hero 99 has none.
const referenceSeed = `
INSERT INTO hero_lane_snap_9 VALUES
	(1, 9000, 110, 1.5),
	(1, 11000, 130, 2.5),
	(2, 8000, 100, 1.0);

INSERT INTO hero_synergy VALUES
	(1, 2, 56.0),
	(3, 1, 48.0);

INSERT INTO hero_counter VALUES
	(1, 6, 44.0),
	(1, 7, 52.0);

INSERT INTO hero_soul_matchup VALUES
	(1, 6, -400.0, 9500.0, 0.4),
	(1, 7, 250.0, 10200.0, 0.6);

INSERT INTO match_info VALUES
	(100, 1800, 8.0, 9.0),
	(101, 2200, 9.0, 10.0);

INSERT INTO shop_items VALUES
	(501, 'Monster Rounds', 1, 500),
	(502, 'Sprint Boots', 1, 500),
	(503, 'Toxic Bullets', 3, 3000),
	(504, 'Leech', 4, 6200);

INSERT INTO item_assets VALUES
	(501, 'monster_rounds.png', 'monster_rounds.webp', 'weapon'),
	(502, 'sprint_boots.png', 'sprint_boots.webp', 'vitality'),
	(503, 'toxic_bullets.png', 'toxic_bullets.webp', 'weapon');

INSERT INTO hero_item_winrate VALUES
	(1, 501, 54.0),
	(1, 502, 51.0),
	(2, 501, 50.0),
	(2, 503, 48.0);

INSERT INTO item_transition_stats VALUES
	(1, 501, 502, 0.7),
	(1, 501, 503, 0.3),
	(2, 501, 502, 0.2),
	(2, 501, 504, 0.8);
`

// CreateReferenceStore writes a seeded reference-statistics DuckDB file at
// path and returns. The file can then be opened read-only by refstore.Open.
func CreateReferenceStore(t *testing.T, path string) {
	t.Helper()

	if err := WriteReferenceStore(path); err != nil {
		t.Fatalf("create reference store fixture: %v", err)
	}
}

// WriteReferenceStore is the non-testing variant of CreateReferenceStore.
func WriteReferenceStore(path string) error {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("open fixture database: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(referenceSchema); err != nil {
		return fmt.Errorf("create fixture schema: %w", err)
	}
	if _, err := conn.Exec(referenceSeed); err != nil {
		return fmt.Errorf("seed fixture data: %w", err)
	}
	return nil
}

// CreateEmptyReferenceStore writes a reference store with the full schema but
// no rows, for exercising the documented data-gap defaults.
func CreateEmptyReferenceStore(t *testing.T, path string) {
	t.Helper()

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(referenceSchema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
}
