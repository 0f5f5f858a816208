// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package engine

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/draftforge/draftforge/internal/refstore"
)

// fakeStore implements Store with canned rows.
type fakeStore struct {
	snapshot   refstore.LaneSnapshot
	synergy    map[int]float64
	counters   map[int]float64
	matchups   []refstore.LaneMatchup
	matchStats refstore.MatchAverages
	items      []refstore.Item

	itemsErr error
	snapErr  error
}

func (f *fakeStore) LaneSnapshot(ctx context.Context, heroID int) (refstore.LaneSnapshot, error) {
	return f.snapshot, f.snapErr
}

func (f *fakeStore) SynergyWinRates(ctx context.Context, heroID int, allyIDs []int) (map[int]float64, error) {
	return f.synergy, nil
}

func (f *fakeStore) CounterWinRates(ctx context.Context, heroID int, enemyIDs []int) (map[int]float64, error) {
	return f.counters, nil
}

func (f *fakeStore) LaneMatchups(ctx context.Context, heroID int, laneEnemyIDs []int) ([]refstore.LaneMatchup, error) {
	return f.matchups, nil
}

func (f *fakeStore) GlobalMatchStats(ctx context.Context) (refstore.MatchAverages, error) {
	return f.matchStats, nil
}

func (f *fakeStore) Items(ctx context.Context) ([]refstore.Item, error) {
	return f.items, f.itemsErr
}

// fakeIndex implements StatsIndex with literal maps.
type fakeIndex struct {
	heroWR      map[[2]int]float64 // (hero,item) -> wr
	globalWR    map[int]float64
	transitions map[[3]int]float64 // (hero,current,next) -> prob
}

func (f *fakeIndex) MergedWinRates(heroID, itemID int) (float64, float64) {
	globalWR, ok := f.globalWR[itemID]
	if !ok {
		globalWR = 50.0
	}
	heroWR, ok := f.heroWR[[2]int{heroID, itemID}]
	if !ok {
		heroWR = globalWR
	}
	return heroWR, globalWR
}

func (f *fakeIndex) TransitionProb(heroID, current, next int) float64 {
	if p, ok := f.transitions[[3]int{heroID, current, next}]; ok {
		return p
	}
	return 0.01
}

// fakeScorer returns canned scores aligned with catalog order.
type fakeScorer struct {
	scores []float64
	err    error
}

func (f *fakeScorer) Score(features [][]float64) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	return make([]float64, len(features)), nil
}

func validDraft() *Draft {
	return &Draft{
		HeroID:        1,
		LaneAllyID:    2,
		TeamOtherIDs:  []int{3, 4, 5, 6},
		LaneEnemyIDs:  []int{7, 8},
		EnemyOtherIDs: []int{9, 10, 11, 12},
	}
}

func catalog(ids ...int) []refstore.Item {
	items := make([]refstore.Item, len(ids))
	for i, id := range ids {
		items[i] = refstore.Item{ItemID: id, Name: "Item", Tier: 1, Cost: 500}
	}
	return items
}

var testFeatures = []string{
	"hero_id", "item_id", "team", "assigned_lane", "duration_s",
	"souls_9m", "synergy_avg", "counter_avg", "hero_item_wr", "item_global_wr",
}

func newTestEngine(t *testing.T, p Params) *Engine {
	t.Helper()

	if p.Index == nil {
		p.Index = &fakeIndex{}
	}
	if p.Phases == nil {
		p.Phases = []string{"early", "mid"}
	}
	if p.Features == nil {
		p.Features = testFeatures
	}
	if p.SlotsPerPhase == nil {
		p.SlotsPerPhase = map[string]int{"early": 2, "mid": 2}
	}
	if p.Scorers == nil {
		p.Scorers = map[string]PhaseScorer{}
		for _, phase := range p.Phases {
			p.Scorers[phase] = &fakeScorer{}
		}
	}
	p.Logger = zerolog.Nop()

	e, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNew_RequiresScorerPerPhase(t *testing.T) {
	_, err := New(Params{
		Store:    &fakeStore{},
		Index:    &fakeIndex{},
		Phases:   []string{"early", "mid"},
		Features: testFeatures,
		Scorers:  map[string]PhaseScorer{"early": &fakeScorer{}},
	})
	if err == nil {
		t.Fatal("expected error for missing phase scorer")
	}
}

func TestDraftValidate_Counts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		valid  bool
	}{
		{"valid", func(d *Draft) {}, true},
		{"three other allies", func(d *Draft) { d.TeamOtherIDs = []int{3, 4, 5} }, false},
		{"one lane enemy", func(d *Draft) { d.LaneEnemyIDs = []int{7} }, false},
		{"five other enemies", func(d *Draft) { d.EnemyOtherIDs = []int{9, 10, 11, 12, 13} }, false},
		{"zero hero id", func(d *Draft) { d.HeroID = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(d)
			err := d.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid draft, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestBuildContext_AllDataGapsUseDefaults(t *testing.T) {
	store := &fakeStore{
		matchStats: refstore.MatchAverages{Found: false},
	}
	e := newTestEngine(t, Params{Store: store})

	row, err := e.BuildContext(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}

	if row.SynergyAvg != 50.0 || row.SynergyMax != 50.0 {
		t.Errorf("synergy defaults = avg %v max %v, want 50/50", row.SynergyAvg, row.SynergyMax)
	}
	if row.CounterAvg != 50.0 || row.CounterMax != 50.0 {
		t.Errorf("counter defaults = avg %v max %v, want 50/50", row.CounterAvg, row.CounterMax)
	}
	if row.LaneOpponent != laneOpponentNone {
		t.Errorf("lane opponent = %d, want sentinel %d", row.LaneOpponent, laneOpponentNone)
	}
	if row.AvgSoulDiff != 0.0 {
		t.Errorf("avg soul diff = %v, want 0", row.AvgSoulDiff)
	}
	if row.LaneTowerRate != 0.5 {
		t.Errorf("lane tower rate = %v, want 0.5", row.LaneTowerRate)
	}
	if row.DurationS != 1800.0 {
		t.Errorf("duration = %v, want 1800", row.DurationS)
	}
	if row.Team0Tier != 9.0 || row.Team1Tier != 9.0 {
		t.Errorf("tiers = %v/%v, want phantom 9/9", row.Team0Tier, row.Team1Tier)
	}
}

func TestBuildContext_Aggregates(t *testing.T) {
	store := &fakeStore{
		snapshot: refstore.LaneSnapshot{Souls9m: 10000, CS9m: 120, Kills9m: 2, Found: true},
		synergy:  map[int]float64{2: 60.0, 3: 56.0}, // allies 4,5,6 default to 50
		counters: map[int]float64{7: 40.0, 9: 44.0}, // enemies 8,10,11,12 default to 50
		matchups: []refstore.LaneMatchup{
			{Opponent: 7, AvgSoulDiff: -300, AvgSoulsRaw: 9000, TowerRate: 0.4},
			{Opponent: 8, AvgSoulDiff: 100, AvgSoulsRaw: 10000, TowerRate: 0.6},
		},
		matchStats: refstore.MatchAverages{DurationS: 2000, Team0Tier: 8, Team1Tier: 10, Found: true},
	}
	e := newTestEngine(t, Params{Store: store})

	row, err := e.BuildContext(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}

	// Synergy over [60, 56, 50, 50, 50]: avg 53.2, max 60, sum 266, strong 2.
	if math.Abs(row.SynergyAvg-53.2) > 1e-9 {
		t.Errorf("SynergyAvg = %v, want 53.2", row.SynergyAvg)
	}
	if row.SynergyMax != 60.0 || row.SynergySum != 266.0 {
		t.Errorf("SynergyMax/Sum = %v/%v, want 60/266", row.SynergyMax, row.SynergySum)
	}
	if row.SynergyStrongCount != 2.0 {
		t.Errorf("SynergyStrongCount = %v, want 2 (>=55)", row.SynergyStrongCount)
	}

	// Counters over [40, 50, 44, 50, 50, 50]: hard counters are <=45.
	if row.CounterHardCount != 2.0 {
		t.Errorf("CounterHardCount = %v, want 2", row.CounterHardCount)
	}
	if row.CounterMax != 50.0 {
		t.Errorf("CounterMax = %v, want 50", row.CounterMax)
	}

	// Worst lane opponent has the minimum soul differential.
	if row.LaneOpponent != 7 {
		t.Errorf("LaneOpponent = %d, want 7", row.LaneOpponent)
	}
	if math.Abs(row.AvgSoulDiff-(-100)) > 1e-9 {
		t.Errorf("AvgSoulDiff = %v, want -100 (mean of -300 and 100)", row.AvgSoulDiff)
	}
	if math.Abs(row.LaneTowerRate-0.5) > 1e-9 {
		t.Errorf("LaneTowerRate = %v, want 0.5", row.LaneTowerRate)
	}

	if row.Souls9m != 10000 || row.DurationS != 2000 {
		t.Errorf("snapshot/global not propagated: souls %v duration %v", row.Souls9m, row.DurationS)
	}
}

func TestBuildFeatureVector(t *testing.T) {
	features := []string{"a", "b", "missing", "c"}
	numeric := map[string]bool{"a": true}
	values := map[string]float64{"a": 1.00000000123, "b": 2, "c": 3}

	vec := buildFeatureVector(features, numeric, values)
	if len(vec) != 4 {
		t.Fatalf("vector length = %d, want 4", len(vec))
	}
	if vec[2] != 0 {
		t.Errorf("missing feature should be 0, got %v", vec[2])
	}
	if vec[1] != 2 || vec[3] != 3 {
		t.Errorf("unexpected values: %v", vec)
	}
	if vec[0] != float64(float32(1.00000000123)) {
		t.Errorf("numeric feature not narrowed to float32: %v", vec[0])
	}
}

func TestRecommend_PhaseKeysAndLimits(t *testing.T) {
	store := &fakeStore{items: catalog(1, 2, 3, 4, 5, 6)}
	e := newTestEngine(t, Params{
		Store:         store,
		Phases:        []string{"early", "mid", "late"},
		SlotsPerPhase: map[string]int{"early": 2, "mid": 2, "late": 2},
		Scorers: map[string]PhaseScorer{
			"early": &fakeScorer{scores: []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4}},
			"mid":   &fakeScorer{scores: []float64{0.4, 0.5, 0.6, 0.7, 0.8, 0.9}},
			"late":  &fakeScorer{scores: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}},
		},
	})

	out, err := e.Recommend(context.Background(), validDraft(), 1)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	// Exactly the bundle's phases appear as keys.
	if len(out) != 3 {
		t.Fatalf("expected 3 phase keys, got %d", len(out))
	}
	for _, phase := range []string{"early", "mid", "late"} {
		recs, ok := out[phase]
		if !ok {
			t.Fatalf("missing phase key %q", phase)
		}
		// Never more than min(topK, slots).
		if len(recs) > 1 {
			t.Errorf("phase %q returned %d items with topK=1", phase, len(recs))
		}
	}
}

func TestRecommend_NoDuplicateItems(t *testing.T) {
	store := &fakeStore{items: catalog(1, 2, 3, 4, 5, 6, 7, 8)}
	e := newTestEngine(t, Params{
		Store:         store,
		Phases:        []string{"early", "mid"},
		SlotsPerPhase: map[string]int{"early": 3, "mid": 3},
		Scorers: map[string]PhaseScorer{
			"early": &fakeScorer{scores: []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2}},
			"mid":   &fakeScorer{scores: []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}},
		},
	})

	out, err := e.Recommend(context.Background(), validDraft(), 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	seen := map[int]bool{}
	total := 0
	for _, recs := range out {
		for _, rec := range recs {
			if seen[rec.ItemID] {
				t.Errorf("item %d appears twice in the combined sequence", rec.ItemID)
			}
			seen[rec.ItemID] = true
			total++
		}
	}
	if total != 6 {
		t.Errorf("expected 6 chosen items, got %d", total)
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	store := &fakeStore{
		items:    catalog(1, 2, 3, 4, 5),
		synergy:  map[int]float64{2: 55},
		counters: map[int]float64{7: 45},
	}
	mk := func() *Engine {
		return newTestEngine(t, Params{
			Store:         store,
			Phases:        []string{"early", "mid"},
			SlotsPerPhase: map[string]int{"early": 2, "mid": 2},
			Scorers: map[string]PhaseScorer{
				"early": &fakeScorer{scores: []float64{0.5, 0.9, 0.7, 0.3, 0.1}},
				"mid":   &fakeScorer{scores: []float64{0.6, 0.2, 0.8, 0.4, 0.9}},
			},
		})
	}

	ids := func(out map[string][]Recommendation, phases []string) []int {
		var seq []int
		for _, ph := range phases {
			for _, rec := range out[ph] {
				seq = append(seq, rec.ItemID)
			}
		}
		return seq
	}

	e := mk()
	first, err := e.Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	second, err := e.Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	phases := []string{"early", "mid"}
	if !reflect.DeepEqual(ids(first, phases), ids(second, phases)) {
		t.Errorf("identical inputs produced different sequences: %v vs %v",
			ids(first, phases), ids(second, phases))
	}
}

func TestRecommend_PoolExhaustedStopsEarly(t *testing.T) {
	// Two items, six slots: later phases come back shorter, without error.
	store := &fakeStore{items: catalog(1, 2)}
	e := newTestEngine(t, Params{
		Store:         store,
		Phases:        []string{"early", "mid", "late"},
		SlotsPerPhase: map[string]int{"early": 2, "mid": 2, "late": 2},
		Scorers: map[string]PhaseScorer{
			"early": &fakeScorer{scores: []float64{0.9, 0.8}},
			"mid":   &fakeScorer{scores: []float64{0.8, 0.9}},
			"late":  &fakeScorer{scores: []float64{0.5, 0.5}},
		},
	})

	out, err := e.Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(out["early"]) != 2 {
		t.Errorf("early phase = %d items, want 2", len(out["early"]))
	}
	if len(out["mid"]) != 0 || len(out["late"]) != 0 {
		t.Errorf("exhausted phases should be empty, got mid=%d late=%d",
			len(out["mid"]), len(out["late"]))
	}
}

func TestRecommend_NonPositiveScoresNeverSelected(t *testing.T) {
	store := &fakeStore{items: catalog(1, 2, 3)}
	e := newTestEngine(t, Params{
		Store:         store,
		Phases:        []string{"early"},
		SlotsPerPhase: map[string]int{"early": 3},
		Scorers: map[string]PhaseScorer{
			"early": &fakeScorer{scores: []float64{0.5, 0, -0.1}},
		},
	})

	out, err := e.Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(out["early"]) != 1 {
		t.Fatalf("expected only the positive-score item, got %d", len(out["early"]))
	}
	if out["early"][0].ItemID != 1 {
		t.Errorf("chose item %d, want 1", out["early"][0].ItemID)
	}
	if math.IsInf(out["early"][0].TotalScore, -1) {
		t.Error("total score must stay finite for chosen items")
	}
}

func TestRecommend_TransitionBiasWins(t *testing.T) {
	// Slot 1 picks item 1 (best early score). For slot 2, item 2 has the
	// higher raw score but a floor transition from item 1, while item 3 has
	// a slightly lower raw score and a strong observed transition. With a
	// large enough lambda, the coherent item 3 must win; with lambda 0, the
	// raw ranking must win.
	mkEngine := func(lambda float64) *Engine {
		return newTestEngine(t, Params{
			Store: &fakeStore{items: catalog(1, 2, 3)},
			Index: &fakeIndex{
				transitions: map[[3]int]float64{
					{1, 1, 3}: 0.9,
				},
			},
			Phases:        []string{"early"},
			SlotsPerPhase: map[string]int{"early": 2},
			LambdaByPhase: map[string]float64{"early": lambda},
			Scorers: map[string]PhaseScorer{
				"early": &fakeScorer{scores: []float64{0.95, 0.9, 0.8}},
			},
		})
	}

	out, err := mkEngine(2.0).Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	recs := out["early"]
	if len(recs) != 2 {
		t.Fatalf("expected 2 items, got %d", len(recs))
	}
	if recs[0].ItemID != 1 || recs[1].ItemID != 3 {
		t.Errorf("with lambda=2 expected sequence [1 3], got [%d %d]", recs[0].ItemID, recs[1].ItemID)
	}
	if recs[1].TransitionProbFromPrev == nil || *recs[1].TransitionProbFromPrev != 0.9 {
		t.Errorf("expected transition prob 0.9 on second pick, got %v", recs[1].TransitionProbFromPrev)
	}

	out, err = mkEngine(0).Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	recs = out["early"]
	if recs[1].ItemID != 2 {
		t.Errorf("with lambda=0 expected raw ranking to pick 2, got %d", recs[1].ItemID)
	}
}

func TestRecommend_ExplanationFields(t *testing.T) {
	store := &fakeStore{items: catalog(1, 2, 3, 4)}
	e := newTestEngine(t, Params{
		Store: store,
		Index: &fakeIndex{
			heroWR:   map[[2]int]float64{{1, 1}: 56.0},
			globalWR: map[int]float64{1: 52.0},
		},
		Phases:        []string{"early"},
		SlotsPerPhase: map[string]int{"early": 2},
		Scorers: map[string]PhaseScorer{
			"early": &fakeScorer{scores: []float64{0.9, 0.7, 0.5, 0.3}},
		},
	})

	out, err := e.Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	recs := out["early"]
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}

	first := recs[0]
	if first.PhaseRank != 1 || first.PhasePercentile != 1.0 {
		t.Errorf("best item rank/percentile = %d/%v, want 1/1.0", first.PhaseRank, first.PhasePercentile)
	}
	if first.TransitionProbFromPrev != nil {
		t.Error("first pick must have no transition probability")
	}
	if first.HeroItemWR != 56.0 || first.ItemGlobalWR != 52.0 {
		t.Errorf("win rates = %v/%v, want 56/52", first.HeroItemWR, first.ItemGlobalWR)
	}
	if math.Abs(first.SynergyDeltaWR-4.0) > 1e-9 {
		t.Errorf("delta = %v, want 4", first.SynergyDeltaWR)
	}
	if first.OrderInPhase != 0 || first.OrderGlobal != 0 {
		t.Errorf("positions = %d/%d, want 0/0", first.OrderInPhase, first.OrderGlobal)
	}
	wantTotal := math.Log(0.9 + epsScore)
	if math.Abs(first.TotalScore-wantTotal) > 1e-12 {
		t.Errorf("total score = %v, want %v", first.TotalScore, wantTotal)
	}

	second := recs[1]
	if second.PhaseRank != 2 {
		t.Errorf("second item phase rank = %d, want 2", second.PhaseRank)
	}
	if second.TransitionProbFromPrev == nil {
		t.Fatal("second pick must carry a transition probability")
	}
	if second.OrderInPhase != 1 || second.OrderGlobal != 1 {
		t.Errorf("positions = %d/%d, want 1/1", second.OrderInPhase, second.OrderGlobal)
	}
}

func TestRecommend_ScoringErrorAborts(t *testing.T) {
	boom := errors.New("model exploded")
	store := &fakeStore{items: catalog(1, 2)}
	e := newTestEngine(t, Params{
		Store:  store,
		Phases: []string{"early", "mid"},
		Scorers: map[string]PhaseScorer{
			"early": &fakeScorer{scores: []float64{0.5, 0.4}},
			"mid":   &fakeScorer{err: boom},
		},
	})

	_, err := e.Recommend(context.Background(), validDraft(), 8)
	var serr *ScoringError
	if !errors.As(err, &serr) {
		t.Fatalf("expected ScoringError, got %v", err)
	}
	if serr.Phase != "mid" {
		t.Errorf("failing phase = %q, want mid", serr.Phase)
	}
	if !errors.Is(err, boom) {
		t.Error("ScoringError must wrap the cause")
	}
}

func TestRecommend_ScorerLengthMismatch(t *testing.T) {
	store := &fakeStore{items: catalog(1, 2, 3)}
	e := newTestEngine(t, Params{
		Store:  store,
		Phases: []string{"early"},
		Scorers: map[string]PhaseScorer{
			"early": &fakeScorer{scores: []float64{0.5}},
		},
	})

	_, err := e.Recommend(context.Background(), validDraft(), 8)
	var serr *ScoringError
	if !errors.As(err, &serr) {
		t.Fatalf("expected ScoringError for length mismatch, got %v", err)
	}
}

func TestRecommend_InvalidDraftRejected(t *testing.T) {
	e := newTestEngine(t, Params{Store: &fakeStore{items: catalog(1)}})

	draft := validDraft()
	draft.TeamOtherIDs = []int{3}
	if _, err := e.Recommend(context.Background(), draft, 8); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRecommend_EmptyCatalog(t *testing.T) {
	e := newTestEngine(t, Params{Store: &fakeStore{}})

	out, err := e.Recommend(context.Background(), validDraft(), 8)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for phase, recs := range out {
		if len(recs) != 0 {
			t.Errorf("phase %q should be empty with no catalog, got %d", phase, len(recs))
		}
	}
}

func TestRankPhase_Percentiles(t *testing.T) {
	cands := []scoredItem{
		{item: refstore.Item{ItemID: 10}, scores: map[string]float64{"early": 0.2}},
		{item: refstore.Item{ItemID: 11}, scores: map[string]float64{"early": 0.9}},
		{item: refstore.Item{ItemID: 12}, scores: map[string]float64{"early": 0.5}},
		{item: refstore.Item{ItemID: 13}, scores: map[string]float64{"early": 0.7}},
	}
	r := rankPhase(cands, "early")

	if r.rank[11] != 1 || r.rank[13] != 2 || r.rank[12] != 3 || r.rank[10] != 4 {
		t.Errorf("unexpected ranks: %v", r.rank)
	}
	if r.percentile[11] != 1.0 {
		t.Errorf("top percentile = %v, want 1.0", r.percentile[11])
	}
	if math.Abs(r.percentile[10]-0.25) > 1e-9 {
		t.Errorf("bottom percentile = %v, want 0.25", r.percentile[10])
	}
}
