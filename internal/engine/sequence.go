// Draftforge - Draft-Aware Item Build Recommendations for Deadlock
// Copyright 2026 Draftforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/draftforge/draftforge

package engine

import (
	"math"
	"sort"
)

// Epsilons keeping the log-domain blend finite.
const (
	epsScore      = 1e-8
	epsTransition = 1e-6
)

// phaseRanking places every catalog item within one phase's score
// distribution.
type phaseRanking struct {
	rank       map[int]int
	percentile map[int]float64
}

// rankPhase sorts the full candidate set by raw phase score descending and
// assigns 1-based ranks and percentiles (1.0 is best).
func rankPhase(cands []scoredItem, phase string) phaseRanking {
	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cands[order[a]].scores[phase] > cands[order[b]].scores[phase]
	})

	r := phaseRanking{
		rank:       make(map[int]int, len(cands)),
		percentile: make(map[int]float64, len(cands)),
	}
	n := float64(len(cands))
	for pos, idx := range order {
		itemID := cands[idx].item.ItemID
		r.rank[itemID] = pos + 1
		r.percentile[itemID] = 1.0 - float64(pos)/n
	}
	return r
}

// combinedScore is the log-linear blend used to pick each slot:
// log(raw+eps) plus lambda-weighted log transition probability from the
// previous pick. prev is nil on the first slot, which drops the transition
// term.
func (e *Engine) combinedScore(heroID int, raw float64, lam float64, prev *int, itemID int) float64 {
	total := math.Log(raw + epsScore)
	if prev != nil {
		p := e.index.TransitionProb(heroID, *prev, itemID)
		total += lam * math.Log(p+epsTransition)
	}
	return total
}

// buildSequence greedily fills the phase-ordered slot list, blending each
// candidate's raw phase score with the empirical probability of buying it
// after the previous pick, then attaches explanation metadata and truncates
// each phase to topK.
//
// Ties on the combined score resolve to the first candidate in score order
// (descending raw score, catalog order among equals); with tied floating
// point scores the choice is therefore iteration-order dependent, matching
// the historical behavior.
func (e *Engine) buildSequence(heroID int, cands []scoredItem, topK int) map[string][]Recommendation {
	rankings := make(map[string]phaseRanking, len(e.phases))
	for _, phase := range e.phases {
		rankings[phase] = rankPhase(cands, phase)
	}

	// Flatten phases into the ordered slot list.
	var slotPhases []string
	for _, phase := range e.phases {
		for i := 0; i < e.slotsPerPhase[phase]; i++ {
			slotPhases = append(slotPhases, phase)
		}
	}

	byID := make(map[int]*scoredItem, len(cands))
	for i := range cands {
		byID[cands[i].item.ItemID] = &cands[i]
	}

	chosen := make(map[int]bool, len(slotPhases))
	var sequence []int

	for _, phase := range slotPhases {
		lam := e.lambda(phase)

		// Candidate pool: unchosen items, best raw score first, top N.
		pool := make([]int, 0, len(cands))
		for i := range cands {
			if !chosen[cands[i].item.ItemID] {
				pool = append(pool, i)
			}
		}
		if len(pool) == 0 {
			break
		}
		sort.SliceStable(pool, func(a, b int) bool {
			return cands[pool[a]].scores[phase] > cands[pool[b]].scores[phase]
		})
		if len(pool) > e.candidateTopN {
			pool = pool[:e.candidateTopN]
		}

		var prev *int
		if len(sequence) > 0 {
			prev = &sequence[len(sequence)-1]
		}

		bestItem := -1
		bestScore := math.Inf(-1)
		for _, idx := range pool {
			raw := cands[idx].scores[phase]
			// A model score at or below zero has no log representation;
			// such candidates are never selected.
			if raw <= 0 {
				continue
			}
			itemID := cands[idx].item.ItemID
			total := e.combinedScore(heroID, raw, lam, prev, itemID)
			if total > bestScore {
				bestScore = total
				bestItem = itemID
			}
		}
		if bestItem == -1 {
			break
		}

		sequence = append(sequence, bestItem)
		chosen[bestItem] = true
	}

	// Walk the finalized sequence once more, phase by phase, packing
	// explanation metadata. The combined score is recomputed with the
	// same formula that selected the item; selection only ever admits
	// positive raw scores, so the total is always finite.
	results := make(map[string][]Recommendation, len(e.phases))
	for _, phase := range e.phases {
		results[phase] = []Recommendation{}
	}

	idx := 0
	var prevItem *int
	for _, phase := range e.phases {
		lam := e.lambda(phase)
		ranking := rankings[phase]

		for slot := 0; slot < e.slotsPerPhase[phase] && idx < len(sequence); slot++ {
			itemID := sequence[idx]
			cand := byID[itemID]
			raw := cand.scores[phase]

			var transProb *float64
			if prevItem != nil {
				p := e.index.TransitionProb(heroID, *prevItem, itemID)
				transProb = &p
			}

			results[phase] = append(results[phase], Recommendation{
				ItemID:        itemID,
				Name:          cand.item.Name,
				Tier:          cand.item.Tier,
				Cost:          cand.item.Cost,
				ShopImage:     cand.item.ShopImage,
				ShopImageWebp: cand.item.ShopImageWebp,
				ItemSlotType:  cand.item.ItemSlotType,

				Score:           raw,
				PhaseRank:       ranking.rank[itemID],
				PhasePercentile: ranking.percentile[itemID],

				HeroItemWR:     cand.heroWR,
				ItemGlobalWR:   cand.globalWR,
				SynergyDeltaWR: cand.heroWR - cand.globalWR,

				TransitionProbFromPrev: transProb,
				OrderInPhase:           slot,
				OrderGlobal:            idx,
				TotalScore:             e.combinedScore(heroID, raw, lam, prevItem, itemID),
			})

			prevItem = &sequence[idx]
			idx++
		}
	}

	// Truncation happens after sequencing, so it never changes which
	// items were chosen, only how many are returned.
	for phase, recs := range results {
		if len(recs) > topK {
			results[phase] = recs[:topK]
		}
	}

	return results
}
