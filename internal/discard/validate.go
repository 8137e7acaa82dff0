// Package discard implements the legal-discard rules: single
// card, same-rank set with any number of jokers, or same-suit run with
// jokers filling interior gaps and, if any remain, extending an open end.
package discard

import (
	"sort"

	"yaniv/internal/model"
)

// Validate reports whether cards form a legal discard. When ok and the
// shape is a run, orderedRun is the cards in play order (jokers interleaved
// into their gaps) and isRun is true. For a single or a set, orderedRun
// is nil and isRun is false.
func Validate(cards []model.Card) (ok bool, orderedRun []model.Card, isRun bool) {
	if len(cards) == 0 {
		return false, nil, false
	}
	if len(cards) == 1 {
		return true, nil, false
	}

	nonJokers, jokerCount := splitJokers(cards)

	if isSet(nonJokers) {
		return true, nil, false
	}

	if len(cards) >= 3 {
		if run, ok := buildRun(nonJokers, jokerCount); ok {
			// buildRun marks joker slots with placeholder jokers; put the
			// discarded jokers themselves into those slots.
			slot := 0
			for _, c := range cards {
				if !c.IsJoker() {
					continue
				}
				for !run[slot].IsJoker() {
					slot++
				}
				run[slot] = c
				slot++
			}
			return true, run, true
		}
	}

	return false, nil, false
}

func splitJokers(cards []model.Card) (nonJokers []model.Card, jokerCount int) {
	for _, c := range cards {
		if c.IsJoker() {
			jokerCount++
		} else {
			nonJokers = append(nonJokers, c)
		}
	}
	return nonJokers, jokerCount
}

// isSet reports whether all non-joker cards share the same rank. An
// all-joker discard (nonJokers empty) is always a legal set, but callers
// only reach this after len(cards) >= 2 so a single joker plus at least one
// more joker also counts.
func isSet(nonJokers []model.Card) bool {
	if len(nonJokers) == 0 {
		return true
	}
	rank := nonJokers[0].RankIndex()
	for _, c := range nonJokers[1:] {
		if c.RankIndex() != rank {
			return false
		}
	}
	return true
}

// buildRun attempts to arrange nonJokers (which must share a suit and have
// strictly increasing distinct ranks once sorted) plus jokerCount jokers
// into a run of size >= 3, filling interior gaps first and any leftover
// jokers at a legal open end.
func buildRun(nonJokers []model.Card, jokerCount int) ([]model.Card, bool) {
	if len(nonJokers) == 0 {
		return nil, false
	}
	suit := nonJokers[0].SuitIndex()
	for _, c := range nonJokers[1:] {
		if c.SuitIndex() != suit {
			return nil, false
		}
	}

	sorted := append([]model.Card(nil), nonJokers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RankIndex() < sorted[j].RankIndex() })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].RankIndex() == sorted[i-1].RankIndex() {
			return nil, false
		}
	}

	interiorGap := 0
	for i := 1; i < len(sorted); i++ {
		interiorGap += sorted[i].RankIndex() - sorted[i-1].RankIndex() - 1
	}
	if interiorGap > jokerCount {
		return nil, false
	}
	leftover := jokerCount - interiorGap

	low := sorted[0].RankIndex()
	high := sorted[len(sorted)-1].RankIndex()

	lowRoom := low - 1
	highRoom := 13 - high
	if leftover > lowRoom+highRoom {
		return nil, false
	}

	// Assemble interior: real cards with jokers filling the gaps between
	// them, in play order.
	interior := make([]model.Card, 0, len(sorted)+interiorGap)
	interior = append(interior, sorted[0])
	remainingInteriorJokers := interiorGap
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].RankIndex() - sorted[i-1].RankIndex() - 1
		for g := 0; g < gap; g++ {
			interior = append(interior, model.NewJoker(0))
			remainingInteriorJokers--
		}
		interior = append(interior, sorted[i])
	}
	_ = remainingInteriorJokers

	if leftover == 0 {
		if len(interior) < 3 {
			return nil, false
		}
		return interior, true
	}

	// Place leftover jokers, preferring the high end, then low end,
	// alternating toward whichever end still has room, nearest to center
	// first (i.e. fill one at a time from whichever end has capacity).
	lead := 0
	trail := 0
	remaining := leftover
	for remaining > 0 {
		placedThisPass := false
		if trail < highRoom {
			trail++
			remaining--
			placedThisPass = true
			if remaining == 0 {
				break
			}
		}
		if lead < lowRoom {
			lead++
			remaining--
			placedThisPass = true
		}
		if !placedThisPass {
			break
		}
	}
	if remaining > 0 {
		return nil, false
	}

	result := make([]model.Card, 0, lead+len(interior)+trail)
	for i := 0; i < lead; i++ {
		result = append(result, model.NewJoker(0))
	}
	result = append(result, interior...)
	for i := 0; i < trail; i++ {
		result = append(result, model.NewJoker(0))
	}
	if len(result) < 3 {
		return nil, false
	}
	return result, true
}

// DrawOptions returns the legal pile-pickup cards for the just-played
// lastDiscard: the two end cards if it forms a run, otherwise every card.
func DrawOptions(lastDiscard []model.Card) []model.Card {
	if len(lastDiscard) == 0 {
		return nil
	}
	ok, run, isRun := Validate(lastDiscard)
	if ok && isRun && len(run) >= 2 {
		return []model.Card{run[0], run[len(run)-1]}
	}
	out := make([]model.Card, len(lastDiscard))
	copy(out, lastDiscard)
	return out
}

// SpanRanks returns the effective (low, high) rank indexes a run occupies,
// counting leading/trailing jokers as extending the span past the nearest
// real card. Used by slamdown detection, which cares about the rank the
// run spans, not the literal end card.
func SpanRanks(orderedRun []model.Card) (low, high int) {
	lead := 0
	for lead < len(orderedRun) && orderedRun[lead].IsJoker() {
		lead++
	}
	trail := 0
	for trail < len(orderedRun) && orderedRun[len(orderedRun)-1-trail].IsJoker() {
		trail++
	}
	if lead == len(orderedRun) {
		// all jokers: no real span
		return 0, 0
	}
	low = orderedRun[lead].RankIndex() - lead
	high = orderedRun[len(orderedRun)-1-trail].RankIndex() + trail
	return low, high
}

// RunSuit returns the suit index of a run, which is shared by all
// non-joker cards. Callers must ensure orderedRun contains at least one
// non-joker.
func RunSuit(orderedRun []model.Card) int {
	for _, c := range orderedRun {
		if !c.IsJoker() {
			return c.SuitIndex()
		}
	}
	return -1
}
