package ai

import (
	"math"

	"yaniv/internal/discard"
	"yaniv/internal/engine"
	"yaniv/internal/model"
)

// actionContext is the per-turn context the decision rule builds once and
// scores every candidate against.
type actionContext struct {
	sampledCards      []model.Card
	deckVariance      float64
	knownRanks        map[int]bool
	knownSuitRanks    map[int]map[int]bool
	threat            float64
	yanivNextTurnProb float64
}

// candidate is one (discard, draw) pair under consideration.
type candidate struct {
	discard []model.Card
	draw    engine.Draw
}

// DecideAction chooses a discard/draw pair for the acting player's current
// hand and the game's current draw options.
func (o *Observer) DecideAction(hand []model.Card, drawOptions []model.Card) (discardIDs []int, draw engine.Draw) {
	ctx := o.buildContext()

	if resetDiscard, resetDraw, ok := o.tryResetHeuristic(hand, drawOptions, ctx); ok {
		return idsOf(resetDiscard), resetDraw
	}

	bestScore := math.Inf(1)
	bestDiscardValue := -1
	var bestDiscard []model.Card
	var bestDraw engine.Draw

	for _, opt := range o.enumerateDiscardOptions(hand) {
		handAfterDiscard := removeAll(hand, opt)
		discardValue := model.HandValue(opt)
		feedPenalty := o.feedPenalty(opt, ctx)
		jokerDiscardPenalty := float64(countJokers(opt))

		for _, cand := range o.drawChoicesFor(drawOptions) {
			score, immediatePoints := o.scoreCandidate(handAfterDiscard, cand, ctx, feedPenalty, jokerDiscardPenalty)
			_ = immediatePoints
			if score < bestScore || (score == bestScore && discardValue > bestDiscardValue) {
				bestScore = score
				bestDiscardValue = discardValue
				bestDiscard = opt
				bestDraw = cand
			}
		}
	}

	if bestDiscard == nil {
		// No candidate scored. The deck is always a draw choice, so this
		// happens only when the hand yields no legal discard; fall back to
		// the deeper pruned lookahead instead of a blind single-card discard.
		discardOpt, draw := o.simulateNextTurn(hand)
		return idsOf(discardOpt), draw
	}
	return idsOf(bestDiscard), bestDraw
}

func idsOf(cards []model.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.ID()
	}
	return out
}

func countJokers(cards []model.Card) int {
	n := 0
	for _, c := range cards {
		if c.IsJoker() {
			n++
		}
	}
	return n
}

func removeAll(hand []model.Card, remove []model.Card) []model.Card {
	out := append([]model.Card(nil), hand...)
	for _, c := range remove {
		out, _ = model.RemoveByID(out, c.ID())
	}
	return out
}

// drawChoicesFor returns one engine.Draw candidate per pile option plus one
// for the deck.
func (o *Observer) drawChoicesFor(drawOptions []model.Card) []engine.Draw {
	choices := make([]engine.Draw, 0, len(drawOptions)+1)
	for i := range drawOptions {
		choices = append(choices, engine.Draw{FromDeck: false, Index: i})
	}
	choices = append(choices, engine.Draw{FromDeck: true})
	return choices
}

// buildContext assembles the per-turn decision context.
func (o *Observer) buildContext() actionContext {
	samples := o.sampleUnseen(o.rolloutSamples)
	_, variance := meanAndVariance(samples)
	ranks, suitRanks := o.knownCardIndexes()

	threat := 0.0
	for _, name := range o.order {
		opp := o.opponents[name]
		t := math.Max(0, (8-opp.estimatedScore)/8)
		if opp.handCount <= 1 {
			t += 0.25
		} else if opp.handCount <= 2 {
			t += 0.30
		}
		if t > threat {
			threat = t
		}
	}
	if threat > 1.5 {
		threat = 1.5
	}

	notYaniv := 1.0
	for _, name := range o.order {
		opp := o.opponents[name]
		notYaniv *= 1 - opponentYanivNextTurnProbability(opp)
	}

	return actionContext{
		sampledCards:      samples,
		deckVariance:      variance,
		knownRanks:        ranks,
		knownSuitRanks:    suitRanks,
		threat:            threat,
		yanivNextTurnProb: 1 - notYaniv,
	}
}

func opponentYanivNextTurnProbability(opp *opponentState) float64 {
	switch {
	case opp.estimatedScore <= 5:
		return 0.60
	case opp.estimatedScore <= 10:
		return 0.30
	case opp.handCount <= 2:
		return 0.25
	default:
		return 0.05
	}
}

// scoreCandidate computes the formula for one (discard, draw)
// pair given the hand already minus the discard.
func (o *Observer) scoreCandidate(handAfterDiscard []model.Card, draw engine.Draw, ctx actionContext, feedPenalty, jokerDiscardPenalty float64) (score float64, immediatePoints float64) {
	var drawValue float64
	var futureScore float64
	var uncertaintyCost float64

	if draw.FromDeck {
		sum := 0.0
		for _, c := range ctx.sampledCards {
			sum += float64(c.Value())
			handWithDraw := append(append([]model.Card(nil), handAfterDiscard...), c)
			futureScore += float64(o.bestResidualPoints(handWithDraw))
		}
		n := float64(len(ctx.sampledCards))
		if n == 0 {
			n = 1
		}
		drawValue = sum / n
		futureScore /= n
		uncertaintyCost = 0.04 * math.Sqrt(ctx.deckVariance) * (1 + ctx.threat)
	} else {
		var drawn model.Card
		opts := o.game.DrawOptions()
		if draw.Index >= 0 && draw.Index < len(opts) {
			drawn = opts[draw.Index]
		}
		drawValue = float64(drawn.Value())
		handWithDraw := append(append([]model.Card(nil), handAfterDiscard...), drawn)
		futureScore = float64(o.bestResidualPoints(handWithDraw))
	}

	postDiscardHandSum := float64(model.HandValue(handAfterDiscard))
	immediatePoints = postDiscardHandSum + drawValue

	heuristicCost := 0.06*ctx.threat*immediatePoints + 0.22*feedPenalty + 0.08*jokerDiscardPenalty

	resetBonus := 0.0
	landing := 0.0
	if o.self != nil {
		landing = float64(o.self.Score) + immediatePoints
	}
	if isMultipleOf50(landing) {
		resetBonus = expectedResetBonus(len(handAfterDiscard)+1, ctx.yanivNextTurnProb)
	}

	compositionBonus := 0.10 * handCompositionBonus(handWithDrawBest(handAfterDiscard, draw, o))

	score = futureScore + heuristicCost + uncertaintyCost - resetBonus - compositionBonus
	return score, immediatePoints
}

// handWithDrawBest approximates "hand after drawing and best next discard"
// for the composition bonus term by just returning the hand plus the drawn
// pile card, without recursing into a further discard search. A deck draw
// returns the hand unchanged, since the drawn card is unknown.
func handWithDrawBest(handAfterDiscard []model.Card, draw engine.Draw, o *Observer) []model.Card {
	if draw.FromDeck {
		return handAfterDiscard
	}
	opts := o.game.DrawOptions()
	if draw.Index >= 0 && draw.Index < len(opts) {
		return append(append([]model.Card(nil), handAfterDiscard...), opts[draw.Index])
	}
	return handAfterDiscard
}

func isMultipleOf50(v float64) bool {
	r := math.Mod(v, 50)
	return r > -0.5 && r < 0.5
}

// expectedResetBonus mirrors aiplayer.py's _reset_bonus: a success factor
// tied to hand size, scaled by the opponent Yaniv-next-turn probability,
// capped at 24.0.
func expectedResetBonus(handSize int, yanivNextTurnProb float64) float64 {
	var successFactor float64
	switch {
	case handSize <= 5:
		successFactor = 0.25
	case handSize <= 7:
		successFactor = 0.55
	default:
		successFactor = 0.75
	}
	bonus := 50.0 * yanivNextTurnProb * successFactor
	if bonus > 24.0 {
		bonus = 24.0
	}
	return bonus
}

// handCompositionBonus rewards a hand that is close to more legal discards:
// pairs (same rank) and suit-adjacent cards that could form a run.
func handCompositionBonus(hand []model.Card) float64 {
	bonus := 0.0
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			a, b := hand[i], hand[j]
			if a.IsJoker() || b.IsJoker() {
				bonus += 0.5
				continue
			}
			if a.RankIndex() == b.RankIndex() {
				bonus += 2.0
			}
			if a.SuitIndex() == b.SuitIndex() {
				d := a.RankIndex() - b.RankIndex()
				if d == 1 || d == -1 {
					bonus += 1.0
				}
			}
		}
	}
	return bonus
}

// feedPenalty accumulates the per-card cost of a discard helping an
// opponent.
func (o *Observer) feedPenalty(discardCards []model.Card, ctx actionContext) float64 {
	total := 0.0
	for _, c := range discardCards {
		if c.IsJoker() {
			total += 4.0
			continue
		}
		v := c.Value()
		switch {
		case v <= 3:
			total += 1.5
		case v <= 5:
			total += 1.0
		default:
			total += 0.2
		}
		if ctx.knownRanks[c.RankIndex()] {
			total += 1.3
		}
		if suitSet := ctx.knownSuitRanks[c.SuitIndex()]; suitSet != nil {
			if suitSet[c.RankIndex()] || suitSet[c.RankIndex()-1] || suitSet[c.RankIndex()+1] {
				total += 0.8
			}
		}
		for _, name := range o.order {
			opp := o.opponents[name]
			count := opp.collectedRanks[c.RankIndex()]
			if count > 0 {
				total += 2.0 * float64(count)
			}
			if suitSet := opp.collectedSuitRanks[c.SuitIndex()]; suitSet != nil {
				if _, ok := suitSet[c.RankIndex()-1]; ok {
					total += 1.5
				}
				if _, ok := suitSet[c.RankIndex()+1]; ok {
					total += 1.5
				}
				_, lowOK := suitSet[c.RankIndex()-1]
				_, highOK := suitSet[c.RankIndex()+1]
				if lowOK && highOK {
					total += 2.5
				}
			}
			if opp.lastDiscardRanks != nil && opp.lastDiscardRanks[c.RankIndex()] {
				total -= 0.6
			}
		}
	}
	return total
}

// bestResidualPoints is the cached one-ply lookahead: the lowest possible
// hand value achievable by taking the single best legal discard from hand.
func (o *Observer) bestResidualPoints(hand []model.Card) int {
	sig := handSignature(hand)
	if v, ok := o.bestResidualCache.get(sig); ok {
		return v.(int)
	}
	best := model.HandValue(hand)
	for _, opt := range o.enumerateDiscardOptions(hand) {
		residual := model.HandValue(removeAll(hand, opt))
		if residual < best {
			best = residual
		}
	}
	o.bestResidualCache.set(sig, best)
	return best
}

// simulateActionResult is what simulateAction caches: the best achievable
// residual and the discard that reaches it.
type simulateActionResult struct {
	points  int
	discard []model.Card
}

// simulateAction estimates the residual hand value one ply after drawing
// drawCard onto potentialHand. With pruneToBestDiscard it only tries the
// highest-point discards (bestDiscardOptionsCached); otherwise it tries
// every legal discard. Cached by hand signature plus the prune flag, since
// the two modes disagree on a hand that has already been cached the other
// way.
func (o *Observer) simulateAction(potentialHand []model.Card, drawCard model.Card, pruneToBestDiscard bool) (int, []model.Card) {
	newHand := append(append([]model.Card(nil), potentialHand...), drawCard)
	sig := handSignature(newHand)
	key := sig + "|full"
	if pruneToBestDiscard {
		key = sig + "|pruned"
	}
	if v, ok := o.simulateActionCache.get(key); ok {
		r := v.(simulateActionResult)
		return r.points, r.discard
	}

	var candidates [][]model.Card
	if pruneToBestDiscard {
		candidates = o.bestDiscardOptionsCached(newHand)
	} else {
		candidates = o.enumerateDiscardOptions(newHand)
	}

	best := model.HandValue(newHand)
	var bestDiscard []model.Card
	for _, opt := range candidates {
		residual := model.HandValue(removeAll(newHand, opt))
		if bestDiscard == nil || residual <= best {
			best = residual
			bestDiscard = opt
		}
	}

	o.simulateActionCache.set(key, simulateActionResult{points: best, discard: bestDiscard})
	return best, bestDiscard
}

// bestDiscardOptionsCached returns the discard(s) worth the most points for
// hand, memoized by hand signature.
func (o *Observer) bestDiscardOptionsCached(hand []model.Card) [][]model.Card {
	sig := handSignature(hand)
	if v, ok := o.bestDiscardOptionsCache.get(sig); ok {
		return v.([][]model.Card)
	}
	best := bestDiscardOptions(o.enumerateDiscardOptions(hand))
	o.bestDiscardOptionsCache.set(sig, best)
	return best
}

// bestDiscardOptions greedily picks the discard(s) worth the most points,
// breaking ties toward fewer cards. Used to prune the lookahead search to
// the discards most likely to matter.
func bestDiscardOptions(options [][]model.Card) [][]model.Card {
	var best [][]model.Card
	bestPoints := 0
	for _, opt := range options {
		points := model.HandValue(opt)
		switch {
		case points > bestPoints:
			bestPoints = points
			best = [][]model.Card{opt}
		case points == bestPoints && len(best) > 0:
			if len(opt) < len(best[0]) {
				best = [][]model.Card{opt}
			} else if len(opt) == len(best[0]) {
				best = append(best, opt)
			}
		}
	}
	return best
}

// bestDrawFor is the lowest-scoring pile draw for a hand already reduced by
// a discard, using the pruned one-ply simulation. Stays on the deck if no
// pile draw beats the unset baseline.
func (o *Observer) bestDrawFor(handAfterDiscard []model.Card) (engine.Draw, int) {
	bestDraw := engine.Draw{FromDeck: true}
	bestScore := math.MaxInt32
	for i, c := range o.game.DrawOptions() {
		score, _ := o.simulateAction(handAfterDiscard, c, true)
		if score < bestScore {
			bestScore = score
			bestDraw = engine.Draw{FromDeck: false, Index: i}
		}
	}
	return bestDraw, bestScore
}

// simulateNextTurn is the deeper fallback search used when the main
// candidate loop can't score any option directly: try every legal discard,
// find its best pile draw via the pruned lookahead, and keep the
// lowest-scoring pair, preferring the larger discard on a tie.
func (o *Observer) simulateNextTurn(hand []model.Card) ([]model.Card, engine.Draw) {
	discardOptions := o.enumerateDiscardOptions(hand)
	bestDiscard := discardOptions[0]
	if seeded := bestDiscardOptions(discardOptions); len(seeded) > 0 {
		bestDiscard = seeded[0]
	}
	bestScore := model.HandValue(hand) - model.HandValue(bestDiscard)
	bestDraw := engine.Draw{FromDeck: true}

	for _, opt := range discardOptions {
		handAfterDiscard := removeAll(hand, opt)
		draw, score := o.bestDrawFor(handAfterDiscard)
		switch {
		case score < bestScore:
			bestScore, bestDraw, bestDiscard = score, draw, opt
		case score == bestScore && model.HandValue(opt) > model.HandValue(bestDiscard):
			bestScore, bestDraw, bestDiscard = score, draw, opt
		}
	}
	return bestDiscard, bestDraw
}

// enumerateDiscardOptions returns every legal discard from hand, memoized
// by hand signature. It brute-forces every non-empty subset of the hand
// and validates each through discard.Validate, rather than constructing
// candidates directly by rank/suit group — for the small hands Yaniv deals
// (rarely above eight cards) this finds the identical set of legal
// discards and is far less error-prone than replicating the gap-fill and
// end-extension bookkeeping a second time.
func (o *Observer) enumerateDiscardOptions(hand []model.Card) [][]model.Card {
	sig := handSignature(hand)
	if v, ok := o.discardOptionsCache.get(sig); ok {
		return v.([][]model.Card)
	}
	n := len(hand)
	var options [][]model.Card
	for mask := 1; mask < (1 << uint(n)); mask++ {
		var subset []model.Card
		for i := 0; i < n; i++ {
			if mask&(1<<uint(i)) != 0 {
				subset = append(subset, hand[i])
			}
		}
		ok, orderedRun, isRun := discard.Validate(subset)
		if !ok {
			continue
		}
		if isRun {
			options = append(options, orderedRun)
		} else {
			options = append(options, subset)
		}
	}
	o.discardOptionsCache.set(sig, options)
	return options
}

// tryResetHeuristic implements the "reset opportunism" check that runs
// before the main decision loop: if any opponent's
// estimatedScore <= 5, look for a discard/draw pair landing exactly on a
// multiple of 50 and take it immediately.
func (o *Observer) tryResetHeuristic(hand []model.Card, drawOptions []model.Card, ctx actionContext) ([]model.Card, engine.Draw, bool) {
	anyLowOpponent := false
	for _, name := range o.order {
		if o.opponents[name].estimatedScore <= 5 {
			anyLowOpponent = true
			break
		}
	}
	if !anyLowOpponent || o.self == nil {
		return nil, engine.Draw{}, false
	}
	for _, opt := range o.enumerateDiscardOptions(hand) {
		handAfterDiscard := removeAll(hand, opt)
		for _, cand := range o.drawChoicesFor(drawOptions) {
			var drawValue int
			if cand.FromDeck {
				if len(ctx.sampledCards) == 0 {
					continue
				}
				mean, _ := meanAndVariance(ctx.sampledCards)
				drawValue = int(math.Round(mean))
			} else {
				opts := o.game.DrawOptions()
				if cand.Index < 0 || cand.Index >= len(opts) {
					continue
				}
				drawValue = opts[cand.Index].Value()
			}
			landing := o.self.Score + model.HandValue(handAfterDiscard) + drawValue
			if landing == 50 || landing == 100 {
				return opt, cand, true
			}
		}
	}
	return nil, engine.Draw{}, false
}

// ShouldDeclareYaniv decides whether the observer's player should declare
// Yaniv this turn, weighing assaf risk against a hand-value threshold.
func (o *Observer) ShouldDeclareYaniv(hand []model.Card) bool {
	handValue := model.HandValue(hand)
	if handValue > 5 {
		return false
	}
	if len(o.opponents) == 0 {
		return handValue <= 2
	}

	meanUnseen, varUnseen := o.unseenStats()

	noneAssaf := 1.0
	for _, name := range o.order {
		opp := o.opponents[name]
		notAssaf := probabilityHandSumAtLeast(opp, handValue, meanUnseen, varUnseen)
		noneAssaf *= notAssaf
	}
	assafRisk := 1 - noneAssaf

	threshold := yanivThreshold(handValue)
	score := 0
	if o.self != nil {
		score = o.self.Score
	}
	scorePressure := math.Min(1, float64(score)/100)
	threshold *= 1 - 0.35*scorePressure
	if threshold < 0.03 {
		threshold = 0.03
	}

	resetImpact := 0.0
	for _, name := range o.order {
		opp := o.opponents[name]
		landing := float64(opp.player.Score) + opp.estimatedScore
		if isMultipleOf50(landing) {
			resetImpact += 1.0
		}
	}
	if resetImpact > 4.0 {
		resetImpact = 4.0
	}
	threshold -= 0.04 * resetImpact

	return assafRisk <= threshold
}

// probabilityHandSumAtLeast returns P(opponent's hand-sum > ownHandValue),
// i.e. at least ownHandValue+1: the probability this opponent does NOT
// assaf the declarer, modeled as Normal with continuity correction.
func probabilityHandSumAtLeast(opp *opponentState, ownHandValue int, meanUnseen, varUnseen float64) float64 {
	unknownCount := opp.handCount - len(opp.knownCards)
	if unknownCount < 0 {
		unknownCount = 0
	}
	knownSum := 0
	for _, c := range opp.knownCards {
		knownSum += c.Value()
	}
	mean := float64(knownSum) + float64(unknownCount)*meanUnseen
	variance := float64(unknownCount) * varUnseen
	if variance <= 0 {
		variance = 0.0001
	}
	stddev := math.Sqrt(variance)
	x := float64(ownHandValue) + 0.5
	z := (x - mean) / stddev
	return 1 - normalCDF(z)
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

func yanivThreshold(handValue int) float64 {
	table := map[int]float64{0: 0.60, 1: 0.55, 2: 0.45, 3: 0.32, 4: 0.20, 5: 0.12}
	if v, ok := table[handValue]; ok {
		return v
	}
	return 0.10
}
