package ai

import (
	"testing"

	"yaniv/internal/discard"
	"yaniv/internal/engine"
	"yaniv/internal/model"
	"yaniv/internal/rng"
)

func newTestGame(names []string, aiIndexes map[int]bool) (*engine.Game, []*model.Player) {
	players := make([]*model.Player, len(names))
	for i, n := range names {
		p := &model.Player{Name: n}
		if aiIndexes[i] {
			p.IsAI = true
			p.AIState = NewObserver()
		}
		players[i] = p
	}
	g := engine.New(players, rng.New(1))
	g.StartGame()
	return g, players
}

func TestObserveRoundResetsState(t *testing.T) {
	g, players := newTestGame([]string{"human", "bot"}, map[int]bool{1: true})
	bot := players[1]
	obs := bot.AIState.(*Observer)
	if len(obs.opponents) != 1 {
		t.Fatalf("expected 1 opponent tracked, got %d", len(obs.opponents))
	}
	obs.discardOptionsCache.set("stale", 42)
	obs.ObserveRound(g, bot)
	if _, ok := obs.discardOptionsCache.get("stale"); ok {
		t.Fatal("expected caches cleared on ObserveRound")
	}
}

func TestObserveTurnTracksPickup(t *testing.T) {
	g, players := newTestGame([]string{"human", "bot"}, map[int]bool{1: true})
	bot := players[1]
	obs := bot.AIState.(*Observer)

	human := players[0]
	g.CurrentPlayerIndex = indexOfPlayer(g, human)
	cur, drawOptions := g.StartTurn()
	if len(drawOptions) == 0 {
		t.Skip("no pile draw options available for this seed")
	}
	rec, err := g.PlayTurn(cur, []int{cur.Hand[0].ID()}, engine.Draw{FromDeck: false, Index: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obs.ObserveTurn(rec)

	opp := obs.opponents["human"]
	if rec.DrawnCard != nil && len(opp.knownCards) == 0 {
		t.Fatal("expected the pile pickup to be recorded as a known card")
	}
}

func indexOfPlayer(g *engine.Game, p *model.Player) int {
	for i, pl := range g.Players {
		if pl == p {
			return i
		}
	}
	return 0
}

func TestShouldDeclareYanivNeverAboveFive(t *testing.T) {
	obs := NewObserver()
	hand := []model.Card{
		model.NewCardFromRankSuit(10, model.Clubs),
	}
	if obs.ShouldDeclareYaniv(hand) {
		t.Fatal("must never declare with hand value > 5")
	}
}

func TestShouldDeclareYanivNoOpponentsKnown(t *testing.T) {
	obs := NewObserver()
	hand := []model.Card{model.NewJoker(0), model.NewJoker(1)}
	if !obs.ShouldDeclareYaniv(hand) {
		t.Fatal("expected declare with hand value 0 and no known opponents")
	}
	highHand := []model.Card{model.NewCardFromRankSuit(4, model.Clubs)}
	if obs.ShouldDeclareYaniv(highHand) {
		t.Fatal("expected no-declare at hand value 4 with no known opponents")
	}
}

func TestBestDiscardOptionsPicksHighestPoints(t *testing.T) {
	low := []model.Card{model.NewCardFromRankSuit(2, model.Clubs)}
	high := []model.Card{model.NewCardFromRankSuit(9, model.Hearts)}
	best := bestDiscardOptions([][]model.Card{low, high})
	if len(best) != 1 || model.HandValue(best[0]) != 9 {
		t.Fatalf("expected the 9-value discard to win, got %+v", best)
	}
}

func TestBestDiscardOptionsCachedIsMemoized(t *testing.T) {
	obs := NewObserver()
	hand := []model.Card{
		model.NewCardFromRankSuit(2, model.Clubs),
		model.NewCardFromRankSuit(9, model.Hearts),
	}
	first := obs.bestDiscardOptionsCached(hand)
	if _, ok := obs.bestDiscardOptionsCache.get(handSignature(hand)); !ok {
		t.Fatal("expected bestDiscardOptionsCached to populate the cache")
	}
	second := obs.bestDiscardOptionsCached(hand)
	if len(first) != len(second) {
		t.Fatalf("expected a cached call to return the same result, got %d vs %d", len(first), len(second))
	}
}

func TestSimulateActionPrunedNeverBeatsFullSearch(t *testing.T) {
	obs := NewObserver()
	hand := []model.Card{
		model.NewCardFromRankSuit(2, model.Clubs),
		model.NewCardFromRankSuit(3, model.Hearts),
	}
	draw := model.NewCardFromRankSuit(1, model.Spades)

	fullPoints, _ := obs.simulateAction(hand, draw, false)
	prunedPoints, _ := obs.simulateAction(hand, draw, true)
	if prunedPoints < fullPoints {
		t.Fatalf("pruned search found a lower residual than the full search: full=%d pruned=%d", fullPoints, prunedPoints)
	}
	if _, ok := obs.simulateActionCache.get(handSignature(append(append([]model.Card(nil), hand...), draw)) + "|full"); !ok {
		t.Fatal("expected the unpruned call to populate simulateActionCache")
	}
	if _, ok := obs.simulateActionCache.get(handSignature(append(append([]model.Card(nil), hand...), draw)) + "|pruned"); !ok {
		t.Fatal("expected the pruned call to populate simulateActionCache")
	}
}

func TestSimulateNextTurnReturnsALegalDiscard(t *testing.T) {
	g, players := newTestGame([]string{"human", "bot"}, map[int]bool{1: true})
	bot := players[1]
	obs := bot.AIState.(*Observer)
	obs.ObserveRound(g, bot)

	discardCards, _ := obs.simulateNextTurn(bot.Hand)
	ok, _, _ := discard.Validate(discardCards)
	if !ok {
		t.Fatalf("expected simulateNextTurn to return a legal discard, got %+v", discardCards)
	}
}

func TestEnumerateDiscardOptionsFindsSingles(t *testing.T) {
	obs := NewObserver()
	hand := []model.Card{
		model.NewCardFromRankSuit(4, model.Clubs),
		model.NewCardFromRankSuit(9, model.Hearts),
	}
	options := obs.enumerateDiscardOptions(hand)
	if len(options) < 2 {
		t.Fatalf("expected at least 2 discard options (the two singles), got %d", len(options))
	}
}
