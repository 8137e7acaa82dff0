package engine

import (
	"testing"

	"yaniv/internal/model"
)

func handOf(cards ...model.Card) []model.Card { return cards }

// remainingDeckFor returns the canonical deck minus every card already
// dealt into a hand, so a post-scoring dealRound has enough cards to deal
// a fresh round without violating card conservation.
func remainingDeckFor(players []*model.Player) []model.Card {
	used := make(map[int]struct{})
	for _, p := range players {
		for _, c := range p.Hand {
			used[c.ID()] = struct{}{}
		}
	}
	var out []model.Card
	for _, c := range model.CreateDeck() {
		if _, ok := used[c.ID()]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func TestDeclareYanivCleanWin(t *testing.T) {
	declarer := &model.Player{Name: "declarer", Hand: handOf(model.NewCardFromRankSuit(1, model.Clubs))}
	opponent := &model.Player{Name: "opponent", Hand: handOf(
		model.NewCardFromRankSuit(13, model.Spades),
		model.NewCardFromRankSuit(12, model.Spades),
	)}
	third := &model.Player{Name: "third", Hand: handOf(model.NewCardFromRankSuit(8, model.Diamonds))}
	g := &Game{Players: []*model.Player{declarer, opponent, third}, CurrentPlayerIndex: 0, rngSrc: fakeSource{}}
	g.Deck = remainingDeckFor(g.Players)

	result, winner, err := g.DeclareYaniv(declarer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner != nil {
		t.Fatalf("expected no winner with 3 players remaining")
	}
	if result.Assaf.Assafed {
		t.Fatal("expected a clean win, not assaf")
	}
	if opponent.Score != 20 {
		t.Fatalf("opponent score = %d, want 20", opponent.Score)
	}
	if declarer.Score != 0 {
		t.Fatalf("declarer score = %d, want 0", declarer.Score)
	}
}

func TestDeclareYanivAssaf(t *testing.T) {
	declarer := &model.Player{Name: "declarer", Hand: handOf(
		model.NewCardFromRankSuit(2, model.Hearts),
		model.NewCardFromRankSuit(3, model.Hearts),
	)}
	opponent := &model.Player{Name: "opponent", Hand: handOf(
		model.NewCardFromRankSuit(1, model.Clubs),
		model.NewCardFromRankSuit(1, model.Diamonds),
		model.NewCardFromRankSuit(1, model.Spades),
	)}
	third := &model.Player{Name: "third", Hand: handOf(model.NewCardFromRankSuit(8, model.Diamonds))}
	g := &Game{Players: []*model.Player{declarer, opponent, third}, CurrentPlayerIndex: 0, rngSrc: fakeSource{}}
	g.Deck = remainingDeckFor(g.Players)

	result, _, err := g.DeclareYaniv(declarer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Assaf.Assafed || result.Assaf.By != "opponent" {
		t.Fatalf("expected assaf by opponent, got %+v", result.Assaf)
	}
	if declarer.Score != 30 {
		t.Fatalf("declarer score = %d, want 30", declarer.Score)
	}
	if opponent.Score != 0 {
		t.Fatalf("opponent score = %d, want 0", opponent.Score)
	}
}

func TestDeclareYanivReset(t *testing.T) {
	declarer := &model.Player{Name: "declarer", Score: 45, Hand: handOf(model.NewCardFromRankSuit(1, model.Clubs))}
	opponent := &model.Player{Name: "opponent", Score: 45, Hand: handOf(
		model.NewCardFromRankSuit(5, model.Spades),
	)}
	third := &model.Player{Name: "third", Score: 40, Hand: handOf(model.NewCardFromRankSuit(8, model.Diamonds))}
	g := &Game{Players: []*model.Player{declarer, opponent, third}, CurrentPlayerIndex: 0, rngSrc: fakeSource{}}
	g.Deck = remainingDeckFor(g.Players)

	result, _, err := g.DeclareYaniv(declarer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opponent.Score != 0 {
		t.Fatalf("opponent score = %d, want 0 after reset", opponent.Score)
	}
	found := false
	for _, name := range result.Resets {
		if name == "opponent" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected opponent in resets, got %v", result.Resets)
	}
}

func TestDeclareYanivIllegalWhenHandTooHigh(t *testing.T) {
	declarer := &model.Player{Name: "declarer", Hand: handOf(
		model.NewCardFromRankSuit(10, model.Clubs),
	)}
	opponent := &model.Player{Name: "opponent"}
	g := &Game{Players: []*model.Player{declarer, opponent}, CurrentPlayerIndex: 0, rngSrc: fakeSource{}}
	if _, _, err := g.DeclareYaniv(declarer); err == nil {
		t.Fatal("expected error declaring Yaniv with hand value > 5")
	}
}

func TestDeclareYanivEliminationProducesWinner(t *testing.T) {
	declarer := &model.Player{Name: "declarer", Score: 0, Hand: handOf(model.NewCardFromRankSuit(1, model.Clubs))}
	opponent := &model.Player{Name: "opponent", Score: 95, Hand: handOf(
		model.NewCardFromRankSuit(13, model.Spades),
		model.NewCardFromRankSuit(12, model.Hearts),
	)}
	g := &Game{Players: []*model.Player{declarer, opponent}, CurrentPlayerIndex: 0, rngSrc: fakeSource{}}

	_, winner, err := g.DeclareYaniv(declarer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner == nil || winner.Name != "declarer" {
		t.Fatalf("expected declarer to win after opponent elimination, got %v", winner)
	}
}
