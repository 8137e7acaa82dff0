package discard

import (
	"testing"

	"yaniv/internal/model"
)

func rc(rank, suit int) model.Card { return model.NewCardFromRankSuit(rank, suit) }
func jk() model.Card               { return model.NewJoker(0) }

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cards   []model.Card
		wantOK  bool
		wantRun bool
	}{
		{"single", []model.Card{rc(4, model.Hearts)}, true, false},
		{"unequal pair not legal", []model.Card{rc(4, model.Hearts), rc(5, model.Hearts)}, false, false},
		{"set of two", []model.Card{rc(7, model.Hearts), rc(7, model.Spades)}, true, false},
		{"set with joker", []model.Card{rc(7, model.Hearts), rc(7, model.Spades), jk()}, true, false},
		{"all joker set", []model.Card{jk(), jk()}, true, false},
		{"run with interior joker", []model.Card{rc(4, model.Hearts), jk(), rc(6, model.Hearts)}, true, true},
		{"run too short", []model.Card{rc(4, model.Hearts), rc(5, model.Hearts)}, false, false},
		{"run mixed suit", []model.Card{rc(4, model.Hearts), rc(5, model.Spades), rc(6, model.Hearts)}, false, false},
		{"ace-low run takes leftover jokers above", []model.Card{jk(), jk(), rc(1, model.Hearts), rc(2, model.Hearts)}, true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, run, isRun := Validate(c.cards)
			if ok != c.wantOK {
				t.Fatalf("Validate(%v) ok = %v, want %v", c.cards, ok, c.wantOK)
			}
			if isRun != c.wantRun {
				t.Fatalf("Validate(%v) isRun = %v, want %v", c.cards, isRun, c.wantRun)
			}
			if isRun && len(run) != len(c.cards) {
				t.Fatalf("Validate(%v) run len = %d, want %d", c.cards, len(run), len(c.cards))
			}
		})
	}
}

func TestValidateRunLeftoverJokerAtHighEnd(t *testing.T) {
	// 4H 5H + joker: no interior gap, one leftover joker must extend high
	// end (since low=4 has room too, high end is filled preferentially).
	ok, run, isRun := Validate([]model.Card{rc(4, model.Hearts), rc(5, model.Hearts), jk()})
	if !ok || !isRun {
		t.Fatalf("expected valid run, got ok=%v isRun=%v", ok, isRun)
	}
	low, high := SpanRanks(run)
	if high-low != 2 {
		t.Fatalf("expected span of 3 ranks, got low=%d high=%d", low, high)
	}
}

func TestDrawOptionsRun(t *testing.T) {
	run := []model.Card{rc(4, model.Hearts), rc(5, model.Hearts), rc(6, model.Hearts)}
	opts := DrawOptions(run)
	if len(opts) != 2 {
		t.Fatalf("expected 2 draw options for a run, got %d", len(opts))
	}
	if opts[0].ID() != run[0].ID() || opts[1].ID() != run[2].ID() {
		t.Fatalf("expected run ends as draw options, got %v", opts)
	}
}

func TestDrawOptionsNonRun(t *testing.T) {
	set := []model.Card{rc(7, model.Hearts), rc(7, model.Spades)}
	opts := DrawOptions(set)
	if len(opts) != 2 {
		t.Fatalf("expected every card as an option for a set, got %d", len(opts))
	}
}
