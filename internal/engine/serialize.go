package engine

import (
	"encoding/json"
	"fmt"

	"yaniv/internal/model"
	"yaniv/internal/rng"
)

// playerState is the persisted shape of one player.
type playerState struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Hand    []int  `json:"hand"`
	IsAI    bool   `json:"isAi"`
	Pid     string `json:"pid"`
	Creator bool   `json:"creator"`
}

// State is the persisted shape of a Game: everything but the deck, plus
// enough of the discard pile to reconstruct discardPile/lastDiscard
// exactly.
type State struct {
	Players            []playerState  `json:"players"`
	DiscardPile        []int          `json:"discardPile"`
	LastDiscardSize    int            `json:"lastDiscardSize"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	PreviousScores     map[string]int `json:"previousScores"`
	SlamdownPlayer     string         `json:"slamdownPlayer"`
	SlamdownCard       *int           `json:"slamdownCard"`
}

// MarshalState serializes the game for persistence. The deck is
// deliberately omitted; UnmarshalState rebuilds it deterministically.
func (g *Game) MarshalState() (json.RawMessage, error) {
	st := State{
		DiscardPile:        idsOf(g.DiscardPile),
		LastDiscardSize:    len(g.LastDiscard),
		CurrentPlayerIndex: g.CurrentPlayerIndex,
		PreviousScores:     g.PreviousScores,
		SlamdownPlayer:     g.SlamdownPlayer,
	}
	if g.SlamdownCard != nil {
		id := g.SlamdownCard.ID()
		st.SlamdownCard = &id
	}
	for _, p := range g.Players {
		st.Players = append(st.Players, playerState{
			Name:    p.Name,
			Score:   p.Score,
			Hand:    idsOf(p.Hand),
			IsAI:    p.IsAI,
			Pid:     p.Pid,
			Creator: p.Creator,
		})
	}
	return json.Marshal(st)
}

func idsOf(cards []model.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.ID()
	}
	return out
}

func cardsOf(ids []int) []model.Card {
	out := make([]model.Card, len(ids))
	for i, id := range ids {
		out[i] = model.NewCard(id)
	}
	return out
}

// UnmarshalState reconstructs a Game from persisted state. The deck is
// rebuilt from the full 54-card canonical deck minus every id present in
// hands and the discard pile, then reshuffled. newObserver, if
// non-nil, is used to build fresh AI observer state for AI players.
func UnmarshalState(raw json.RawMessage, source rng.Source, newObserver func(name string) Observer) (*Game, error) {
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal game state: %w", err)
	}

	seen := make(map[int]struct{}, model.DeckSize)
	g := &Game{
		DiscardPile:        cardsOf(st.DiscardPile),
		CurrentPlayerIndex: st.CurrentPlayerIndex,
		PreviousScores:     st.PreviousScores,
		SlamdownPlayer:     st.SlamdownPlayer,
		rngSrc:             source,
	}
	if st.SlamdownCard != nil {
		c := model.NewCard(*st.SlamdownCard)
		g.SlamdownCard = &c
	}
	for _, id := range st.DiscardPile {
		seen[id] = struct{}{}
	}
	if st.LastDiscardSize > 0 && st.LastDiscardSize <= len(g.DiscardPile) {
		g.LastDiscard = append([]model.Card(nil), g.DiscardPile[len(g.DiscardPile)-st.LastDiscardSize:]...)
	}

	for _, ps := range st.Players {
		p := &model.Player{
			Name:    ps.Name,
			Score:   ps.Score,
			Hand:    cardsOf(ps.Hand),
			IsAI:    ps.IsAI,
			Pid:     ps.Pid,
			Creator: ps.Creator,
		}
		for _, id := range ps.Hand {
			seen[id] = struct{}{}
		}
		if p.IsAI && newObserver != nil {
			p.AIState = newObserver(p.Name)
		}
		g.Players = append(g.Players, p)
	}

	full := model.CreateDeck()
	deck := make([]model.Card, 0, model.DeckSize)
	for _, c := range full {
		if _, ok := seen[c.ID()]; !ok {
			deck = append(deck, c)
		}
	}
	source.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	g.Deck = deck

	for _, p := range g.Players {
		if p.IsAI {
			if obs, ok := p.AIState.(Observer); ok {
				obs.ObserveRound(g, p)
			}
		}
	}

	return g, nil
}
