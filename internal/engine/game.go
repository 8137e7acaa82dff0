// Package engine implements the Yaniv game engine: deck, hands,
// turn cursor, draw/discard, reshuffle, and slamdown detection. Scoring
// lives in score.go, persistence round-tripping in serialize.go.
package engine

import (
	"errors"
	"fmt"

	"yaniv/internal/discard"
	"yaniv/internal/model"
	"yaniv/internal/rng"
)

const handSize = 5

// ErrIllegalAction is wrapped with a specific reason by every rejected
// PlayTurn/DeclareYaniv/PerformSlamdown call.
var ErrIllegalAction = errors.New("illegal action")

func illegal(reason string) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, reason)
}

// Observer is the interface an AI player's opaque observer state satisfies
// so the engine can notify it without importing internal/ai (which would
// create an import cycle: ai depends on engine's discard-option helpers).
type Observer interface {
	ObserveRound(g *Game, self *model.Player)
	ObserveTurn(rec model.TurnRecord)
}

// Draw describes a turn's draw target: either the deck, or a pile pickup
// option by index.
type Draw struct {
	FromDeck bool
	Index    int
}

// Game is the authoritative per-room game state.
type Game struct {
	Players            []*model.Player
	Deck               []model.Card
	DiscardPile        []model.Card
	LastDiscard        []model.Card
	CurrentPlayerIndex int
	PreviousScores     map[string]int

	SlamdownPlayer string // player name, "" if none
	SlamdownCard   *model.Card

	rngSrc rng.Source
}

// New seats players and picks a random starting index. rng is injectable
// for determinism.
func New(players []*model.Player, source rng.Source) *Game {
	g := &Game{
		Players: players,
		rngSrc:  source,
	}
	if len(players) > 0 {
		g.CurrentPlayerIndex = source.Intn(0, len(players)-1)
	}
	return g
}

// SetRNG rebinds the injectable randomness source, used after deserializing
// a persisted game (which cannot carry a live rng.Source).
func (g *Game) SetRNG(source rng.Source) { g.rngSrc = source }

// StartGame deals 5 cards to each player, flips the top of the deck onto
// lastDiscard, and notifies AI observers of the round.
func (g *Game) StartGame() {
	g.Deck = model.CreateDeck()
	g.rngSrc.Shuffle(len(g.Deck), func(i, j int) { g.Deck[i], g.Deck[j] = g.Deck[j], g.Deck[i] })
	g.dealRound()
}

func (g *Game) dealRound() {
	for _, p := range g.Players {
		p.Hand = nil
	}
	for i := 0; i < handSize; i++ {
		for _, p := range g.Players {
			p.Hand = append(p.Hand, g.popDeckFront())
		}
	}
	top := g.popDeckFront()
	g.DiscardPile = append(g.DiscardPile, top)
	g.LastDiscard = []model.Card{top}
	g.SlamdownPlayer = ""
	g.SlamdownCard = nil

	for _, p := range g.Players {
		if p.IsAI {
			if obs, ok := p.AIState.(Observer); ok {
				obs.ObserveRound(g, p)
			}
		}
	}
}

// popDeckFront removes and returns the front of the deck.
func (g *Game) popDeckFront() model.Card {
	if len(g.Deck) == 0 {
		g.reshuffleFromDiscard()
	}
	c := g.Deck[0]
	g.Deck = g.Deck[1:]
	return c
}

// reshuffleFromDiscard rebuilds the deck from discardPile minus lastDiscard
// and reshuffles.
func (g *Game) reshuffleFromDiscard() {
	keep := lastDiscardIDs(g.LastDiscard)
	rebuilt := make([]model.Card, 0, len(g.DiscardPile))
	for _, c := range g.DiscardPile {
		if _, skip := keep[c.ID()]; skip {
			delete(keep, c.ID()) // only skip one instance per id
			continue
		}
		rebuilt = append(rebuilt, c)
	}
	g.rngSrc.Shuffle(len(rebuilt), func(i, j int) { rebuilt[i], rebuilt[j] = rebuilt[j], rebuilt[i] })
	g.Deck = rebuilt
	g.DiscardPile = append([]model.Card(nil), g.LastDiscard...)
}

func lastDiscardIDs(cards []model.Card) map[int]struct{} {
	m := make(map[int]struct{}, len(cards))
	for _, c := range cards {
		m[c.ID()] = struct{}{}
	}
	return m
}

// CurrentPlayer returns the player whose turn it is.
func (g *Game) CurrentPlayer() *model.Player {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// DrawOptions returns the legal pile pickup cards for the current
// lastDiscard.
func (g *Game) DrawOptions() []model.Card {
	return discard.DrawOptions(g.LastDiscard)
}

// StartTurn sorts the current player's hand by id and returns
// (currentPlayer, drawOptions). Idempotent and side-effect free apart from
// the hand sort.
func (g *Game) StartTurn() (*model.Player, []model.Card) {
	cur := g.CurrentPlayer()
	if cur == nil {
		return nil, nil
	}
	model.SortByID(cur.Hand)
	return cur, g.DrawOptions()
}

// CanDeclareYaniv reports whether player's hand-value sum is <= 5.
func (g *Game) CanDeclareYaniv(player *model.Player) bool {
	return player.HandValue() <= 5
}

// PlayTurn executes one turn: draw, discard, slamdown detection, observer
// notification, and turn advancement.
func (g *Game) PlayTurn(player *model.Player, discardIDs []int, draw Draw) (model.TurnRecord, error) {
	if g.CurrentPlayer() != player {
		return model.TurnRecord{}, illegal("not your turn")
	}
	if len(discardIDs) == 0 {
		return model.TurnRecord{}, illegal("no cards discarded")
	}

	options := g.DrawOptions()
	if !draw.FromDeck && (draw.Index < 0 || draw.Index >= len(options)) {
		return model.TurnRecord{}, illegal("draw target out of range")
	}

	discardCards, err := resolveHandCards(player, discardIDs)
	if err != nil {
		return model.TurnRecord{}, err
	}
	ok, orderedRun, isRun := discard.Validate(discardCards)
	if !ok {
		return model.TurnRecord{}, illegal("discard is not legal")
	}
	finalDiscard := discardCards
	if isRun {
		finalDiscard = orderedRun
	}

	var drawnCard model.Card
	var drewFromDeck bool
	var revealDrawn bool
	if draw.FromDeck {
		drawnCard = g.popDeckFront()
		drewFromDeck = true
	} else {
		drawnCard = options[draw.Index]
		g.LastDiscard = nil // pile pickup happens before we overwrite lastDiscard below
		var removed bool
		g.DiscardPile, removed = model.RemoveByID(g.DiscardPile, drawnCard.ID())
		if !removed {
			return model.TurnRecord{}, illegal("draw target no longer in pile")
		}
		revealDrawn = true
	}

	for _, c := range discardCards {
		hand, removed := model.RemoveByID(player.Hand, c.ID())
		if !removed {
			return model.TurnRecord{}, illegal("discarded card not in hand")
		}
		player.Hand = hand
	}
	player.Hand = append(player.Hand, drawnCard)

	prevDiscard := finalDiscard
	prevIsRun := isRun
	g.DiscardPile = append(g.DiscardPile, finalDiscard...)
	g.LastDiscard = append([]model.Card(nil), finalDiscard...)

	g.detectSlamdown(player, prevDiscard, prevIsRun, drewFromDeck, drawnCard)

	rec := model.TurnRecord{
		ActingPlayer:   player.Name,
		DiscardedCards: model.CardsToDTO(finalDiscard),
		DrawSource:     model.DrawFromDeck,
	}
	if !drewFromDeck {
		rec.DrawSource = model.DrawFromPile
	}
	if revealDrawn {
		dto := drawnCard.ToDTO()
		rec.DrawnCard = &dto
	}

	for _, p := range g.Players {
		if p == player || !p.IsAI {
			continue
		}
		if obs, ok := p.AIState.(Observer); ok {
			obs.ObserveTurn(rec)
		}
	}

	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Players)
	return rec, nil
}

func resolveHandCards(player *model.Player, ids []int) ([]model.Card, error) {
	out := make([]model.Card, 0, len(ids))
	for _, id := range ids {
		if !model.ContainsID(player.Hand, id) {
			return nil, illegal("discarded card not in hand")
		}
		out = append(out, model.NewCard(id))
	}
	return out, nil
}

// detectSlamdown checks whether the just-drawn card extends the discard
// just made into the slamdown window. Slamdown never becomes available
// to AI players, and only when the acting player drew from the deck and
// still holds at least 2 cards.
func (g *Game) detectSlamdown(player *model.Player, prevDiscard []model.Card, prevIsRun bool, drewFromDeck bool, drawn model.Card) {
	g.SlamdownPlayer = ""
	g.SlamdownCard = nil
	if player.IsAI || !drewFromDeck || len(player.Hand) < 2 {
		return
	}
	if drawn.IsJoker() {
		return
	}
	if !prevIsRun {
		rank := -1
		valid := true
		for _, c := range prevDiscard {
			if c.IsJoker() {
				continue
			}
			if rank == -1 {
				rank = c.RankIndex()
			} else if c.RankIndex() != rank {
				valid = false
			}
		}
		if valid && rank != -1 && drawn.RankIndex() == rank {
			g.SlamdownPlayer = player.Name
			g.SlamdownCard = &drawn
		}
		return
	}
	low, high := discard.SpanRanks(prevDiscard)
	suit := discard.RunSuit(prevDiscard)
	if drawn.SuitIndex() == suit && (drawn.RankIndex() == low-1 || drawn.RankIndex() == high+1) {
		g.SlamdownPlayer = player.Name
		g.SlamdownCard = &drawn
	}
}

// PerformSlamdown removes the slammed card from the player's hand, appends
// it to discardPile/lastDiscard, and clears the slamdown fields. Slamming your last card fails.
func (g *Game) PerformSlamdown(player *model.Player) error {
	if g.SlamdownPlayer != player.Name || g.SlamdownCard == nil {
		return illegal("slamdown not available")
	}
	if len(player.Hand) <= 1 {
		return illegal("cannot slam your last card")
	}
	card := *g.SlamdownCard
	hand, removed := model.RemoveByID(player.Hand, card.ID())
	if !removed {
		return illegal("slamdown card not in hand")
	}
	player.Hand = hand
	g.DiscardPile = append(g.DiscardPile, card)
	g.LastDiscard = append(g.LastDiscard, card)
	g.SlamdownPlayer = ""
	g.SlamdownCard = nil
	return nil
}

// ClearSlamdown expires the slamdown offer, called on the next discard,
// Yaniv call, or any other game transition.
func (g *Game) ClearSlamdown() {
	g.SlamdownPlayer = ""
	g.SlamdownCard = nil
}
