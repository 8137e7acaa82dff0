// Package ai implements the AI observer and decision policy:
// opponent modeling from observed pickups/discards, candidate-action
// enumeration, Monte-Carlo deck rollouts, and the expected-value action
// rule, including the Yaniv/assaf risk model.
package ai

import (
	"sort"
	"strconv"
	"strings"

	"yaniv/internal/engine"
	"yaniv/internal/model"
	"yaniv/internal/rng"
)

// opponentState is the per-opponent observer state.
type opponentState struct {
	player *model.Player

	handCount      int
	knownCards     []model.Card
	estimatedScore float64
	pickupHistory  []model.Card
	discardHistory []model.Card

	lastDiscardRanks    map[int]bool
	collectedRanks      map[int]int
	collectedSuitRanks  map[int]map[int]struct{}
}

// Observer is the AI's per-instance opponent model plus memo caches. It
// satisfies engine.Observer so the game engine can notify it without an
// import cycle.
type Observer struct {
	self *model.Player
	game *engine.Game

	opponents map[string]*opponentState
	order     []string

	discardOptionsCache     *lruCache
	bestDiscardOptionsCache *lruCache
	bestResidualCache       *lruCache
	simulateActionCache     *lruCache

	rolloutSamples int
}

// NewObserver constructs an Observer with empty caches. Attach it to a
// model.Player via player.AIState = ai.NewObserver() before the round
// starts.
func NewObserver() *Observer {
	return &Observer{
		opponents:               make(map[string]*opponentState),
		discardOptionsCache:     newLRUCache(maxCacheEntries),
		bestDiscardOptionsCache: newLRUCache(maxCacheEntries),
		bestResidualCache:       newLRUCache(maxCacheEntries),
		simulateActionCache:     newLRUCache(maxCacheEntries),
		rolloutSamples:          24,
	}
}

// ObserveRound resets all per-round observer state and every memo cache.
func (o *Observer) ObserveRound(g *engine.Game, self *model.Player) {
	o.game = g
	o.self = self
	o.opponents = make(map[string]*opponentState)
	o.order = nil
	for _, p := range g.Players {
		if p == self {
			continue
		}
		o.opponents[p.Name] = &opponentState{
			player:             p,
			handCount:          len(p.Hand),
			estimatedScore:     50,
			collectedRanks:     make(map[int]int),
			collectedSuitRanks: make(map[int]map[int]struct{}),
		}
		o.order = append(o.order, p.Name)
	}
	o.discardOptionsCache.clear()
	o.bestDiscardOptionsCache.clear()
	o.bestResidualCache.clear()
	o.simulateActionCache.clear()
}

// ObserveTurn updates opponent state from a turn record.
func (o *Observer) ObserveTurn(rec model.TurnRecord) {
	opp, ok := o.opponents[rec.ActingPlayer]
	if !ok {
		return
	}
	discarded := cardsFromDTO(rec.DiscardedCards)
	for _, c := range discarded {
		opp.knownCards = removeOneByID(opp.knownCards, c.ID())
	}
	opp.discardHistory = append(opp.discardHistory, discarded...)
	opp.lastDiscardRanks = make(map[int]bool)
	for _, c := range discarded {
		if !c.IsJoker() {
			opp.lastDiscardRanks[c.RankIndex()] = true
		}
	}
	opp.handCount = opp.handCount - len(discarded) + 1

	if rec.DrawnCard != nil {
		drawn := model.NewCard(rec.DrawnCard.ID)
		opp.knownCards = append(opp.knownCards, drawn)
		opp.pickupHistory = append(opp.pickupHistory, drawn)
		if !drawn.IsJoker() {
			opp.collectedRanks[drawn.RankIndex()]++
			if opp.collectedSuitRanks[drawn.SuitIndex()] == nil {
				opp.collectedSuitRanks[drawn.SuitIndex()] = make(map[int]struct{})
			}
			opp.collectedSuitRanks[drawn.SuitIndex()][drawn.RankIndex()] = struct{}{}
		}
	}
	o.reestimate(opp)
}

func (o *Observer) reestimate(opp *opponentState) {
	mean, _ := o.unseenStats()
	opp.estimatedScore = float64(opp.handCount) * mean
}

// unseenCards is the full deck minus own hand, minus the public discard
// pile, minus other opponents' known cards, minus own visible draw
// options.
func (o *Observer) unseenCards() []model.Card {
	excluded := make(map[int]struct{}, model.DeckSize)
	if o.self != nil {
		for _, c := range o.self.Hand {
			excluded[c.ID()] = struct{}{}
		}
	}
	if o.game != nil {
		for _, c := range o.game.DiscardPile {
			excluded[c.ID()] = struct{}{}
		}
		for _, c := range o.game.DrawOptions() {
			excluded[c.ID()] = struct{}{}
		}
	}
	for _, opp := range o.opponents {
		for _, c := range opp.knownCards {
			excluded[c.ID()] = struct{}{}
		}
	}
	var out []model.Card
	for _, c := range model.CreateDeck() {
		if _, ok := excluded[c.ID()]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func (o *Observer) unseenStats() (mean, variance float64) {
	return meanAndVariance(o.unseenCards())
}

func meanAndVariance(cards []model.Card) (mean, variance float64) {
	if len(cards) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, c := range cards {
		sum += float64(c.Value())
	}
	mean = sum / float64(len(cards))
	sq := 0.0
	for _, c := range cards {
		d := float64(c.Value()) - mean
		sq += d * d
	}
	variance = sq / float64(len(cards))
	return mean, variance
}

func removeOneByID(cards []model.Card, id int) []model.Card {
	for i, c := range cards {
		if c.ID() == id {
			out := make([]model.Card, 0, len(cards)-1)
			out = append(out, cards[:i]...)
			out = append(out, cards[i+1:]...)
			return out
		}
	}
	return cards
}

func cardsFromDTO(dtos []model.CardDTO) []model.Card {
	out := make([]model.Card, len(dtos))
	for i, d := range dtos {
		out[i] = model.NewCard(d.ID)
	}
	return out
}

// knownCardIndexes aggregates collectedRanks/collectedSuitRanks across all
// opponents.
func (o *Observer) knownCardIndexes() (ranks map[int]bool, suitRanks map[int]map[int]bool) {
	ranks = make(map[int]bool)
	suitRanks = make(map[int]map[int]bool)
	for _, opp := range o.opponents {
		for r, count := range opp.collectedRanks {
			if count > 0 {
				ranks[r] = true
			}
		}
		for suit, set := range opp.collectedSuitRanks {
			if suitRanks[suit] == nil {
				suitRanks[suit] = make(map[int]bool)
			}
			for r := range set {
				suitRanks[suit][r] = true
			}
		}
	}
	return ranks, suitRanks
}

// handSignature is the memo-cache key: sorted card ids joined by comma.
func handSignature(cards []model.Card) string {
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID()
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// stateSeed derives a reproducible rollout seed from observable state
// fields only, in a fixed order, so equal observable states produce equal
// samples.
func (o *Observer) stateSeed() int64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	mix := func(v int64) {
		h ^= uint64(v)
		h *= 1099511628211 // FNV prime
	}
	if o.self != nil {
		mix(int64(o.self.Score))
		for _, c := range o.self.Hand {
			mix(int64(c.ID()))
		}
	}
	if o.game != nil {
		mix(int64(len(o.game.DiscardPile)))
		for _, name := range o.order {
			mix(int64(o.opponents[name].handCount))
		}
	}
	return int64(h)
}

func (o *Observer) rolloutSource() rng.Source {
	return rng.New(o.stateSeed())
}

// sampleUnseen draws up to n cards without replacement from the unseen
// pool, deterministically seeded from observable state.
func (o *Observer) sampleUnseen(n int) []model.Card {
	pool := o.unseenCards()
	if n >= len(pool) {
		return pool
	}
	src := o.rolloutSource()
	shuffled := append([]model.Card(nil), pool...)
	src.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
