// Package model holds the wire-level types shared by the game engine, the AI
// policy engine, the room state machine, and the HTTP/SSE surface: cards,
// players, and their JSON shapes.
package model

// Card identity is a single integer in [0, 53]. Ids 0 and 1 are jokers; ids
// 2..53 encode the 52 standard cards as (rankIndex-1)*4 + suitIndex + 2. The
// encoding is load-bearing: it is the wire format for hands and draw
// options, and a hash key throughout the AI. Preserve it exactly.
type Card struct {
	id int
}

const (
	numJokers  = 2
	numSuits   = 4
	numRanks   = 13
	DeckSize   = numJokers + numSuits*numRanks
	JokerRank  = 0
	minCardID  = 0
	maxCardID  = DeckSize - 1
)

// Suits in the fixed order used to derive suitIndex from a card id.
const (
	Clubs = iota
	Diamonds
	Hearts
	Spades
)

var suitNames = [numSuits]string{"Clubs", "Diamonds", "Hearts", "Spades"}

var rankNames = [numRanks + 1]string{
	"Joker", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K",
}

// NewCard constructs the card with the given wire id. The id is not
// range-checked here; callers that accept ids from a client must validate
// with ValidCardID first.
func NewCard(id int) Card {
	return Card{id: id}
}

// NewCardFromRankSuit constructs a standard (non-joker) card from a 1-based
// rank index (A=1..K=13) and a suit index (Clubs=0..Spades=3).
func NewCardFromRankSuit(rankIndex, suitIndex int) Card {
	return Card{id: (rankIndex-1)*numSuits + suitIndex + 2}
}

// NewJoker constructs one of the two jokers (which=0 or 1).
func NewJoker(which int) Card {
	return Card{id: which}
}

func ValidCardID(id int) bool {
	return id >= minCardID && id <= maxCardID
}

// ID returns the card's stable wire identity.
func (c Card) ID() int { return c.id }

func (c Card) IsJoker() bool { return c.id < numJokers }

// RankIndex is A=1..K=13, or 0 for a joker.
func (c Card) RankIndex() int {
	if c.IsJoker() {
		return JokerRank
	}
	return (c.id-2)/numSuits + 1
}

// SuitIndex is Clubs=0..Spades=3; meaningless for jokers.
func (c Card) SuitIndex() int {
	if c.IsJoker() {
		return -1
	}
	return (c.id - 2) % numSuits
}

func (c Card) Rank() string {
	return rankNames[c.RankIndex()]
}

// Suit returns the suit name, or "" for a joker.
func (c Card) Suit() string {
	if c.IsJoker() {
		return ""
	}
	return suitNames[c.SuitIndex()]
}

// Value is the hand-value contribution: min(rankIndex, 10), 0 for a joker.
func (c Card) Value() int {
	r := c.RankIndex()
	if r > 10 {
		return 10
	}
	return r
}

func (c Card) Equal(other Card) bool { return c.id == other.id }

// CreateDeck returns the 54 canonical cards in id order.
func CreateDeck() []Card {
	deck := make([]Card, DeckSize)
	for i := range deck {
		deck[i] = NewCard(i)
	}
	return deck
}

// HandValue sums the values of a set of cards.
func HandValue(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Value()
	}
	return total
}

// SortByID sorts cards ascending by id, in place.
func SortByID(cards []Card) {
	insertionSortByID(cards)
}

func insertionSortByID(cards []Card) {
	for i := 1; i < len(cards); i++ {
		cur := cards[i]
		j := i - 1
		for j >= 0 && cards[j].id > cur.id {
			cards[j+1] = cards[j]
			j--
		}
		cards[j+1] = cur
	}
}

// RemoveByID removes the first card matching id from cards, returning the
// updated slice and whether a card was removed.
func RemoveByID(cards []Card, id int) ([]Card, bool) {
	for i, c := range cards {
		if c.id == id {
			out := make([]Card, 0, len(cards)-1)
			out = append(out, cards[:i]...)
			out = append(out, cards[i+1:]...)
			return out, true
		}
	}
	return cards, false
}

// ContainsID reports whether cards contains a card with the given id.
func ContainsID(cards []Card, id int) bool {
	for _, c := range cards {
		if c.id == id {
			return true
		}
	}
	return false
}

// CardDTO is the wire format for a single card: {id, rank, suit, value}.
type CardDTO struct {
	ID    int     `json:"id"`
	Rank  string  `json:"rank"`
	Suit  *string `json:"suit"`
	Value int     `json:"value"`
}

func (c Card) ToDTO() CardDTO {
	dto := CardDTO{ID: c.id, Rank: c.Rank(), Value: c.Value()}
	if !c.IsJoker() {
		s := c.Suit()
		dto.Suit = &s
	}
	return dto
}

func CardsToDTO(cards []Card) []CardDTO {
	out := make([]CardDTO, len(cards))
	for i, c := range cards {
		out[i] = c.ToDTO()
	}
	return out
}
