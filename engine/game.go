// Package engine implements the Six Card Golf deck and scoring rules.
//
// It has no knowledge of peers, turns or transport: the deck is built,
// shuffled and dealt here, and a hand is scored here. The replicated
// session in internal/game drives it.
package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	DeckSize          = 52
	HandSize          = 6
	GridRows          = 2
	GridCols          = 3
	InitialFlips      = 2
	DrawPileAfterDeal = DeckSize - 2*HandSize
)

var (
	// ErrDeckSize is returned when a deck does not hold exactly DeckSize cards.
	ErrDeckSize = errors.New("deck must contain 52 cards")
	// ErrDuplicateCard is returned when a card appears more than once.
	ErrDuplicateCard = errors.New("duplicate card")
	// ErrDeckExhausted is returned when dealing runs out of cards.
	ErrDeckExhausted = errors.New("deck exhausted")
)

// ---------------------------------------------------------------------------
// Deck
// ---------------------------------------------------------------------------

// NewDeck builds the 52-card deck in suit-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for suit := uint8(0); suit < NumSuits; suit++ {
		for rank := uint8(0); rank < NumRanks; rank++ {
			deck = append(deck, NewCard(suit, rank))
		}
	}
	return deck
}

// ValidateDeck checks that deck holds each of the 52 standard cards exactly once.
func ValidateDeck(deck []Card) error {
	if len(deck) != DeckSize {
		return fmt.Errorf("%w: got %d", ErrDeckSize, len(deck))
	}
	return CheckUnique(deck)
}

// CheckUnique reports the first invalid or repeated card in cards.
func CheckUnique(cards []Card) error {
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("%w: %#x", ErrInvalidCard, uint8(c))
		}
		if seen[c] {
			return fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen[c] = true
	}
	return nil
}

// Shuffle permutes deck in place with Fisher-Yates.
func Shuffle(deck []Card, r *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Deal pops HandSize rounds from the end of deck, one card to the host then
// one to the client per round. Every dealt slot starts face down. The
// returned remainder aliases deck.
func Deal(deck []Card) (host, client Hand, rest []Card, err error) {
	rest = deck
	for i := 0; i < HandSize; i++ {
		if len(rest) < 2 {
			return Hand{}, Hand{}, nil, fmt.Errorf("%w: dealing slot %d", ErrDeckExhausted, i)
		}
		host[i] = Slot{Card: rest[len(rest)-1]}
		client[i] = Slot{Card: rest[len(rest)-2]}
		rest = rest[:len(rest)-2]
	}
	return host, client, rest, nil
}

// ---------------------------------------------------------------------------
// Hand
// ---------------------------------------------------------------------------

// Slot is one position of a hand.
type Slot struct {
	Card   Card
	FaceUp bool
}

// Hand is the 2x3 grid of a player's slots, row-major.
type Hand [HandSize]Slot

// Position maps a slot index to its grid row and column.
func Position(idx int) (row, col int) { return idx / GridCols, idx % GridCols }

// ValidIndex reports whether idx addresses a hand slot.
func ValidIndex(idx int) bool { return idx >= 0 && idx < HandSize }

// NewHand builds a face-down hand from six cards.
func NewHand(cards []Card) (Hand, error) {
	var h Hand
	if len(cards) != HandSize {
		return h, fmt.Errorf("hand needs %d cards, got %d", HandSize, len(cards))
	}
	for i, c := range cards {
		h[i] = Slot{Card: c}
	}
	return h, nil
}

// FaceUpCount returns how many slots are face up.
func (h Hand) FaceUpCount() int {
	n := 0
	for _, s := range h {
		if s.FaceUp {
			n++
		}
	}
	return n
}

// AllFaceUp reports whether every slot is face up.
func (h Hand) AllFaceUp() bool { return h.FaceUpCount() == HandSize }

// RevealAll turns every slot face up.
func (h *Hand) RevealAll() {
	for i := range h {
		h[i].FaceUp = true
	}
}

// Cards returns the slot cards in index order.
func (h Hand) Cards() []Card {
	out := make([]Card, HandSize)
	for i, s := range h {
		out[i] = s.Card
	}
	return out
}

// ---------------------------------------------------------------------------
// Pile
// ---------------------------------------------------------------------------

// Pile is a stack of cards; the top is the last element.
type Pile []Card

// Top returns the top card, or EmptyCard when the pile is empty.
func (p Pile) Top() Card {
	if len(p) == 0 {
		return EmptyCard
	}
	return p[len(p)-1]
}

// Push places c on top.
func (p *Pile) Push(c Card) { *p = append(*p, c) }

// Pop removes and returns the top card. ok is false on an empty pile.
func (p *Pile) Pop() (c Card, ok bool) {
	if len(*p) == 0 {
		return EmptyCard, false
	}
	c = (*p)[len(*p)-1]
	*p = (*p)[:len(*p)-1]
	return c, true
}
