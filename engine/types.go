package engine

import (
	"errors"
	"fmt"
)

// Suit constants, packed into the upper 4 bits of Card.
const (
	SuitHearts   uint8 = 0
	SuitDiamonds uint8 = 1
	SuitClubs    uint8 = 2
	SuitSpades   uint8 = 3
	NumSuits           = 4
)

// Rank constants, packed into the lower 4 bits of Card.
const (
	RankAce   uint8 = 0
	RankTwo   uint8 = 1
	RankThree uint8 = 2
	RankFour  uint8 = 3
	RankFive  uint8 = 4
	RankSix   uint8 = 5
	RankSeven uint8 = 6
	RankEight uint8 = 7
	RankNine  uint8 = 8
	RankTen   uint8 = 9
	RankJack  uint8 = 10
	RankQueen uint8 = 11
	RankKing  uint8 = 12
	NumRanks        = 13
)

// ErrInvalidCard is returned when a suit or rank label is not part of a standard deck.
var ErrInvalidCard = errors.New("invalid card")

var suitSymbols = [NumSuits]string{"♥", "♦", "♣", "♠"}

var rankLabels = [NumRanks]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// NewCard constructs a Card from suit and rank.
func NewCard(suit, rank uint8) Card {
	return Card((suit << 4) | (rank & 0x0F))
}

// Suit returns the suit bits (upper 4).
func (c Card) Suit() uint8 { return uint8(c) >> 4 }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() uint8 { return uint8(c) & 0x0F }

// Valid reports whether c is one of the 52 standard cards.
func (c Card) Valid() bool {
	return c != EmptyCard && c.Suit() < NumSuits && c.Rank() < NumRanks
}

// Value returns the point value of the card.
//   - King → 0
//   - Ace → 1
//   - Two → -2
//   - Three–Ten → face value
//   - Jack, Queen → 10
func (c Card) Value() int {
	r := c.Rank()
	switch {
	case r == RankKing:
		return 0
	case r == RankAce:
		return 1
	case r == RankTwo:
		return -2
	case r <= RankTen:
		return int(r) + 1
	case r == RankJack, r == RankQueen:
		return 10
	}
	return 0
}

// SuitSymbol returns the wire symbol for the card's suit ("♥", "♦", "♣", "♠").
func (c Card) SuitSymbol() string {
	if s := c.Suit(); s < NumSuits {
		return suitSymbols[s]
	}
	return "?"
}

// RankLabel returns the wire label for the card's rank ("A", "2".."10", "J", "Q", "K").
func (c Card) RankLabel() string {
	if r := c.Rank(); r < NumRanks {
		return rankLabels[r]
	}
	return "?"
}

// String renders the card as rank followed by suit, e.g. "10♥".
func (c Card) String() string {
	if c == EmptyCard {
		return "--"
	}
	return c.RankLabel() + c.SuitSymbol()
}

// ParseSuit maps a suit symbol to its constant.
func ParseSuit(s string) (uint8, error) {
	for i, sym := range suitSymbols {
		if sym == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown suit %q", ErrInvalidCard, s)
}

// ParseRank maps a rank label to its constant.
func ParseRank(s string) (uint8, error) {
	for i, lbl := range rankLabels {
		if lbl == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown rank %q", ErrInvalidCard, s)
}

// ParseCard builds a Card from its wire suit symbol and rank label.
func ParseCard(suit, value string) (Card, error) {
	s, err := ParseSuit(suit)
	if err != nil {
		return EmptyCard, err
	}
	r, err := ParseRank(value)
	if err != nil {
		return EmptyCard, err
	}
	return NewCard(s, r), nil
}
