package protocol

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/golf/engine"
)

// ActionType is the "type" field inside a gameAction payload.
type ActionType string

const (
	ActCardFlipped         ActionType = "cardFlipped"
	ActInitialFlipComplete ActionType = "initialFlipComplete"
	ActStartTurn           ActionType = "startTurn"
	ActCardReplaced        ActionType = "cardReplaced"
	ActCardDiscarded       ActionType = "cardDiscarded"
	ActCardDrawn           ActionType = "cardDrawn"
	ActDiscardTaken        ActionType = "discardTaken"
	ActPlayerClosed        ActionType = "playerClosed"
	ActRoundEnded          ActionType = "roundEnded"
)

// ErrInvalidCard is returned when a card payload names an unknown suit or rank.
var ErrInvalidCard = errors.New("invalid card payload")

// CardPayload is a card on the wire, e.g. {"suit":"♥","value":"10"}.
type CardPayload struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// FromCard converts an engine card to its wire form.
func FromCard(c engine.Card) CardPayload {
	return CardPayload{Suit: c.SuitSymbol(), Value: c.RankLabel()}
}

// FromCards converts a slice of engine cards.
func FromCards(cards []engine.Card) []CardPayload {
	out := make([]CardPayload, len(cards))
	for i, c := range cards {
		out[i] = FromCard(c)
	}
	return out
}

// ToCard validates the payload and returns the engine card.
func (p CardPayload) ToCard() (engine.Card, error) {
	c, err := engine.ParseCard(p.Suit, p.Value)
	if err != nil {
		return engine.EmptyCard, fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	return c, nil
}

// ToCards validates every payload in order, stopping at the first bad one.
func ToCards(ps []CardPayload) ([]engine.Card, error) {
	out := make([]engine.Card, len(ps))
	for i, p := range ps {
		c, err := p.ToCard()
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// GameAction is the payload of a gameAction frame. Which optional fields are
// set depends on Type.
type GameAction struct {
	Type            ActionType    `json:"type"`
	CardIndex       *int          `json:"cardIndex,omitempty"`
	Card            *CardPayload  `json:"card,omitempty"`
	IsInitialFlip   bool          `json:"isInitialFlip,omitempty"`
	IsMyTurn        *bool         `json:"isMyTurn,omitempty"`
	NewCard         *CardPayload  `json:"newCard,omitempty"`
	DiscardedCard   *CardPayload  `json:"discardedCard,omitempty"`
	FinalPlayerHand []CardPayload `json:"finalPlayerHand,omitempty"`
}

// NewGameAction wraps an action payload.
func NewGameAction(a GameAction) Message { return newMessage(MsgGameAction, a) }

// GameAction extracts the action payload.
func (m Message) GameAction() (GameAction, error) {
	var a GameAction
	if err := m.decodeData(MsgGameAction, &a); err != nil {
		return a, err
	}
	if a.Type == "" {
		return a, fmt.Errorf("%w: gameAction without type", ErrMalformed)
	}
	return a, nil
}

// CardFlipped announces a flip of the sender's slot idx.
func CardFlipped(idx int, c engine.Card, initial bool) Message {
	p := FromCard(c)
	return NewGameAction(GameAction{Type: ActCardFlipped, CardIndex: &idx, Card: &p, IsInitialFlip: initial})
}

// InitialFlipComplete announces the sender has flipped both initial cards.
func InitialFlipComplete() Message { return NewGameAction(GameAction{Type: ActInitialFlipComplete}) }

// StartTurn tells the recipient whether it moves first.
func StartTurn(recipientStarts bool) Message {
	return NewGameAction(GameAction{Type: ActStartTurn, IsMyTurn: &recipientStarts})
}

// CardReplaced announces the sender put newCard into slot idx and discarded old.
func CardReplaced(idx int, newCard, old engine.Card) Message {
	n, d := FromCard(newCard), FromCard(old)
	return NewGameAction(GameAction{Type: ActCardReplaced, CardIndex: &idx, NewCard: &n, DiscardedCard: &d})
}

// CardDiscarded announces the sender discarded its drawn card.
func CardDiscarded(c engine.Card) Message {
	d := FromCard(c)
	return NewGameAction(GameAction{Type: ActCardDiscarded, DiscardedCard: &d})
}

// CardDrawn announces a draw from the pile without revealing the card.
func CardDrawn() Message { return NewGameAction(GameAction{Type: ActCardDrawn}) }

// DiscardTaken announces the sender took the top of the discard pile.
func DiscardTaken(c engine.Card) Message {
	p := FromCard(c)
	return NewGameAction(GameAction{Type: ActDiscardTaken, Card: &p})
}

// PlayerClosed announces the sender's hand is entirely face up.
func PlayerClosed() Message { return NewGameAction(GameAction{Type: ActPlayerClosed}) }

// RoundEnded carries the sender's revealed final hand.
func RoundEnded(hand []engine.Card) Message {
	return NewGameAction(GameAction{Type: ActRoundEnded, FinalPlayerHand: FromCards(hand)})
}
