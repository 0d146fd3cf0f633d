// internal/game/view.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/golf/engine"
)

// ObfCard represents a card for display, hiding details the local player may not see.
type ObfCard struct {
	Known bool   `json:"known"` // True if Rank/Suit/Value are revealed.
	Rank  string `json:"rank,omitempty"`
	Suit  string `json:"suit,omitempty"`
	Value int    `json:"value,omitempty"`
	Idx   *int   `json:"idx,omitempty"` // Slot index for hand cards.
}

func knownCard(c engine.Card) ObfCard {
	return ObfCard{Known: true, Rank: c.RankLabel(), Suit: c.SuitSymbol(), Value: c.Value()}
}

// ObfHand is one hand as the local player is allowed to see it.
type ObfHand struct {
	Slots   []ObfCard `json:"slots"`
	FaceUp  int       `json:"faceUp"`
	Closed  bool      `json:"closed"`
	Score   int       `json:"score"` // Score of face-up slots so far.
	Holding bool      `json:"holding"`
	Drawn   *ObfCard  `json:"drawn,omitempty"`
	Flipped int       `json:"initialFlips"`
}

// View is a snapshot for the presenter. Face-down cards are never revealed,
// including the local player's own.
type View struct {
	SessionID    uuid.UUID `json:"sessionId"`
	Side         string    `json:"side"`
	Round        int       `json:"round"`
	Phase        string    `json:"phase"`
	IsMyTurn     bool      `json:"isMyTurn"`
	DrawPileSize int       `json:"drawPileSize"`
	DiscardSize  int       `json:"discardSize"`
	DiscardTop   *ObfCard  `json:"discardTop,omitempty"`
	Player       ObfHand   `json:"player"`
	Opponent     ObfHand   `json:"opponent"`
	Result       *Result   `json:"result,omitempty"`
}

func obfHand(h engine.Hand) ObfHand {
	oh := ObfHand{
		Slots:  make([]ObfCard, engine.HandSize),
		FaceUp: h.FaceUpCount(),
		Score:  engine.Score(h),
	}
	for i, slot := range h {
		idx := i
		if slot.FaceUp {
			oh.Slots[i] = knownCard(slot.Card)
		}
		oh.Slots[i].Idx = &idx
	}
	return oh
}

// View builds the presenter snapshot. Assumes the caller owns the session.
func (s *Session) View() View {
	v := View{
		SessionID:    s.ID,
		Side:         s.side.String(),
		Round:        s.round,
		Phase:        s.phase.String(),
		IsMyTurn:     s.isMyTurn,
		DrawPileSize: len(s.drawPile),
		DiscardSize:  len(s.discard),
		Player:       obfHand(s.player),
		Opponent:     obfHand(s.opponent),
		Result:       s.result,
	}
	if top := s.discard.Top(); top != engine.EmptyCard {
		c := knownCard(top)
		v.DiscardTop = &c
	}

	v.Player.Closed = s.closer
	v.Player.Flipped = s.flipped
	if s.drawn != engine.EmptyCard {
		c := knownCard(s.drawn)
		v.Player.Holding = true
		v.Player.Drawn = &c
	}

	v.Opponent.Closed = s.opponentClosed
	v.Opponent.Flipped = s.opponentFlipped
	v.Opponent.Holding = s.opponentHolding
	return v
}
