package game

import (
	"fmt"

	"github.com/jason-s-yu/golf/engine"
)

// DecisionContext describes what kind of decision the local player faces.
type DecisionContext uint8

const (
	CtxIdle        DecisionContext = iota // nothing to do but wait
	CtxInitialFlip                        // pick a face-down card to flip
	CtxStartTurn                          // draw from pile or take discard
	CtxPostDraw                           // replace a slot or discard the drawn card
	CtxTerminal                           // round over; only a new game is possible
)

// ActionKind is one local operation a presenter can offer.
type ActionKind string

const (
	ActFlip    ActionKind = "flip"
	ActDraw    ActionKind = "draw"
	ActTake    ActionKind = "take"
	ActReplace ActionKind = "replace"
	ActDiscard ActionKind = "discard"
	ActNewGame ActionKind = "new"
)

// Action is a legal local operation. Index is the hand slot for flip and
// replace, and -1 otherwise.
type Action struct {
	Kind  ActionKind
	Index int
}

func (a Action) String() string {
	if a.Index >= 0 {
		return fmt.Sprintf("%s %d", a.Kind, a.Index)
	}
	return string(a.Kind)
}

// DecisionCtx returns the current decision context. Assumes the caller owns the session.
func (s *Session) DecisionCtx() DecisionContext {
	switch {
	case s.phase == PhaseRoundEnded:
		return CtxTerminal
	case s.phase == PhaseInitialFlip:
		if s.canFlip && s.flipped < engine.InitialFlips {
			return CtxInitialFlip
		}
		return CtxIdle
	case s.phase.playing() && s.isMyTurn:
		if s.drawn != engine.EmptyCard {
			return CtxPostDraw
		}
		return CtxStartTurn
	}
	return CtxIdle
}

// LegalActions lists what the local player may do right now.
func (s *Session) LegalActions() []Action {
	var actions []Action

	switch s.DecisionCtx() {
	case CtxInitialFlip:
		for i, slot := range s.player {
			if !slot.FaceUp {
				actions = append(actions, Action{Kind: ActFlip, Index: i})
			}
		}

	case CtxStartTurn:
		// Drawing from an empty pile is still legal: it ends the round.
		actions = append(actions, Action{Kind: ActDraw, Index: -1})
		if len(s.discard) > 0 {
			actions = append(actions, Action{Kind: ActTake, Index: -1})
		}

	case CtxPostDraw:
		for i := 0; i < engine.HandSize; i++ {
			actions = append(actions, Action{Kind: ActReplace, Index: i})
		}
		actions = append(actions, Action{Kind: ActDiscard, Index: -1})

	case CtxTerminal:
		actions = append(actions, Action{Kind: ActNewGame, Index: -1})
	}
	return actions
}
