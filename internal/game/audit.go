package game

import (
	"fmt"
	"sort"

	"github.com/jason-s-yu/golf/engine"
)

// Audit checks the replica against the round invariants and returns one line
// per violation. It only reports; repairing is left to the player, who can
// Reset. Assumes the caller owns the session.
func (s *Session) Audit() []string {
	if s.phase == PhaseWaiting {
		return nil
	}
	var problems []string

	if s.isMyTurn && s.phase == PhaseRoundEnded {
		problems = append(problems, "cannot be my turn when round has ended")
	}
	if s.drawn != engine.EmptyCard && !s.isMyTurn {
		problems = append(problems, "holding a drawn card when it is not my turn")
	}
	if s.opponentHolding && s.isMyTurn {
		problems = append(problems, "opponent holds a drawn card during my turn")
	}

	cards := make([]engine.Card, 0, engine.DeckSize)
	cards = append(cards, s.player.Cards()...)
	cards = append(cards, s.opponent.Cards()...)
	cards = append(cards, s.drawPile...)
	cards = append(cards, s.discard...)
	if s.drawn != engine.EmptyCard {
		cards = append(cards, s.drawn)
	}
	if s.opponentHolding && s.opponentDrawn != engine.EmptyCard {
		cards = append(cards, s.opponentDrawn)
	}
	if len(cards) != engine.DeckSize {
		problems = append(problems, fmt.Sprintf("tracking %d cards, expected %d", len(cards), engine.DeckSize))
	}

	counts := make(map[engine.Card]int, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			problems = append(problems, fmt.Sprintf("invalid card value %#x", uint8(c)))
			continue
		}
		counts[c]++
	}
	var dups []string
	for c, n := range counts {
		if n > 1 {
			dups = append(dups, fmt.Sprintf("%s (%dx)", c, n))
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		problems = append(problems, fmt.Sprintf("duplicate cards found: %v", dups))
	}
	return problems
}
