package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/golf/engine"
	"github.com/jason-s-yu/golf/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Handle applies one message from the opponent. Malformed fields are logged
// and skipped; Handle never fails the session.
func (s *Session) Handle(m protocol.Message) Effects {
	s.log.WithField("type", m.Type).Debug("Received message")
	switch m.Type {
	case protocol.MsgGameStart:
		return s.handleGameStart(m)
	case protocol.MsgGameAction:
		a, err := m.GameAction()
		if err != nil {
			s.log.WithError(err).Warn("Dropping malformed gameAction")
			return s.dropped("Error processing message: " + err.Error())
		}
		return s.handleAction(a)
	case protocol.MsgChat:
		return s.handleChat(m)
	case protocol.MsgNewGameRequest:
		return s.handleNewGameRequest()
	case protocol.MsgHeartbeat:
		var eff Effects
		if !m.Reply {
			eff.send(protocol.HeartbeatReply(m))
		}
		return eff
	}
	s.log.WithField("type", m.Type).Warn("Unknown message type")
	return Effects{}
}

func (s *Session) dropped(text string) Effects {
	var eff Effects
	eff.emit(EventError, text)
	return eff
}

func (s *Session) handleChat(m protocol.Message) Effects {
	c, err := m.Chat()
	if err != nil {
		s.log.WithError(err).Warn("Dropping malformed chat")
		return Effects{}
	}
	var eff Effects
	if text := strings.TrimSpace(c.Text); text != "" {
		eff.emit(EventChat, text)
	}
	return eff
}

func (s *Session) handleNewGameRequest() Effects {
	if s.side != SideHost {
		var eff Effects
		eff.status("Opponent requested a new game. Waiting for host to start...")
		return eff
	}
	eff, err := s.StartRound()
	if err != nil {
		eff.emit(EventError, "Failed to start a new game: "+err.Error())
	}
	return eff
}

// handleAction dispatches a gameAction. Assumes the caller owns the session.
func (s *Session) handleAction(a protocol.GameAction) Effects {
	var eff Effects
	if s.phase == PhaseWaiting {
		s.log.WithField("action", a.Type).Warn("Action received with no round in progress")
		return eff
	}
	lg := s.log.WithField("action", a.Type)

	switch a.Type {
	case protocol.ActCardFlipped:
		s.onCardFlipped(lg, a, &eff)

	case protocol.ActInitialFlipComplete:
		if s.side == SideHost {
			s.opponentFlipped = engine.InitialFlips
			if s.flipped >= engine.InitialFlips {
				s.determineFirstTurn(&eff)
			}
			break
		}
		if !s.canFlip {
			s.canFlip = true
			if s.flipped < engine.InitialFlips {
				eff.status("Host has finished flipping. Flip two of your cards.")
			}
		}

	case protocol.ActStartTurn:
		if s.side == SideHost {
			lg.Warn("Host received startTurn; ignoring")
			break
		}
		if a.IsMyTurn == nil {
			lg.Warn("startTurn without isMyTurn")
			break
		}
		s.turnDecided = true
		s.isMyTurn = *a.IsMyTurn
		if s.phase == PhaseInitialFlip {
			s.phase = PhaseTurnTaking
		}
		eff.emit(EventState, "")
		if s.isMyTurn {
			eff.status("It's your turn! Draw a card or take from discard.")
		} else {
			eff.status("Opponent's turn. Waiting for their move...")
		}

	case protocol.ActCardDrawn:
		c, ok := s.drawPile.Pop()
		if !ok {
			lg.Warn("Opponent drew a card but our draw pile is empty")
			break
		}
		s.opponentDrawn = c
		s.opponentHolding = true
		eff.emit(EventState, "")

	case protocol.ActDiscardTaken:
		s.onDiscardTaken(lg, a, &eff)

	case protocol.ActCardReplaced:
		if !s.phase.playing() {
			lg.WithField("phase", s.phase).Warn("cardReplaced outside turn taking; ignoring")
			break
		}
		s.onCardReplaced(lg, a, &eff)
		s.opponentTurnDone(&eff, "replaced a card")

	case protocol.ActCardDiscarded:
		if !s.phase.playing() {
			lg.WithField("phase", s.phase).Warn("cardDiscarded outside turn taking; ignoring")
			break
		}
		s.onCardDiscarded(lg, a, &eff)
		s.opponentTurnDone(&eff, "discarded the card")

	case protocol.ActPlayerClosed:
		if !s.phase.playing() {
			lg.WithField("phase", s.phase).Warn("playerClosed outside turn taking; ignoring")
			break
		}
		if !s.opponentClosed {
			s.opponentClosed = true
			eff.status("Opponent has closed! This is your final turn.")
		}
		s.phase = PhaseClosing

	case protocol.ActRoundEnded:
		s.onRoundEnded(lg, a, &eff)

	default:
		lg.Warn("Unknown game action")
	}
	return eff
}

func (s *Session) onCardFlipped(lg *logrus.Entry, a protocol.GameAction, eff *Effects) {
	if a.CardIndex == nil || !engine.ValidIndex(*a.CardIndex) {
		lg.WithField("cardIndex", a.CardIndex).Error("Invalid card index in cardFlipped")
		return
	}
	if a.Card == nil {
		lg.Error("cardFlipped without card")
		return
	}
	c, err := a.Card.ToCard()
	if err != nil {
		lg.WithError(err).Error("Invalid card received in cardFlipped")
		return
	}
	idx := *a.CardIndex
	s.opponent[idx].FaceUp = true
	if existing := s.opponent[idx].Card; existing != c {
		s.desync(eff, fmt.Sprintf("opponent flipped %s at slot %d but we hold %s there", c, idx, existing))
	}
	if a.IsInitialFlip && s.opponentFlipped < engine.InitialFlips {
		s.opponentFlipped++
		if s.opponentFlipped == engine.InitialFlips && s.flipped >= engine.InitialFlips {
			s.determineFirstTurn(eff)
		}
	}
	eff.emit(EventState, "")
}

func (s *Session) onDiscardTaken(lg *logrus.Entry, a protocol.GameAction, eff *Effects) {
	top, ok := s.discard.Pop()
	if !ok {
		lg.Warn("Opponent took from discard but our discard pile is empty")
		return
	}
	s.opponentDrawn = top
	s.opponentHolding = true
	if a.Card != nil {
		if c, err := a.Card.ToCard(); err == nil && c != top {
			s.desync(eff, fmt.Sprintf("opponent took %s from discard but our top was %s", c, top))
			s.opponentDrawn = c
		}
	}
	eff.emit(EventState, "")
}

func (s *Session) onCardReplaced(lg *logrus.Entry, a protocol.GameAction, eff *Effects) {
	old := engine.EmptyCard
	if a.CardIndex != nil && engine.ValidIndex(*a.CardIndex) && a.NewCard != nil {
		if c, err := a.NewCard.ToCard(); err == nil {
			idx := *a.CardIndex
			old = s.opponent[idx].Card
			if s.opponentHolding && s.opponentDrawn != c {
				s.desync(eff, fmt.Sprintf("opponent placed %s but drew %s", c, s.opponentDrawn))
			}
			s.opponent[idx] = engine.Slot{Card: c, FaceUp: true}
		} else {
			lg.WithError(err).Error("Invalid newCard in cardReplaced")
		}
	} else {
		lg.WithField("cardIndex", a.CardIndex).Error("Invalid card index or card in cardReplaced")
	}

	if a.DiscardedCard != nil {
		if c, err := a.DiscardedCard.ToCard(); err == nil {
			if old != engine.EmptyCard && old != c {
				s.desync(eff, fmt.Sprintf("opponent discarded %s but that slot held %s", c, old))
			}
			s.discard.Push(c)
		} else {
			lg.WithError(err).Error("Invalid discardedCard in cardReplaced")
		}
	}
	s.opponentHolding = false
	s.opponentDrawn = engine.EmptyCard
	eff.emit(EventState, "")
}

func (s *Session) onCardDiscarded(lg *logrus.Entry, a protocol.GameAction, eff *Effects) {
	if a.DiscardedCard != nil {
		if c, err := a.DiscardedCard.ToCard(); err == nil {
			if s.opponentHolding && s.opponentDrawn != c {
				s.desync(eff, fmt.Sprintf("opponent discarded %s but drew %s", c, s.opponentDrawn))
			}
			s.discard.Push(c)
		} else {
			lg.WithError(err).Error("Invalid discardedCard in cardDiscarded")
		}
	} else {
		lg.Error("cardDiscarded without discardedCard")
	}
	s.opponentHolding = false
	s.opponentDrawn = engine.EmptyCard
	eff.emit(EventState, "")
}

func (s *Session) onRoundEnded(lg *logrus.Entry, a protocol.GameAction, eff *Effects) {
	s.verifyFinalHand(lg, a, eff)
	if s.phase == PhaseRoundEnded {
		// Acknowledgement of a round this side already ended and scored.
		return
	}
	s.opponent.RevealAll()
	s.player.RevealAll()
	s.phase = PhaseRoundEnded
	s.isMyTurn = false
	s.opponentHolding = false
	s.opponentDrawn = engine.EmptyCard

	if !s.sentFinalHand {
		eff.send(protocol.RoundEnded(s.player.Cards()))
		s.sentFinalHand = true
	}
	s.scoreRound(eff)
}

// verifyFinalHand checks the opponent's revealed hand against the mirror,
// reports every mismatch and adopts the revealed cards.
func (s *Session) verifyFinalHand(lg *logrus.Entry, a protocol.GameAction, eff *Effects) {
	final, err := protocol.ToCards(a.FinalPlayerHand)
	switch {
	case err != nil:
		lg.WithError(err).Error("Invalid finalPlayerHand in roundEnded")
	case len(final) != engine.HandSize:
		lg.WithField("size", len(final)).Error("finalPlayerHand has the wrong size")
	default:
		for i, c := range final {
			if mirror := s.opponent[i].Card; mirror != c {
				s.desync(eff, fmt.Sprintf("final hand slot %d is %s but we hold %s", i, c, mirror))
			}
			s.opponent[i] = engine.Slot{Card: c, FaceUp: true}
		}
	}
}

// desync reports a disagreement between replicas. It never repairs anything.
func (s *Session) desync(eff *Effects, detail string) {
	s.log.WithField("detail", detail).Error("Replica desync detected")
	eff.emit(EventDesync, detail)
}
