package game

import (
	"strings"

	"github.com/jason-s-yu/golf/engine"
	"github.com/jason-s-yu/golf/internal/protocol"
	"github.com/sirupsen/logrus"
)

// FlipInitial turns one of the local player's cards face up during the
// initial flip phase.
func (s *Session) FlipInitial(idx int) (Effects, error) {
	var eff Effects
	switch {
	case s.phase == PhaseWaiting:
		return eff, ErrNoRound
	case s.phase != PhaseInitialFlip:
		return eff, ErrWrongPhase
	case s.flipped >= engine.InitialFlips:
		return eff, ErrFlipsDone
	case !s.canFlip:
		return eff, ErrNotYourTurn
	case !engine.ValidIndex(idx):
		return eff, ErrBadIndex
	case s.player[idx].FaceUp:
		return eff, ErrSlotFaceUp
	}

	s.player[idx].FaceUp = true
	s.flipped++
	eff.send(protocol.CardFlipped(idx, s.player[idx].Card, true))
	eff.emit(EventState, "")

	if s.flipped < engine.InitialFlips {
		eff.status("Flip 1 more card.")
		return eff, nil
	}
	eff.status("You have flipped two cards. Waiting for opponent to flip their cards.")
	eff.send(protocol.InitialFlipComplete())
	if s.side == SideHost && s.opponentFlipped >= engine.InitialFlips {
		s.determineFirstTurn(&eff)
	}
	return eff, nil
}

// determineFirstTurn flips the coin for who moves first. Host only, and only
// once per round even though both the last cardFlipped and the
// initialFlipComplete that follows it can trigger it.
func (s *Session) determineFirstTurn(eff *Effects) {
	if s.side != SideHost || s.turnDecided {
		return
	}
	s.turnDecided = true
	hostStarts := s.rng.Intn(2) == 0
	s.isMyTurn = hostStarts
	s.phase = PhaseTurnTaking
	eff.send(protocol.StartTurn(!hostStarts))
	eff.emit(EventState, "")
	if hostStarts {
		eff.status("You go first! Draw a card or take from discard.")
	} else {
		eff.status("Opponent goes first. Waiting for their move...")
	}
	s.log.WithField("hostStarts", hostStarts).Info("First turn decided")
}

// checkTurn guards the draw/replace/discard family.
func (s *Session) checkTurn() error {
	switch {
	case s.phase == PhaseWaiting:
		return ErrNoRound
	case !s.phase.playing():
		return ErrWrongPhase
	case !s.isMyTurn:
		return ErrNotYourTurn
	}
	return nil
}

// DrawFromPile takes the top of the draw pile. An empty pile ends the round.
func (s *Session) DrawFromPile() (Effects, error) {
	var eff Effects
	if err := s.checkTurn(); err != nil {
		return eff, err
	}
	if s.drawn != engine.EmptyCard {
		return eff, ErrAlreadyDrawn
	}
	c, ok := s.drawPile.Pop()
	if !ok {
		eff.status("Draw pile is empty! Round ends.")
		s.endRound(&eff)
		return eff, nil
	}
	s.drawn = c
	eff.send(protocol.CardDrawn())
	eff.emit(EventState, "")
	eff.status("You drew a card. Now choose a card to replace in your hand, or discard the drawn card.")
	return eff, nil
}

// TakeFromDiscard takes the top of the discard pile.
func (s *Session) TakeFromDiscard() (Effects, error) {
	var eff Effects
	if err := s.checkTurn(); err != nil {
		return eff, err
	}
	if s.drawn != engine.EmptyCard {
		return eff, ErrAlreadyDrawn
	}
	c, ok := s.discard.Pop()
	if !ok {
		return eff, ErrDiscardEmpty
	}
	s.drawn = c
	eff.send(protocol.DiscardTaken(c))
	eff.emit(EventState, "")
	eff.status("You took a card from the discard pile. Now choose a card to replace in your hand, or discard the drawn card.")
	return eff, nil
}

// Replace puts the drawn card face up into slot idx and discards what was there.
func (s *Session) Replace(idx int) (Effects, error) {
	var eff Effects
	if err := s.checkTurn(); err != nil {
		return eff, err
	}
	if s.drawn == engine.EmptyCard {
		return eff, ErrNothingDrawn
	}
	if !engine.ValidIndex(idx) {
		return eff, ErrBadIndex
	}
	old := s.player[idx].Card
	s.player[idx] = engine.Slot{Card: s.drawn, FaceUp: true}
	s.discard.Push(old)
	eff.send(protocol.CardReplaced(idx, s.drawn, old))
	s.drawn = engine.EmptyCard
	s.endMyTurn(&eff)
	return eff, nil
}

// DiscardDrawn puts the drawn card on the discard pile.
func (s *Session) DiscardDrawn() (Effects, error) {
	var eff Effects
	if err := s.checkTurn(); err != nil {
		return eff, err
	}
	if s.drawn == engine.EmptyCard {
		return eff, ErrNothingDrawn
	}
	s.discard.Push(s.drawn)
	eff.send(protocol.CardDiscarded(s.drawn))
	s.drawn = engine.EmptyCard
	s.endMyTurn(&eff)
	return eff, nil
}

// Chat sends free text to the opponent.
func (s *Session) Chat(text string) (Effects, error) {
	var eff Effects
	text = strings.TrimSpace(text)
	if text == "" {
		return eff, ErrEmptyChat
	}
	eff.send(protocol.NewChat(text))
	return eff, nil
}

func (s *Session) endMyTurn(eff *Effects) {
	s.isMyTurn = false
	eff.emit(EventState, "")
	s.checkForClosing(eff)
	switch {
	case s.phase == PhaseRoundEnded:
	case s.opponentClosed:
		s.endRound(eff)
	case s.closer:
		eff.status("You closed! Waiting for opponent's final turn...")
	default:
		eff.status("Turn ended. Waiting for opponent...")
	}
}

// opponentTurnDone runs after the opponent replaced or discarded.
func (s *Session) opponentTurnDone(eff *Effects, what string) {
	s.isMyTurn = true
	s.checkForClosing(eff)
	switch {
	case s.phase == PhaseRoundEnded:
	case s.closer:
		s.endRound(eff)
	case s.opponentClosed:
		eff.status("Opponent closed and finished their turn. This is your final turn!")
	default:
		eff.status("Opponent " + what + ". Your turn!")
	}
}

// checkForClosing raises the one-way closer flags the first time a hand is
// fully face up and ends the round once both sides have closed.
func (s *Session) checkForClosing(eff *Effects) {
	if s.phase == PhaseRoundEnded {
		return
	}
	if s.player.AllFaceUp() && !s.closer {
		s.closer = true
		s.phase = PhaseClosing
		eff.send(protocol.PlayerClosed())
		eff.status("You have closed! Opponent gets one more turn.")
		s.log.Info("Player closed")
	}
	if s.opponent.AllFaceUp() && !s.opponentClosed {
		s.opponentClosed = true
		s.phase = PhaseClosing
		eff.status("Opponent has closed! You get one more turn.")
		s.log.Info("Opponent closed")
	}
	if s.closer && s.opponentClosed {
		s.endRound(eff)
	}
}

// endRound reveals the local hand, announces it and scores the round. It is
// idempotent.
func (s *Session) endRound(eff *Effects) {
	if s.phase == PhaseRoundEnded {
		return
	}
	s.phase = PhaseRoundEnded
	s.isMyTurn = false
	s.player.RevealAll()
	s.opponent.RevealAll()
	eff.send(protocol.RoundEnded(s.player.Cards()))
	s.sentFinalHand = true
	s.scoreRound(eff)
}

func (s *Session) scoreRound(eff *Effects) {
	r := &Result{
		MyScore:       engine.Score(s.player),
		OpponentScore: engine.Score(s.opponent),
	}
	switch {
	case r.MyScore < r.OpponentScore:
		r.Outcome = "You win this round!"
	case r.MyScore > r.OpponentScore:
		r.Outcome = "Opponent wins this round!"
	default:
		r.Outcome = "It's a tie!"
	}
	s.result = r
	s.log.WithFields(logrus.Fields{
		"round":         s.round,
		"myScore":       r.MyScore,
		"opponentScore": r.OpponentScore,
	}).Info("Round ended")
	eff.emit(EventState, "")
	eff.Events = append(eff.Events, Event{Type: EventRoundEnd, Text: "Round Over! " + r.Outcome, Result: r})
}
