package game

import (
	"fmt"

	"github.com/jason-s-yu/golf/engine"
	"github.com/jason-s-yu/golf/internal/protocol"
)

// StartRound deals a fresh round. Host only. On failure the session is left
// idle and nothing is sent.
func (s *Session) StartRound() (Effects, error) {
	var eff Effects
	if s.side != SideHost {
		return eff, ErrNotHost
	}
	s.clearRound()

	deck := s.deck()
	if err := engine.ValidateDeck(deck); err != nil {
		return eff, s.abortDeal(err)
	}
	engine.Shuffle(deck, s.rng)
	if err := engine.ValidateDeck(deck); err != nil {
		return eff, s.abortDeal(fmt.Errorf("after shuffle: %w", err))
	}
	host, client, rest, err := engine.Deal(deck)
	if err != nil {
		return eff, s.abortDeal(err)
	}
	if len(rest) != engine.DrawPileAfterDeal {
		return eff, s.abortDeal(fmt.Errorf("%w: %d cards left after deal", engine.ErrDeckSize, len(rest)))
	}

	s.round++
	s.player = host
	s.opponent = client
	s.drawPile = append(engine.Pile(nil), rest...)
	s.phase = PhaseInitialFlip
	s.canFlip = true
	s.hostStartsFlip = true
	s.log.WithField("round", s.round).Info("Dealt new round")

	eff.send(protocol.NewGameStart(protocol.GameStart{
		PlayerHand:         protocol.FromCards(client.Cards()),
		OpponentHand:       protocol.FromCards(host.Cards()),
		DrawPile:           protocol.FromCards(rest),
		HostStartsFlipping: true,
	}))
	eff.emit(EventState, "")
	eff.status("Flip two of your cards to start the game.")
	return eff, nil
}

func (s *Session) abortDeal(err error) error {
	s.clearRound()
	s.log.WithError(err).Error("Deal failed; round not started")
	return fmt.Errorf("deal: %w", err)
}

// RequestNewGame asks for a fresh deal: the host deals at once, the client
// asks the host.
func (s *Session) RequestNewGame() (Effects, error) {
	if s.side == SideHost {
		return s.StartRound()
	}
	var eff Effects
	eff.send(protocol.NewGameRequest())
	eff.status("Requested a new game. Waiting for opponent to accept...")
	return eff, nil
}

// Reset discards the current round and requests a new one. It is the
// manual recovery path after a reported desync.
func (s *Session) Reset() (Effects, error) {
	s.log.WithField("phase", s.phase).Warn("Round reset by player")
	s.clearRound()
	eff := Effects{}
	eff.emit(EventState, "")
	more, err := s.RequestNewGame()
	eff.Merge(more)
	return eff, err
}

// handleGameStart adopts the host's deal. Assumes the caller owns the session.
func (s *Session) handleGameStart(m protocol.Message) Effects {
	var eff Effects
	if s.side == SideHost {
		s.log.Warn("Host received gameStart; ignoring")
		return eff
	}
	deal, err := s.parseDeal(m)
	if err != nil {
		s.log.WithError(err).Error("Rejected deal from host")
		eff.emit(EventError, "Received an invalid deal; requesting a new game.")
		eff.send(protocol.NewGameRequest())
		return eff
	}

	s.clearRound()
	s.round++
	s.player = deal.player
	s.opponent = deal.opponent
	s.drawPile = deal.drawPile
	s.discard = deal.discard
	s.phase = PhaseInitialFlip
	s.hostStartsFlip = deal.hostStartsFlip
	s.canFlip = !deal.hostStartsFlip
	s.log.WithField("round", s.round).Info("Received deal from host")

	eff.emit(EventState, "")
	if s.canFlip {
		eff.status("Flip two of your cards to start the game.")
	} else {
		eff.status("Waiting for opponent to flip their cards.")
	}
	return eff
}

type parsedDeal struct {
	player, opponent  engine.Hand
	drawPile, discard engine.Pile
	hostStartsFlip    bool
}

func (s *Session) parseDeal(m protocol.Message) (parsedDeal, error) {
	var d parsedDeal
	gs, err := m.GameStart()
	if err != nil {
		return d, err
	}
	if len(gs.PlayerHand) != engine.HandSize || len(gs.OpponentHand) != engine.HandSize {
		return d, fmt.Errorf("invalid hand sizes: player=%d, opponent=%d", len(gs.PlayerHand), len(gs.OpponentHand))
	}
	mine, err := protocol.ToCards(gs.PlayerHand)
	if err != nil {
		return d, fmt.Errorf("player hand: %w", err)
	}
	theirs, err := protocol.ToCards(gs.OpponentHand)
	if err != nil {
		return d, fmt.Errorf("opponent hand: %w", err)
	}
	if err := engine.CheckUnique(append(append([]engine.Card(nil), mine...), theirs...)); err != nil {
		return d, fmt.Errorf("hands: %w", err)
	}
	pile, err := protocol.ToCards(gs.DrawPile)
	if err != nil {
		return d, fmt.Errorf("draw pile: %w", err)
	}
	var discard engine.Pile
	if gs.DiscardPile != nil {
		top, err := gs.DiscardPile.ToCard()
		if err != nil {
			return d, fmt.Errorf("discard pile: %w", err)
		}
		discard = engine.Pile{top}
	}
	all := append(append(append(append([]engine.Card(nil), mine...), theirs...), pile...), discard...)
	if err := engine.ValidateDeck(all); err != nil {
		return d, fmt.Errorf("deal does not cover the deck: %w", err)
	}

	d.player, _ = engine.NewHand(mine)
	d.opponent, _ = engine.NewHand(theirs)
	d.drawPile = engine.Pile(pile)
	d.discard = discard
	d.hostStartsFlip = gs.HostStartsFlipping
	return d, nil
}
