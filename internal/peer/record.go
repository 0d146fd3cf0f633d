package peer

import (
	"context"
	"time"

	"github.com/jason-s-yu/golf/engine"
	"github.com/jason-s-yu/golf/internal/game"
	"github.com/jason-s-yu/golf/internal/history"
	"github.com/jason-s-yu/golf/internal/protocol"
)

const recordTimeout = 2 * time.Second

// record sends a game-relevant message to the recorder. Heartbeats and chat
// are not recorded. Assumes lock is held by caller.
func (p *Peer) record(m protocol.Message, direction string) {
	if p.recorder == nil {
		return
	}
	actionType := string(m.Type)
	switch m.Type {
	case protocol.MsgHeartbeat, protocol.MsgChat:
		return
	case protocol.MsgGameAction:
		a, err := m.GameAction()
		if err != nil {
			return
		}
		actionType = string(a.Type)
	}
	p.actionIndex++
	rec := history.ActionRecord{
		SessionID:   p.session.ID,
		ActionIndex: p.actionIndex,
		Side:        p.session.Side().String(),
		Direction:   direction,
		ActionType:  actionType,
		Payload:     m.Data,
		Timestamp:   p.now().UnixMilli(),
	}
	go func(rec history.ActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := p.recorder.RecordAction(ctx, rec); err != nil {
			p.log.WithError(err).WithField("actionIndex", rec.ActionIndex).Error("Failed recording action")
		}
	}(rec)
}

// recordRound archives a scored round. Assumes lock is held by caller.
func (p *Peer) recordRound(r game.Result) {
	if p.recorder == nil {
		return
	}
	rec := history.RoundRecord{
		SessionID:     p.session.ID,
		Round:         p.session.Round(),
		Side:          p.session.Side().String(),
		PlayerHand:    handStrings(p.session.PlayerHand()),
		OpponentHand:  handStrings(p.session.OpponentHand()),
		MyScore:       r.MyScore,
		OpponentScore: r.OpponentScore,
		Outcome:       r.Outcome,
		EndedAt:       p.now().UTC(),
	}
	go func(rec history.RoundRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := p.recorder.RecordRound(ctx, rec); err != nil {
			p.log.WithError(err).WithField("round", rec.Round).Error("Failed recording round")
		}
	}(rec)
}

func handStrings(h engine.Hand) []string {
	cards := h.Cards()
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
