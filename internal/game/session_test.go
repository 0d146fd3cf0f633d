// internal/game/session_test.go
package game

import (
	"io"
	"math/rand"
	"testing"

	"github.com/jason-s-yu/golf/engine"
	"github.com/jason-s-yu/golf/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope is one frame in flight from a session to its peer.
type envelope struct {
	from *Session
	msg  protocol.Message
}

// pair wires a host and a client session back to back, delivering frames in
// FIFO order through the wire codec, and records what each side saw.
type pair struct {
	t      *testing.T
	host   *Session
	client *Session
	sent   map[*Session][]protocol.Message
	events map[*Session][]Event
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newPair(t *testing.T, seed int64) *pair {
	p := &pair{
		t:      t,
		sent:   make(map[*Session][]protocol.Message),
		events: make(map[*Session][]Event),
	}
	p.host = NewSession(SideHost, WithRand(rand.New(rand.NewSource(seed))), WithLogger(quietLogger()))
	p.client = NewSession(SideClient, WithRand(rand.New(rand.NewSource(seed+1))), WithLogger(quietLogger()))
	return p
}

func (p *pair) other(s *Session) *Session {
	if s == p.host {
		return p.client
	}
	return p.host
}

// pump records eff for from and delivers every resulting frame until both sides are quiet.
func (p *pair) pump(from *Session, eff Effects) {
	p.t.Helper()
	p.events[from] = append(p.events[from], eff.Events...)
	var queue []envelope
	for _, m := range eff.Messages {
		queue = append(queue, envelope{from: from, msg: m})
	}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		p.sent[e.from] = append(p.sent[e.from], e.msg)

		frame, err := protocol.Encode(e.msg)
		require.NoError(p.t, err)
		msg, err := protocol.Decode(frame)
		require.NoError(p.t, err)

		to := p.other(e.from)
		out := to.Handle(msg)
		p.events[to] = append(p.events[to], out.Events...)
		for _, m := range out.Messages {
			queue = append(queue, envelope{from: to, msg: m})
		}
	}
}

// do runs a local operation that must succeed and delivers its frames.
func (p *pair) do(s *Session, fn func() (Effects, error)) {
	p.t.Helper()
	eff, err := fn()
	require.NoError(p.t, err)
	p.pump(s, eff)
}

func (p *pair) flip(s *Session, idx int) {
	p.t.Helper()
	p.do(s, func() (Effects, error) { return s.FlipInitial(idx) })
}

// mover returns the side whose turn it is.
func (p *pair) mover() *Session {
	p.t.Helper()
	require.NotEqual(p.t, p.host.IsMyTurn(), p.client.IsMyTurn(), "exactly one side should be on turn")
	if p.host.IsMyTurn() {
		return p.host
	}
	return p.client
}

// startToTurns deals and performs both initial flips on slots 0 and 1.
func (p *pair) startToTurns() {
	p.t.Helper()
	p.do(p.host, p.host.StartRound)
	p.flip(p.host, 0)
	p.flip(p.host, 1)
	p.flip(p.client, 0)
	p.flip(p.client, 1)
}

func (p *pair) requireClean() {
	p.t.Helper()
	assert.Empty(p.t, p.host.Audit(), "host audit")
	assert.Empty(p.t, p.client.Audit(), "client audit")
	assert.Empty(p.t, p.eventsOf(p.host, EventDesync), "host desync")
	assert.Empty(p.t, p.eventsOf(p.client, EventDesync), "client desync")
}

func (p *pair) eventsOf(s *Session, t EventType) []Event {
	var out []Event
	for _, ev := range p.events[s] {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (p *pair) countSent(s *Session, act protocol.ActionType) int {
	n := 0
	for _, m := range p.sent[s] {
		if m.Type != protocol.MsgGameAction {
			continue
		}
		if a, err := m.GameAction(); err == nil && a.Type == act {
			n++
		}
	}
	return n
}

func firstFaceDown(h engine.Hand) int {
	for i, s := range h {
		if !s.FaceUp {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Deal
// ---------------------------------------------------------------------------

func TestStartRoundMirrorsDeal(t *testing.T) {
	p := newPair(t, 42)
	p.do(p.host, p.host.StartRound)

	assert.Equal(t, PhaseInitialFlip, p.host.Phase())
	assert.Equal(t, PhaseInitialFlip, p.client.Phase())
	assert.Equal(t, 1, p.host.Round())
	assert.Equal(t, 1, p.client.Round())
	assert.Equal(t, p.host.PlayerHand(), p.client.OpponentHand())
	assert.Equal(t, p.host.OpponentHand(), p.client.PlayerHand())
	assert.Equal(t, engine.DrawPileAfterDeal, p.host.DrawPileSize())
	assert.Equal(t, engine.DrawPileAfterDeal, p.client.DrawPileSize())
	assert.Equal(t, engine.EmptyCard, p.client.DiscardTop())
	assert.Equal(t, 0, p.host.PlayerHand().FaceUpCount())
	p.requireClean()
}

func TestStartRoundRejectsBadDeck(t *testing.T) {
	short := func() []engine.Card { return engine.NewDeck()[:51] }
	s := NewSession(SideHost, WithDeck(short), WithLogger(quietLogger()))

	eff, err := s.StartRound()
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrDeckSize)
	assert.Empty(t, eff.Messages)
	assert.Equal(t, PhaseWaiting, s.Phase())
	assert.Equal(t, 0, s.Round())
}

func TestClientCannotDeal(t *testing.T) {
	s := NewSession(SideClient, WithLogger(quietLogger()))
	_, err := s.StartRound()
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestInvalidDealRequestsNewGame(t *testing.T) {
	s := NewSession(SideClient, WithLogger(quietLogger()))
	deck := engine.NewDeck()
	bad := protocol.NewGameStart(protocol.GameStart{
		PlayerHand:   protocol.FromCards(deck[:5]),
		OpponentHand: protocol.FromCards(deck[5:11]),
		DrawPile:     protocol.FromCards(deck[11:]),
	})

	eff := s.Handle(bad)
	require.Len(t, eff.Messages, 1)
	assert.Equal(t, protocol.MsgNewGameRequest, eff.Messages[0].Type)
	require.NotEmpty(t, eff.Events)
	assert.Equal(t, EventError, eff.Events[0].Type)
	assert.Equal(t, PhaseWaiting, s.Phase())
}

func TestDuplicateDealRejected(t *testing.T) {
	s := NewSession(SideClient, WithLogger(quietLogger()))
	deck := engine.NewDeck()
	hand := protocol.FromCards(deck[:6])
	bad := protocol.NewGameStart(protocol.GameStart{
		PlayerHand:   hand,
		OpponentHand: hand,
		DrawPile:     protocol.FromCards(deck[12:]),
	})
	eff := s.Handle(bad)
	require.Len(t, eff.Messages, 1)
	assert.Equal(t, protocol.MsgNewGameRequest, eff.Messages[0].Type)
	assert.Equal(t, PhaseWaiting, s.Phase())
}

// ---------------------------------------------------------------------------
// Initial flips
// ---------------------------------------------------------------------------

func TestInitialFlipsDecideFirstTurnOnce(t *testing.T) {
	p := newPair(t, 7)
	p.do(p.host, p.host.StartRound)

	_, err := p.client.FlipInitial(0)
	assert.ErrorIs(t, err, ErrNotYourTurn, "client waits for the host to flip first")

	p.flip(p.host, 0)
	p.flip(p.host, 1)
	assert.Equal(t, PhaseInitialFlip, p.host.Phase())

	p.flip(p.client, 3)
	p.flip(p.client, 5)

	assert.Equal(t, PhaseTurnTaking, p.host.Phase())
	assert.Equal(t, PhaseTurnTaking, p.client.Phase())
	assert.NotEqual(t, p.host.IsMyTurn(), p.client.IsMyTurn())
	assert.Equal(t, 1, p.countSent(p.host, protocol.ActStartTurn))
	assert.True(t, p.host.OpponentHand()[3].FaceUp)
	assert.True(t, p.host.OpponentHand()[5].FaceUp)
	assert.False(t, p.host.OpponentHand()[4].FaceUp)
	p.requireClean()
}

func TestFlipInitialErrors(t *testing.T) {
	p := newPair(t, 1)
	_, err := p.host.FlipInitial(0)
	assert.ErrorIs(t, err, ErrNoRound)

	p.do(p.host, p.host.StartRound)
	_, err = p.host.FlipInitial(6)
	assert.ErrorIs(t, err, ErrBadIndex)
	_, err = p.host.FlipInitial(-1)
	assert.ErrorIs(t, err, ErrBadIndex)

	p.flip(p.host, 2)
	_, err = p.host.FlipInitial(2)
	assert.ErrorIs(t, err, ErrSlotFaceUp)

	p.flip(p.host, 4)
	_, err = p.host.FlipInitial(0)
	assert.ErrorIs(t, err, ErrFlipsDone)
}

// ---------------------------------------------------------------------------
// Turns
// ---------------------------------------------------------------------------

// clientFirstPair deals and flips with the first seed whose coin gives the
// client the opening turn.
func clientFirstPair(t *testing.T) *pair {
	t.Helper()
	for seed := int64(1); seed <= 64; seed++ {
		p := newPair(t, seed)
		p.startToTurns()
		if p.client.IsMyTurn() {
			return p
		}
	}
	t.Fatal("no seed in range gave the client the first turn")
	return nil
}

// TestReplaceScenario has the client draw and replace slot 2, then checks the
// host mirrors the move and takes over the turn.
func TestReplaceScenario(t *testing.T) {
	p := clientFirstPair(t)
	require.True(t, p.client.IsMyTurn())
	require.False(t, p.host.IsMyTurn())

	p.do(p.client, p.client.DrawFromPile)
	drawn := p.client.DrawnCard()
	require.NotEqual(t, engine.EmptyCard, drawn)
	assert.Equal(t, engine.DrawPileAfterDeal-1, p.host.DrawPileSize())
	p.requireClean()

	old := p.client.PlayerHand()[2].Card
	p.do(p.client, func() (Effects, error) { return p.client.Replace(2) })

	assert.Equal(t, engine.Slot{Card: drawn, FaceUp: true}, p.host.OpponentHand()[2])
	assert.Equal(t, engine.Slot{Card: drawn, FaceUp: true}, p.client.PlayerHand()[2])
	assert.Equal(t, 1, p.host.DiscardSize())
	assert.Equal(t, 1, p.client.DiscardSize())
	assert.Equal(t, old, p.host.DiscardTop())
	assert.Equal(t, old, p.client.DiscardTop())
	assert.Equal(t, engine.EmptyCard, p.client.DrawnCard())
	assert.False(t, p.client.IsMyTurn())
	assert.True(t, p.host.IsMyTurn())
	p.requireClean()
}

func TestTakeFromDiscardKeepsPilesInSync(t *testing.T) {
	p := newPair(t, 9)
	p.startToTurns()

	first := p.mover()
	_, err := first.TakeFromDiscard()
	assert.ErrorIs(t, err, ErrDiscardEmpty)

	p.do(first, first.DrawFromPile)
	discarded := first.DrawnCard()
	p.do(first, first.DiscardDrawn)

	second := p.mover()
	require.Equal(t, discarded, second.DiscardTop())
	p.do(second, second.TakeFromDiscard)
	assert.Equal(t, discarded, second.DrawnCard())
	assert.Equal(t, 0, first.DiscardSize())
	p.requireClean()

	p.do(second, func() (Effects, error) { return second.Replace(4) })
	assert.Equal(t, engine.Slot{Card: discarded, FaceUp: true}, first.OpponentHand()[4])
	assert.Equal(t, 1, first.DiscardSize())
	assert.Equal(t, 1, second.DiscardSize())
	p.requireClean()
}

func TestTurnGuards(t *testing.T) {
	p := newPair(t, 3)
	p.startToTurns()
	m := p.mover()
	o := p.other(m)

	_, err := o.DrawFromPile()
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = m.Replace(0)
	assert.ErrorIs(t, err, ErrNothingDrawn)
	_, err = m.DiscardDrawn()
	assert.ErrorIs(t, err, ErrNothingDrawn)

	p.do(m, m.DrawFromPile)
	_, err = m.DrawFromPile()
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	_, err = m.TakeFromDiscard()
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	_, err = m.Replace(6)
	assert.ErrorIs(t, err, ErrBadIndex)

	_, err = m.FlipInitial(3)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

// TestClosingGivesOneFinalTurn plays until one side closes and checks the
// other side gets exactly one more turn.
func TestClosingGivesOneFinalTurn(t *testing.T) {
	p := newPair(t, 42)
	p.startToTurns()

	first := p.mover()
	finalTurns := 0
	for i := 0; i < 30 && p.host.Phase() != PhaseRoundEnded; i++ {
		m := p.mover()
		if m.OpponentClosed() && !m.Closer() {
			finalTurns++
			p.do(m, m.DrawFromPile)
			p.do(m, m.DiscardDrawn)
			continue
		}
		p.do(m, m.DrawFromPile)
		idx := firstFaceDown(m.PlayerHand())
		require.GreaterOrEqual(t, idx, 0)
		p.do(m, func() (Effects, error) { return m.Replace(idx) })
	}

	assert.Equal(t, 1, finalTurns)
	assert.True(t, first.Closer())
	assert.True(t, p.other(first).OpponentClosed())
	assert.Equal(t, 1, p.countSent(first, protocol.ActPlayerClosed))

	for _, s := range []*Session{p.host, p.client} {
		assert.Equal(t, PhaseRoundEnded, s.Phase())
		assert.False(t, s.IsMyTurn())
		assert.True(t, s.PlayerHand().AllFaceUp())
		assert.True(t, s.OpponentHand().AllFaceUp())
		require.NotNil(t, s.Result())
		assert.Len(t, p.eventsOf(s, EventRoundEnd), 1, s.Side().String())
	}
	assert.Equal(t, p.host.Result().MyScore, p.client.Result().OpponentScore)
	assert.Equal(t, p.host.Result().OpponentScore, p.client.Result().MyScore)
	assert.Equal(t, engine.Score(p.host.PlayerHand()), p.host.Result().MyScore)
	p.requireClean()
}

// TestEmptyDrawPileEndsRound draws and discards until the pile runs out.
func TestEmptyDrawPileEndsRound(t *testing.T) {
	p := newPair(t, 11)
	p.startToTurns()

	for i := 0; i < engine.DrawPileAfterDeal; i++ {
		m := p.mover()
		p.do(m, m.DrawFromPile)
		p.do(m, m.DiscardDrawn)
	}
	require.Equal(t, 0, p.host.DrawPileSize())
	require.Equal(t, 0, p.client.DrawPileSize())
	assert.Equal(t, PhaseTurnTaking, p.host.Phase())

	m := p.mover()
	p.do(m, m.DrawFromPile)

	for _, s := range []*Session{p.host, p.client} {
		assert.Equal(t, PhaseRoundEnded, s.Phase())
		require.NotNil(t, s.Result())
		assert.Len(t, p.eventsOf(s, EventRoundEnd), 1, s.Side().String())
	}
	assert.Equal(t, p.host.Result().MyScore, p.client.Result().OpponentScore)
	assert.Equal(t, 1, p.countSent(p.host, protocol.ActRoundEnded))
	assert.Equal(t, 1, p.countSent(p.client, protocol.ActRoundEnded))
	p.requireClean()

	// A late final hand that disagrees is reported without rescoring.
	result := *m.Result()
	eff := m.Handle(protocol.RoundEnded(m.PlayerHand().Cards()))
	assert.Empty(t, eff.Messages)
	var desyncs, ends int
	for _, ev := range eff.Events {
		switch ev.Type {
		case EventDesync:
			desyncs++
		case EventRoundEnd:
			ends++
		}
	}
	assert.Positive(t, desyncs)
	assert.Zero(t, ends)
	assert.Equal(t, result, *m.Result())
}

func TestPlayerClosedIgnoredOutsideTurns(t *testing.T) {
	p := newPair(t, 13)
	p.do(p.host, p.host.StartRound)

	eff := p.client.Handle(protocol.PlayerClosed())
	assert.Empty(t, eff.Events)
	assert.Equal(t, PhaseInitialFlip, p.client.Phase())
	assert.False(t, p.client.OpponentClosed())

	p.flip(p.host, 0)
	p.flip(p.host, 1)
	p.flip(p.client, 0)
	p.flip(p.client, 1)
	p.client.Handle(protocol.PlayerClosed())
	assert.Equal(t, PhaseClosing, p.client.Phase())
	assert.True(t, p.client.OpponentClosed())
}

// ---------------------------------------------------------------------------
// Remote input handling
// ---------------------------------------------------------------------------

func TestMalformedActionsAreSkipped(t *testing.T) {
	p := newPair(t, 5)
	p.startToTurns()
	before := p.client.OpponentHand()

	eff := p.client.Handle(protocol.Message{Type: protocol.MsgGameAction})
	require.Len(t, eff.Events, 1)
	assert.Equal(t, EventError, eff.Events[0].Type)

	nine := 9
	eff = p.client.Handle(protocol.NewGameAction(protocol.GameAction{
		Type:      protocol.ActCardFlipped,
		CardIndex: &nine,
		Card:      &protocol.CardPayload{Suit: "♥", Value: "A"},
	}))
	assert.Empty(t, eff.Messages)

	four := 4
	p.client.Handle(protocol.NewGameAction(protocol.GameAction{
		Type:      protocol.ActCardFlipped,
		CardIndex: &four,
		Card:      &protocol.CardPayload{Suit: "X", Value: "A"},
	}))
	p.client.Handle(protocol.NewGameAction(protocol.GameAction{Type: "teleport"}))

	assert.Equal(t, before, p.client.OpponentHand())
	assert.Empty(t, p.client.Audit())
}

func TestFlipMismatchReportsDesync(t *testing.T) {
	p := newPair(t, 5)
	p.startToTurns()

	mirror := p.client.OpponentHand()[3].Card
	wrong := p.client.PlayerHand()[0].Card
	eff := p.client.Handle(protocol.CardFlipped(3, wrong, false))

	var desyncs int
	for _, ev := range eff.Events {
		if ev.Type == EventDesync {
			desyncs++
		}
	}
	assert.Equal(t, 1, desyncs)
	assert.Equal(t, mirror, p.client.OpponentHand()[3].Card, "desync is reported, not repaired")
	assert.True(t, p.client.OpponentHand()[3].FaceUp)
}

func TestAuditFindsDuplicates(t *testing.T) {
	p := newPair(t, 5)
	p.startToTurns()
	require.Empty(t, p.client.Audit())

	p.client.discard.Push(p.client.player[0].Card)
	problems := p.client.Audit()
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], "tracking 53 cards")
	assert.Contains(t, problems[1], "duplicate cards found")
}

func TestHeartbeatRepliesOnce(t *testing.T) {
	s := NewSession(SideClient, WithLogger(quietLogger()))
	probe := protocol.Message{Type: protocol.MsgHeartbeat, Timestamp: 1234}

	eff := s.Handle(probe)
	require.Len(t, eff.Messages, 1)
	assert.True(t, eff.Messages[0].Reply)
	assert.Equal(t, int64(1234), eff.Messages[0].Timestamp)

	eff = s.Handle(eff.Messages[0])
	assert.Empty(t, eff.Messages)
}

func TestChat(t *testing.T) {
	p := newPair(t, 5)
	p.do(p.client, func() (Effects, error) { return p.client.Chat("  good luck ") })

	chats := p.eventsOf(p.host, EventChat)
	require.Len(t, chats, 1)
	assert.Equal(t, "good luck", chats[0].Text)

	_, err := p.client.Chat("   ")
	assert.ErrorIs(t, err, ErrEmptyChat)
}

func TestNewGameRequestRedeals(t *testing.T) {
	p := newPair(t, 21)
	p.startToTurns()
	m := p.mover()
	p.do(m, m.DrawFromPile)

	p.do(p.client, p.client.RequestNewGame)

	assert.Equal(t, 2, p.host.Round())
	assert.Equal(t, 2, p.client.Round())
	assert.Equal(t, PhaseInitialFlip, p.client.Phase())
	assert.Equal(t, engine.EmptyCard, m.DrawnCard())
	assert.Equal(t, engine.DrawPileAfterDeal, p.client.DrawPileSize())
	assert.Equal(t, p.host.PlayerHand(), p.client.OpponentHand())
	p.requireClean()
}

func TestResetRequestsFreshDeal(t *testing.T) {
	p := newPair(t, 21)
	p.startToTurns()

	eff, err := p.client.Reset()
	require.NoError(t, err)
	assert.Equal(t, PhaseWaiting, p.client.Phase())
	p.pump(p.client, eff)

	assert.Equal(t, PhaseInitialFlip, p.client.Phase())
	assert.Equal(t, 2, p.client.Round())
	assert.Equal(t, 0, p.client.PlayerHand().FaceUpCount())
	p.requireClean()
}

// ---------------------------------------------------------------------------
// Presentation
// ---------------------------------------------------------------------------

func TestViewHidesFaceDownCards(t *testing.T) {
	p := newPair(t, 13)
	p.startToTurns()

	v := p.client.View()
	assert.Equal(t, "client", v.Side)
	assert.Equal(t, "turn_taking", v.Phase)
	assert.Equal(t, engine.DrawPileAfterDeal, v.DrawPileSize)
	assert.Nil(t, v.DiscardTop)

	assert.True(t, v.Player.Slots[0].Known)
	assert.False(t, v.Player.Slots[2].Known)
	assert.Empty(t, v.Player.Slots[2].Rank)
	assert.True(t, v.Opponent.Slots[1].Known)
	assert.False(t, v.Opponent.Slots[5].Known)
	assert.Equal(t, 2, v.Opponent.FaceUp)
	assert.Equal(t, engine.Score(p.client.PlayerHand()), v.Player.Score)
}

func TestLegalActions(t *testing.T) {
	p := newPair(t, 13)
	p.do(p.host, p.host.StartRound)

	assert.Len(t, p.host.LegalActions(), 6)
	assert.Empty(t, p.client.LegalActions())

	p.flip(p.host, 0)
	p.flip(p.host, 1)
	p.flip(p.client, 0)
	p.flip(p.client, 1)

	m := p.mover()
	assert.Equal(t, []Action{{Kind: ActDraw, Index: -1}}, m.LegalActions())
	assert.Empty(t, p.other(m).LegalActions())

	p.do(m, m.DrawFromPile)
	acts := m.LegalActions()
	assert.Len(t, acts, engine.HandSize+1)
	assert.Equal(t, Action{Kind: ActDiscard, Index: -1}, acts[len(acts)-1])
	assert.Equal(t, "replace 0", acts[0].String())
}
