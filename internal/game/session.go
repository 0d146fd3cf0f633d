// internal/game/session.go
package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/golf/engine"
	"github.com/jason-s-yu/golf/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Side identifies which peer a session runs on.
type Side uint8

const (
	SideHost Side = iota
	SideClient
)

func (s Side) String() string {
	if s == SideHost {
		return "host"
	}
	return "client"
}

// Phase is the round's position in the turn state machine.
type Phase uint8

const (
	PhaseWaiting     Phase = iota // no round dealt
	PhaseInitialFlip              // each side flips two of its own cards
	PhaseTurnTaking               // draw, then replace or discard
	PhaseClosing                  // someone has every card face up
	PhaseRoundEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseInitialFlip:
		return "initial_flip"
	case PhaseTurnTaking:
		return "turn_taking"
	case PhaseClosing:
		return "closing"
	case PhaseRoundEnded:
		return "round_ended"
	}
	return "unknown"
}

// playing reports whether draws and replacements are allowed in p.
func (p Phase) playing() bool { return p == PhaseTurnTaking || p == PhaseClosing }

var (
	ErrNotHost      = errors.New("only the host can deal")
	ErrNoRound      = errors.New("no round in progress")
	ErrWrongPhase   = errors.New("action not allowed in this phase")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrAlreadyDrawn = errors.New("already holding a drawn card")
	ErrNothingDrawn = errors.New("draw a card first")
	ErrBadIndex     = errors.New("card index out of range")
	ErrSlotFaceUp   = errors.New("card is already face up")
	ErrDiscardEmpty = errors.New("discard pile is empty")
	ErrFlipsDone    = errors.New("initial flips already done")
	ErrEmptyChat    = errors.New("empty chat message")
)

// EventType represents the kind of notification a session hands to its presenter.
type EventType string

const (
	EventState    EventType = "state"     // replicated state changed; re-render
	EventStatus   EventType = "status"    // one-line status for the player
	EventChat     EventType = "chat"      // text from the opponent
	EventRoundEnd EventType = "round_end" // final scores are available
	EventDesync   EventType = "desync"    // local and remote state disagree
	EventError    EventType = "error"     // local action failed or remote input was dropped
)

// Event is a presentation notification. The session never renders anything itself.
type Event struct {
	Type   EventType `json:"type"`
	Text   string    `json:"text,omitempty"`
	Result *Result   `json:"result,omitempty"`
}

// Result is the scored outcome of a finished round, from the local player's view.
type Result struct {
	MyScore       int    `json:"myScore"`
	OpponentScore int    `json:"opponentScore"`
	Outcome       string `json:"outcome"`
}

// Effects is everything a transition produced: frames to send, in order, and
// events for the presenter.
type Effects struct {
	Messages []protocol.Message
	Events   []Event
}

func (e *Effects) send(m protocol.Message) { e.Messages = append(e.Messages, m) }

func (e *Effects) emit(t EventType, text string) {
	e.Events = append(e.Events, Event{Type: t, Text: text})
}

func (e *Effects) status(text string) { e.emit(EventStatus, text) }

// Merge appends o after e.
func (e *Effects) Merge(o Effects) {
	e.Messages = append(e.Messages, o.Messages...)
	e.Events = append(e.Events, o.Events...)
}

// Session is one peer's replica of a two-player golf game. Hands and piles
// are kept relative to the local player.
//
// A Session is not safe for concurrent use; the owner serialises every call.
type Session struct {
	ID   uuid.UUID
	side Side
	rng  *rand.Rand
	log  *logrus.Entry
	deck func() []engine.Card

	round int
	phase Phase

	player   engine.Hand
	opponent engine.Hand
	drawPile engine.Pile
	discard  engine.Pile

	drawn           engine.Card // card the local player holds mid-turn
	opponentDrawn   engine.Card // mirror of the card the opponent holds mid-turn
	opponentHolding bool

	isMyTurn       bool
	closer         bool
	opponentClosed bool

	flipped         int
	opponentFlipped int
	canFlip         bool
	turnDecided     bool
	hostStartsFlip  bool
	sentFinalHand   bool

	result *Result
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the source used for shuffling and the first-turn coin.
func WithRand(r *rand.Rand) Option { return func(s *Session) { s.rng = r } }

// WithLogger sets the base logger; session and side fields are added to it.
func WithLogger(l *logrus.Entry) Option { return func(s *Session) { s.log = l } }

// WithDeck replaces the deck builder, for fixed deals.
func WithDeck(fn func() []engine.Card) Option { return func(s *Session) { s.deck = fn } }

// WithID fixes the session identifier.
func WithID(id uuid.UUID) Option { return func(s *Session) { s.ID = id } }

// NewSession creates an idle session for side.
func NewSession(side Side, opts ...Option) *Session {
	s := &Session{
		ID:   uuid.New(),
		side: side,
		deck: engine.NewDeck,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	s.log = s.log.WithFields(logrus.Fields{"session": s.ID, "side": side})
	s.clearRound()
	return s
}

// clearRound drops every per-round field. Assumes the caller owns the session.
func (s *Session) clearRound() {
	s.phase = PhaseWaiting
	s.player = engine.Hand{}
	s.opponent = engine.Hand{}
	s.drawPile = nil
	s.discard = nil
	s.drawn = engine.EmptyCard
	s.opponentDrawn = engine.EmptyCard
	s.opponentHolding = false
	s.isMyTurn = false
	s.closer = false
	s.opponentClosed = false
	s.flipped = 0
	s.opponentFlipped = 0
	s.canFlip = false
	s.turnDecided = false
	s.hostStartsFlip = false
	s.sentFinalHand = false
	s.result = nil
}

func (s *Session) Side() Side           { return s.side }
func (s *Session) Phase() Phase         { return s.phase }
func (s *Session) Round() int           { return s.round }
func (s *Session) IsMyTurn() bool       { return s.isMyTurn }
func (s *Session) Closer() bool         { return s.closer }
func (s *Session) OpponentClosed() bool { return s.opponentClosed }

func (s *Session) PlayerHand() engine.Hand   { return s.player }
func (s *Session) OpponentHand() engine.Hand { return s.opponent }
func (s *Session) DrawPileSize() int         { return len(s.drawPile) }
func (s *Session) DiscardSize() int          { return len(s.discard) }
func (s *Session) DiscardTop() engine.Card   { return s.discard.Top() }

// DrawnCard returns the card held mid-turn, or EmptyCard.
func (s *Session) DrawnCard() engine.Card { return s.drawn }

// Result returns the scored round, or nil until the round ends.
func (s *Session) Result() *Result { return s.result }
