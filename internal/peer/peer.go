// Package peer runs a game session over a transport. It is the only place
// that touches both: every inbound frame and every local action goes through
// one mutex, so the session sees a single serial stream of operations.
package peer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/golf/internal/game"
	"github.com/jason-s-yu/golf/internal/history"
	"github.com/jason-s-yu/golf/internal/protocol"
	"github.com/jason-s-yu/golf/internal/transport"
	"github.com/sirupsen/logrus"
)

// DefaultHeartbeat is how often a liveness probe is sent.
const DefaultHeartbeat = 30 * time.Second

// Observer receives presentation events. It may be called from the Run
// goroutine and from whichever goroutine invoked an action method, but never
// with the peer lock held, so it may call back into the Peer.
type Observer func(game.Event)

// Peer binds a Session to a Transport.
type Peer struct {
	mu      sync.Mutex
	session *game.Session
	tr      transport.Transport
	log     *logrus.Entry

	observe   Observer
	recorder  history.Recorder
	heartbeat time.Duration
	now       func() time.Time

	lastSeen    time.Time
	actionIndex int
	lastAudit   string
}

// Option configures a Peer.
type Option func(*Peer)

// WithObserver sets the event callback.
func WithObserver(o Observer) Option { return func(p *Peer) { p.observe = o } }

// WithRecorder sets where applied actions and finished rounds are recorded.
func WithRecorder(r history.Recorder) Option { return func(p *Peer) { p.recorder = r } }

// WithHeartbeat sets the probe interval; zero or less disables probes.
func WithHeartbeat(d time.Duration) Option { return func(p *Peer) { p.heartbeat = d } }

// WithLogger sets the base logger.
func WithLogger(l *logrus.Entry) Option { return func(p *Peer) { p.log = l } }

// New creates a Peer. Nothing happens until Run is called.
func New(s *game.Session, tr transport.Transport, opts ...Option) *Peer {
	p := &Peer{
		session:   s,
		tr:        tr,
		heartbeat: DefaultHeartbeat,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logrus.NewEntry(logrus.StandardLogger())
	}
	p.log = p.log.WithFields(logrus.Fields{"session": s.ID, "side": s.Side()})
	if p.observe == nil {
		p.observe = func(game.Event) {}
	}
	return p
}

// Run serves the connection until it drops or ctx is cancelled. The host
// deals as soon as Run starts. Run returns the transport's error on
// disconnect, or ctx.Err().
func (p *Peer) Run(ctx context.Context) error {
	p.connected(ctx)

	var tick <-chan time.Time
	if p.heartbeat > 0 {
		t := time.NewTicker(p.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-p.tr.Receive():
			if !ok {
				p.disconnected()
				return p.tr.Err()
			}
			p.receive(ctx, frame)
		case <-tick:
			p.probe(ctx)
		}
	}
}

func (p *Peer) connected(ctx context.Context) {
	p.log.Info("Connected to opponent")
	var eff game.Effects
	eff.Events = append(eff.Events, game.Event{Type: game.EventStatus, Text: "Connected to opponent!"})
	if p.session.Side() == game.SideHost {
		p.mu.Lock()
		deal, err := p.session.StartRound()
		if err != nil {
			p.log.WithError(err).Error("Initial deal failed")
			deal.Events = append(deal.Events, game.Event{Type: game.EventError, Text: "Failed to start game: " + err.Error()})
		}
		p.flush(ctx, &deal)
		p.mu.Unlock()
		eff.Merge(deal)
	} else {
		eff.Events = append(eff.Events, game.Event{Type: game.EventStatus, Text: "Waiting for host to deal..."})
	}
	p.notify(eff.Events)
}

func (p *Peer) disconnected() {
	err := p.tr.Err()
	p.log.WithError(err).Warn("Connection lost")
	p.notify([]game.Event{{Type: game.EventStatus, Text: "Connection lost"}})
}

// receive decodes and applies one inbound frame.
func (p *Peer) receive(ctx context.Context, frame []byte) {
	m, err := protocol.Decode(frame)
	if err != nil {
		p.log.WithError(err).Warn("Dropping unparseable frame")
		p.notify([]game.Event{{Type: game.EventStatus, Text: "Error parsing message: " + err.Error()}})
		return
	}

	p.mu.Lock()
	if m.Type == protocol.MsgHeartbeat {
		p.lastSeen = p.now()
	}
	p.record(m, "in")
	eff := p.session.Handle(m)
	p.flush(ctx, &eff)
	p.auditLocked(&eff)
	p.mu.Unlock()

	p.notify(eff.Events)
}

func (p *Peer) probe(ctx context.Context) {
	p.mu.Lock()
	var eff game.Effects
	eff.Messages = append(eff.Messages, protocol.NewHeartbeat(p.now()))
	p.flush(ctx, &eff)
	p.mu.Unlock()
	p.notify(eff.Events)
}

// flush sends eff's messages in order and records them. A failed send is
// reported once per flush and the remaining messages are still attempted.
// Assumes lock is held by caller.
func (p *Peer) flush(ctx context.Context, eff *game.Effects) {
	failed := false
	for _, m := range eff.Messages {
		frame, err := protocol.Encode(m)
		if err != nil {
			p.log.WithError(err).WithField("type", m.Type).Error("Failed to encode message")
			continue
		}
		if err := p.tr.Send(ctx, frame); err != nil {
			p.log.WithError(err).WithField("type", m.Type).Warn("Send failed")
			if !failed {
				eff.Events = append(eff.Events, game.Event{Type: game.EventStatus, Text: "Cannot send message - connection not ready."})
			}
			failed = true
			continue
		}
		p.record(m, "out")
	}
	for _, ev := range eff.Events {
		if ev.Type == game.EventRoundEnd && ev.Result != nil {
			p.recordRound(*ev.Result)
		}
	}
}

// auditLocked runs the self-check after an inbound message and reports the
// findings when they change. Assumes lock is held by caller.
func (p *Peer) auditLocked(eff *game.Effects) {
	findings := p.session.Audit()
	key := strings.Join(findings, "; ")
	if key == p.lastAudit {
		return
	}
	p.lastAudit = key
	if key == "" {
		return
	}
	p.log.WithField("findings", findings).Error("State check failed")
	eff.Events = append(eff.Events, game.Event{Type: game.EventDesync, Text: "State check failed: " + key})
}

func (p *Peer) notify(events []game.Event) {
	for _, ev := range events {
		p.observe(ev)
	}
}

// LastSeen is when the opponent's last heartbeat arrived; zero if none has.
func (p *Peer) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Session exposes the underlying session for read-only inspection in tests
// and tooling. Callers must not mutate it while Run is active.
func (p *Peer) Session() *game.Session { return p.session }
