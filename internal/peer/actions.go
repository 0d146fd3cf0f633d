package peer

import (
	"context"

	"github.com/jason-s-yu/golf/internal/game"
)

// do runs one local operation under the peer lock, sends what it produced and
// notifies the observer. A rejected operation is reported as an error event
// and returned.
func (p *Peer) do(ctx context.Context, name string, op func() (game.Effects, error)) error {
	p.mu.Lock()
	eff, err := op()
	if err != nil {
		p.log.WithError(err).WithField("action", name).Debug("Local action rejected")
		eff.Events = append(eff.Events, game.Event{Type: game.EventError, Text: err.Error()})
	}
	p.flush(ctx, &eff)
	p.mu.Unlock()

	p.notify(eff.Events)
	return err
}

// Flip turns card idx face up during the initial flip.
func (p *Peer) Flip(ctx context.Context, idx int) error {
	return p.do(ctx, "flip", func() (game.Effects, error) { return p.session.FlipInitial(idx) })
}

// Draw takes the top of the draw pile.
func (p *Peer) Draw(ctx context.Context) error {
	return p.do(ctx, "draw", p.session.DrawFromPile)
}

// Take takes the top of the discard pile.
func (p *Peer) Take(ctx context.Context) error {
	return p.do(ctx, "take", p.session.TakeFromDiscard)
}

// Replace swaps the held card into slot idx.
func (p *Peer) Replace(ctx context.Context, idx int) error {
	return p.do(ctx, "replace", func() (game.Effects, error) { return p.session.Replace(idx) })
}

// Discard throws away the held card.
func (p *Peer) Discard(ctx context.Context) error {
	return p.do(ctx, "discard", p.session.DiscardDrawn)
}

// NewGame deals (host) or asks for a deal (client).
func (p *Peer) NewGame(ctx context.Context) error {
	return p.do(ctx, "new", p.session.RequestNewGame)
}

// Reset abandons the round and starts over.
func (p *Peer) Reset(ctx context.Context) error {
	return p.do(ctx, "reset", p.session.Reset)
}

// Chat sends text to the opponent.
func (p *Peer) Chat(ctx context.Context, text string) error {
	return p.do(ctx, "chat", func() (game.Effects, error) { return p.session.Chat(text) })
}

// View returns the local player's snapshot of the table.
func (p *Peer) View() game.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.View()
}

// Audit runs the passive self-check now.
func (p *Peer) Audit() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Audit()
}

// LegalActions lists what the local player may do now.
func (p *Peer) LegalActions() []game.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.LegalActions()
}
