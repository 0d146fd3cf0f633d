package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/jason-s-yu/golf/engine"
	"github.com/jason-s-yu/golf/internal/game"
)

// table is what the presenter drives; *peer.Peer implements it.
type table interface {
	Flip(ctx context.Context, idx int) error
	Draw(ctx context.Context) error
	Take(ctx context.Context) error
	Replace(ctx context.Context, idx int) error
	Discard(ctx context.Context) error
	NewGame(ctx context.Context) error
	Reset(ctx context.Context) error
	Chat(ctx context.Context, text string) error
	View() game.View
	Audit() []string
	LegalActions() []game.Action
}

var errQuit = errors.New("quit")

const helpText = `Commands:
  flip N       flip card N (0-5) during the opening
  draw         draw from the pile
  take         take the top of the discard pile
  replace N    put the held card in slot N
  discard      discard the held card
  new          start a new game
  reset        abandon the round and start over
  say TEXT     chat with your opponent
  show         print the table
  audit        check the local state for inconsistencies
  quit         leave the game`

// presenter is the line-oriented terminal front end. Writes are serialised
// because events arrive from the network goroutine.
type presenter struct {
	mu  sync.Mutex
	out io.Writer
}

func newPresenter(out io.Writer) *presenter { return &presenter{out: out} }

func (p *presenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// observe prints events. State changes are silent; "show" renders the table.
func (p *presenter) observe(ev game.Event) {
	switch ev.Type {
	case game.EventStatus:
		p.printf("* %s\n", ev.Text)
	case game.EventChat:
		p.printf("Opponent: %s\n", ev.Text)
	case game.EventError:
		p.printf("! %s\n", ev.Text)
	case game.EventDesync:
		p.printf("!! %s (type \"reset\" to start over)\n", ev.Text)
	case game.EventRoundEnd:
		if ev.Result != nil {
			p.printf("%s  You: %d  Opponent: %d\n", ev.Text, ev.Result.MyScore, ev.Result.OpponentScore)
		}
	}
}

// loop reads commands until quit, end of input, or ctx is done.
func (p *presenter) loop(ctx context.Context, in io.Reader, t table) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	p.printf("Type \"help\" for commands.\n")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := p.execute(ctx, t, line); err != nil {
				if errors.Is(err, errQuit) {
					return
				}
				// Game errors were already reported through observe.
				var u usageError
				if errors.As(err, &u) {
					p.printf("! %s\n", u)
				}
			}
		}
	}
}

type usageError string

func (u usageError) Error() string { return string(u) }

// execute runs one command line against t.
func (p *presenter) execute(ctx context.Context, t table, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "flip", "replace":
		if len(args) != 1 {
			return usageError(fmt.Sprintf("usage: %s N", cmd))
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || !engine.ValidIndex(idx) {
			return usageError(fmt.Sprintf("card index must be 0-%d", engine.HandSize-1))
		}
		if cmd == "flip" {
			return t.Flip(ctx, idx)
		}
		return t.Replace(ctx, idx)
	case "draw":
		return t.Draw(ctx)
	case "take":
		return t.Take(ctx)
	case "discard":
		return t.Discard(ctx)
	case "new":
		return t.NewGame(ctx)
	case "reset":
		return t.Reset(ctx)
	case "say":
		// Keep the player's spacing inside the message.
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		if text == "" {
			return usageError("usage: say TEXT")
		}
		return t.Chat(ctx, text)
	case "show":
		p.printf("%s", render(t.View(), t.LegalActions()))
		return nil
	case "audit":
		if problems := t.Audit(); len(problems) > 0 {
			p.printf("State check found %d problem(s):\n  %s\n", len(problems), strings.Join(problems, "\n  "))
		} else {
			p.printf("State check passed.\n")
		}
		return nil
	case "help", "?":
		p.printf("%s\n", helpText)
		return nil
	case "quit", "exit":
		return errQuit
	}
	return usageError(fmt.Sprintf("unknown command %q (try \"help\")", cmd))
}

// render draws the table as plain text.
func render(v game.View, legal []game.Action) string {
	var b strings.Builder

	turn := "opponent's turn"
	if v.IsMyTurn {
		turn = "your turn"
	}
	fmt.Fprintf(&b, "Round %d, %s, %s\n", v.Round, v.Phase, turn)

	writeHand(&b, "Opponent", v.Opponent, false)

	discard := "empty"
	if v.DiscardTop != nil {
		discard = cardText(*v.DiscardTop)
	}
	fmt.Fprintf(&b, "Draw pile: %d   Discard: %s (%d)\n", v.DrawPileSize, discard, v.DiscardSize)

	writeHand(&b, "You", v.Player, true)
	if v.Player.Drawn != nil {
		fmt.Fprintf(&b, "Holding: %s\n", cardText(*v.Player.Drawn))
	}

	if v.Result != nil {
		fmt.Fprintf(&b, "%s  You: %d  Opponent: %d\n", v.Result.Outcome, v.Result.MyScore, v.Result.OpponentScore)
	}
	if len(legal) > 0 {
		names := make([]string, len(legal))
		for i, a := range legal {
			names[i] = a.String()
		}
		fmt.Fprintf(&b, "You can: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}

func writeHand(b *strings.Builder, who string, h game.ObfHand, indices bool) {
	label := fmt.Sprintf("%s (showing %d)", who, h.Score)
	if h.Closed {
		label += " closed"
	}
	if h.Holding && !indices {
		label += " holding a card"
	}
	fmt.Fprintf(b, "%s\n", label)
	for row := 0; row < engine.GridRows; row++ {
		b.WriteString(" ")
		for col := 0; col < engine.GridCols; col++ {
			i := row*engine.GridCols + col
			if indices {
				fmt.Fprintf(b, " %d:", i)
			}
			fmt.Fprintf(b, "[%3s ]", cardText(h.Slots[i]))
		}
		b.WriteString("\n")
	}
}

func cardText(c game.ObfCard) string {
	if !c.Known {
		return "??"
	}
	return c.Rank + c.Suit
}
