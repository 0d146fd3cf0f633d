// Package transport carries encoded frames between the two peers. It knows
// nothing about their content.
package transport

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotConnected is returned by Send once the channel is closed or lost.
	ErrNotConnected = errors.New("cannot send message - connection not ready")
)

// Transport is an ordered, reliable, bidirectional frame channel to one peer.
//
// Receive yields frames in arrival order and is closed when the channel goes
// down; Err then reports why. Send may be called from one goroutine at a time.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	Receive() <-chan []byte
	Err() error
	Close() error
}

// ---------------------------------------------------------------------------
// Pipe
// ---------------------------------------------------------------------------

// pipeEnd is one side of an in-memory pipe.
type pipeEnd struct {
	in   chan []byte
	out  chan []byte
	peer *pipeEnd
	link *pipeLink
}

// pipeLink is the shared lifetime of both ends.
type pipeLink struct {
	once sync.Once
	done chan struct{}
}

// Pipe returns two connected in-memory transports. Closing either end
// disconnects both.
func Pipe() (Transport, Transport) {
	link := &pipeLink{done: make(chan struct{})}
	a := &pipeEnd{in: make(chan []byte, 64), out: make(chan []byte, 64), link: link}
	b := &pipeEnd{in: make(chan []byte, 64), out: make(chan []byte, 64), link: link}
	a.peer, b.peer = b, a
	go a.forward()
	go b.forward()
	return a, b
}

func (p *pipeEnd) forward() {
	defer close(p.out)
	for {
		select {
		case <-p.link.done:
			return
		case f := <-p.in:
			select {
			case p.out <- f:
			case <-p.link.done:
				return
			}
		}
	}
}

func (p *pipeEnd) Send(ctx context.Context, frame []byte) error {
	select {
	case <-p.link.done:
		return ErrNotConnected
	default:
	}
	buf := append([]byte(nil), frame...)
	select {
	case p.peer.in <- buf:
		return nil
	case <-p.link.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive() <-chan []byte { return p.out }

func (p *pipeEnd) Err() error {
	select {
	case <-p.link.done:
		return ErrNotConnected
	default:
		return nil
	}
}

func (p *pipeEnd) Close() error {
	p.link.once.Do(func() { close(p.link.done) })
	return nil
}
