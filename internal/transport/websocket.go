package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Path is the HTTP path the host serves the game channel on.
const Path = "/golf"

// maxFrame bounds a single inbound frame; a full deal is well under this.
const maxFrame = 64 << 10

// WebSocket is a Transport over one coder/websocket connection using text frames.
type WebSocket struct {
	conn *websocket.Conn
	in   chan []byte
	done chan struct{}
	log  *logrus.Entry

	writeMu   sync.Mutex
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

func newWebSocket(conn *websocket.Conn, log *logrus.Entry) *WebSocket {
	conn.SetReadLimit(maxFrame)
	ws := &WebSocket{
		conn: conn,
		in:   make(chan []byte, 64),
		done: make(chan struct{}),
		log:  log,
	}
	go ws.readLoop()
	return ws
}

func (ws *WebSocket) readLoop() {
	defer close(ws.in)
	defer ws.finish(nil)
	ctx := context.Background()
	for {
		typ, data, err := ws.conn.Read(ctx)
		if err != nil {
			ws.finish(err)
			return
		}
		if typ != websocket.MessageText {
			ws.log.WithField("type", typ).Warn("Dropping non-text frame")
			continue
		}
		select {
		case ws.in <- data:
		case <-ws.done:
			return
		}
	}
}

// finish records why the connection ended, once.
func (ws *WebSocket) finish(err error) {
	ws.errMu.Lock()
	defer ws.errMu.Unlock()
	select {
	case <-ws.done:
		return
	default:
	}
	switch {
	case err == nil:
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
		ws.log.Info("Peer closed the connection")
	default:
		ws.log.WithError(err).Warn("Connection lost")
	}
	ws.err = err
	close(ws.done)
}

// Send writes one text frame.
func (ws *WebSocket) Send(ctx context.Context, frame []byte) error {
	select {
	case <-ws.done:
		return ErrNotConnected
	default:
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	if err := ws.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (ws *WebSocket) Receive() <-chan []byte { return ws.in }

// Done is closed when the connection is gone.
func (ws *WebSocket) Done() <-chan struct{} { return ws.done }

func (ws *WebSocket) Err() error {
	ws.errMu.Lock()
	defer ws.errMu.Unlock()
	select {
	case <-ws.done:
		if ws.err == nil {
			return ErrNotConnected
		}
		return ws.err
	default:
		return nil
	}
}

func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		err = ws.conn.Close(websocket.StatusNormalClosure, "bye")
		ws.finish(nil)
	})
	return err
}

// ---------------------------------------------------------------------------
// Host side
// ---------------------------------------------------------------------------

// ServerOptions configures Listen.
type ServerOptions struct {
	// Secret verifies invite tokens. Empty disables the check.
	Secret    []byte
	SessionID uuid.UUID
	Logger    *logrus.Entry
}

// Server accepts exactly one opponent over WebSocket.
type Server struct {
	ln    net.Listener
	srv   *http.Server
	opts  ServerOptions
	log   *logrus.Entry
	taken atomic.Bool
	conns chan *WebSocket
}

// Listen starts serving on addr. Use Accept to wait for the opponent.
func Listen(addr string, opts ServerOptions) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		ln:    ln,
		opts:  opts,
		log:   opts.Logger.WithField("component", "ws-server"),
		conns: make(chan *WebSocket, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handle)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("HTTP server stopped")
		}
	}()
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// URL is the ws:// address an opponent dials.
func (s *Server) URL() string { return "ws://" + s.Addr() + Path }

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if len(s.opts.Secret) > 0 {
		id, err := VerifyInvite(s.opts.Secret, bearerToken(r))
		if err != nil || (s.opts.SessionID != uuid.Nil && id != s.opts.SessionID) {
			s.log.WithError(err).WithField("remote", r.RemoteAddr).Warn("Rejected connection with bad invite")
			http.Error(w, "invalid invite", http.StatusUnauthorized)
			return
		}
	}
	if !s.taken.CompareAndSwap(false, true) {
		http.Error(w, "game already has an opponent", http.StatusConflict)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.taken.Store(false)
		s.log.WithError(err).Warn("WebSocket accept failed")
		return
	}
	ws := newWebSocket(conn, s.log.WithField("remote", r.RemoteAddr))
	s.log.WithField("remote", r.RemoteAddr).Info("Opponent connected")
	s.conns <- ws
	<-ws.Done()
}

// Accept waits for the opponent to connect.
func (s *Server) Accept(ctx context.Context) (*WebSocket, error) {
	select {
	case ws := <-s.conns:
		return ws, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting; an established connection is closed by its owner.
func (s *Server) Close() error {
	return s.srv.Close()
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// ---------------------------------------------------------------------------
// Client side
// ---------------------------------------------------------------------------

// Dial connects to a host, presenting token as a bearer credential.
func Dial(ctx context.Context, url, token string, log *logrus.Entry) (*WebSocket, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + token}}
	}
	conn, resp, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial %s: %w", url, ErrBadInvite)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newWebSocket(conn, log.WithField("remote", url)), nil
}
