package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/edwardwawrzynek/chess/internal/apperr"
	"github.com/edwardwawrzynek/chess/internal/dispatch"
	"github.com/edwardwawrzynek/chess/internal/protocol"
	"github.com/edwardwawrzynek/chess/internal/session"
)

// Server accepts WebSocket connections and runs one reader/writer pump pair
// per connection, dispatching each inbound frame and pushing the reply (and
// any out-of-band broadcasts) back out via Conn's bounded send queue.
type Server struct {
	addr       string
	router     *session.Router
	dispatcher *dispatch.Dispatcher
	upgrader   websocket.Upgrader
	nextConn   atomic.Int64

	httpServer *http.Server
}

// NewServer builds a transport server listening on addr.
func NewServer(addr string, router *session.Router, dispatcher *dispatch.Dispatcher) *Server {
	return &Server{
		addr:       addr,
		router:     router,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			// Single-origin board-game clients; the protocol itself is the
			// trust boundary, not browser origin checks.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the HTTP listener and blocks until ctx is canceled or the
// server fails to start.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = s.httpServer.Close()
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving websocket connections: %w", err)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := session.ClientID(fmt.Sprintf("%s-%d", r.RemoteAddr, s.nextConn.Add(1)))
	conn := newConn(id, ws, defaultSendQueueSize, defaultWriteTimeout)

	s.router.InsertClient(id, conn)
	go conn.writePump()

	defer func() {
		conn.CloseAsync()
		s.router.RemoveClient(id)
		_ = ws.Close()
	}()

	s.readLoop(r.Context(), conn)
}

// readLoop is the reader pump: one text frame in, one reply out (except
// the silent `version 1`), per spec.md §4.6. Out-of-band broadcasts are delivered independently by the
// router directly onto Conn's send queue.
func (s *Server) readLoop(ctx context.Context, conn *Conn) {
	for {
		msgType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "client", conn.ID(), "error", err)
			}
			return
		}
		if msgType == websocket.CloseMessage {
			return
		}
		if msgType == websocket.PingMessage {
			continue
		}

		if !utf8.Valid(data) {
			conn.Send(protocol.ErrorReply(apperr.New(apperr.MessageParseError)))
			continue
		}

		cmd := protocol.ParseCommand(string(data))
		reply, hasReply := s.dispatcher.Dispatch(ctx, conn, cmd)
		if hasReply {
			conn.Send(reply)
		}
	}
}
