// Package transport is the WebSocket connection handler of spec.md §4.6: it
// owns the accept loop, one reader pump and one writer pump per socket, and
// adapts each connection to the session router's Sender/VersionedSender and
// the dispatcher's Conn interfaces. It generalizes the teacher's
// GameClient/Server split (internal/gameserver/client.go, server.go) from a
// length-prefixed binary TCP protocol to line-oriented WebSocket text
// frames.
package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edwardwawrzynek/chess/internal/session"
)

// Default bounded send-queue size and write deadline, matching the
// teacher's defaultSendQueueSize/defaultWriteTimeout constants
// (internal/gameserver/client.go).
const (
	defaultSendQueueSize = 256
	defaultWriteTimeout  = 5 * time.Second
)

// Conn is one accepted WebSocket connection. It implements session.Sender,
// session.VersionedSender, and dispatch.Conn by duck typing -- it satisfies
// those interfaces structurally without naming them.
type Conn struct {
	id session.ClientID
	ws *websocket.Conn

	version atomic.Int32 // sticky per-connection protocol version, defaults to 1

	sendCh    chan string
	closeCh   chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration
}

// newConn builds a Conn wrapping an already-upgraded websocket connection.
func newConn(id session.ClientID, ws *websocket.Conn, sendQueueSize int, writeTimeout time.Duration) *Conn {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	c := &Conn{
		id:           id,
		ws:           ws,
		sendCh:       make(chan string, sendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	c.version.Store(1)
	return c
}

// ID returns the router-facing client identity.
func (c *Conn) ID() session.ClientID { return c.id }

// Version returns the negotiated protocol version (1 by default).
func (c *Conn) Version() int { return int(c.version.Load()) }

// SetVersion sticks the connection to a negotiated protocol version.
func (c *Conn) SetVersion(v int) { c.version.Store(int32(v)) }

// Send queues msg for delivery. Non-blocking: a full queue means a slow
// client, so the connection is closed rather than let an unbounded queue
// pressurize the engine (spec.md §9, "Unbounded vs bounded send queues").
func (c *Conn) Send(msg string) bool {
	select {
	case c.sendCh <- msg:
		return true
	default:
		c.CloseAsync()
		return false
	}
}

// CloseAsync signals the write pump to stop and closes the socket, which
// ends the read loop, without blocking the caller. Safe to call more than
// once.
func (c *Conn) CloseAsync() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		_ = c.ws.Close()
	})
}

// writePump drains the send queue and writes each message as its own text
// frame until the connection is closed. Run as its own goroutine per
// connection, mirroring the teacher's GameClient.writePump.
func (c *Conn) writePump() {
	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
