package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-round/internal/usecase"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	outgoingBuffer = 16
)

// client is one WebSocket connection. Only writePump writes to conn.
type client struct {
	conn      *websocket.Conn
	log       *slog.Logger
	sessionID string
	ctrl      RoundController

	// snapshots holds at most the latest snapshot not yet written.
	snapshots chan usecase.Snapshot
	outgoing  chan Message

	quit      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, log *slog.Logger, sessionID string) *client {
	return &client{
		conn:      conn,
		log:       log,
		sessionID: sessionID,
		snapshots: make(chan usecase.Snapshot, 1),
		outgoing:  make(chan Message, outgoingBuffer),
		quit:      make(chan struct{}),
	}
}

// pushSnapshot is the controller listener. It never blocks and replaces an
// older snapshot the writer has not picked up yet.
func (that *client) pushSnapshot(snapshot usecase.Snapshot) {
	select {
	case that.snapshots <- snapshot:
		return
	default:
	}

	select {
	case <-that.snapshots:
	default:
	}

	select {
	case that.snapshots <- snapshot:
	default:
	}
}

func (that *client) send(action string, payload any) {
	msg, err := newMessage(action, payload)
	if err != nil {
		that.log.Error("failed to marshal message", "action", action, "error", err)
		return
	}

	select {
	case that.outgoing <- msg:
	case <-that.quit:
	}
}

func (that *client) sendError(action, message string) {
	that.send(actionError, ErrorPayload{Action: action, Error: message})
}

func (that *client) close() {
	that.closeOnce.Do(func() {
		close(that.quit)
	})
}

func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snapshot := <-that.snapshots:
			msg, err := newMessage(actionGameState, snapshot)
			if err != nil {
				that.log.Error("failed to marshal snapshot", "error", err)
				continue
			}
			if !that.write(msg) {
				return
			}
		case msg := <-that.outgoing:
			if !that.write(msg) {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				that.fail(err)
				return
			}
		case <-that.quit:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = that.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (that *client) write(msg Message) bool {
	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := that.conn.WriteJSON(msg); err != nil {
		that.fail(err)
		return false
	}

	return true
}

// fail stops the connection after a write error so the reader unblocks too.
func (that *client) fail(err error) {
	that.log.Error("failed to write message", "error", err)
	that.close()
	_ = that.conn.Close()
}
