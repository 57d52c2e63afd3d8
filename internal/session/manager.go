package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-round/internal/scoreboard"
)

const (
	CookieName     = "user_session"
	CookieLifetime = 24 * time.Hour
)

// Session is one browser identity. Its ledger outlives every round and
// connection of that browser.
type Session struct {
	ID     string
	Ledger *scoreboard.Ledger

	lastSeen time.Time
	conns    int
}

type Manager struct {
	logger *slog.Logger
	clock  clock.Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(logger *slog.Logger, clk clock.Clock) *Manager {
	return &Manager{
		logger:   logger.With("component", "session_manager"),
		clock:    clk,
		sessions: make(map[string]*Session),
	}
}

func NewID() string {
	return uuid.New().String()
}

// GetOrCreate returns the session for id, creating it when unknown.
// An empty id gets a fresh one.
func (that *Manager) GetOrCreate(id string) *Session {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.getOrCreateLocked(id)
}

// Acquire marks the session as used by a live connection until Release.
func (that *Manager) Acquire(id string) *Session {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess := that.getOrCreateLocked(id)
	sess.conns++

	return sess
}

func (that *Manager) Release(id string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sess, ok := that.sessions[id]
	if !ok {
		return
	}

	if sess.conns > 0 {
		sess.conns--
	}
	sess.lastSeen = that.clock.Now()
}

func (that *Manager) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.sessions)
}

// Sweep drops sessions without connections that were idle for longer than idle.
func (that *Manager) Sweep(idle time.Duration) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	now := that.clock.Now()
	removed := 0

	for id, sess := range that.sessions {
		if sess.conns == 0 && now.Sub(sess.lastSeen) > idle {
			delete(that.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		that.logger.Info("idle sessions removed", "count", removed)
	}

	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (that *Manager) RunSweeper(ctx context.Context, interval, idle time.Duration) error {
	ticker := that.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			that.Sweep(idle)
		}
	}
}

// Cookie builds the session cookie sent back to the browser.
func (that *Manager) Cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Expires:  that.clock.Now().Add(CookieLifetime),
		Path:     "/",
		HttpOnly: true,
	}
}

func (that *Manager) getOrCreateLocked(id string) *Session {
	if id == "" {
		id = NewID()
	}

	sess, ok := that.sessions[id]
	if !ok {
		sess = &Session{
			ID:     id,
			Ledger: scoreboard.NewLedger(),
		}
		that.sessions[id] = sess
		that.logger.Debug("session created", "session", id)
	}

	sess.lastSeen = that.clock.Now()

	return sess
}
