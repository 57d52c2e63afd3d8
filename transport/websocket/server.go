package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
	"github.com/rocketscienceinc/tictactoe-round/internal/scoreboard"
	"github.com/rocketscienceinc/tictactoe-round/internal/session"
	"github.com/rocketscienceinc/tictactoe-round/internal/usecase"
)

var tracer = otel.Tracer("websocket")

type sessionRegistry interface {
	Acquire(id string) *session.Session
	Release(id string)
	Cookie(id string) *http.Cookie
}

type themeManager interface {
	Get(ctx context.Context, sessionID string) (entity.Theme, error)
	Toggle(ctx context.Context, sessionID string) (entity.Theme, error)
}

type RoundController interface {
	StartRound() error
	PlayCell(cell int) error
	SetOpponent(mode entity.Opponent) error
	ResetScores() error
	Snapshot() usecase.Snapshot
	Close()
}

// ControllerFactory builds the round controller of one connection. The
// listener must receive every snapshot the controller produces.
type ControllerFactory func(ledger *scoreboard.Ledger, listener func(usecase.Snapshot)) RoundController

type handlerFunc func(ctx context.Context, c *client, msg *Message) error

type Server struct {
	logger     *slog.Logger
	sessions   sessionRegistry
	themes     themeManager
	controller ControllerFactory
	upgrader   websocket.Upgrader

	handlers map[string]handlerFunc
}

// New builds the server. With no allowedOrigins only same-origin pages may
// connect, since the session rides on a cookie.
func New(
	logger *slog.Logger,
	sessions sessionRegistry,
	themes themeManager,
	controller ControllerFactory,
	allowedOrigins []string,
) *Server {
	server := &Server{
		logger:     logger.With("component", "websocket"),
		sessions:   sessions,
		themes:     themes,
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameRestart] = server.handleGameRestart
	server.handlers[actionGameOpponent] = server.handleGameOpponent
	server.handlers[actionScoreReset] = server.handleScoreReset
	server.handlers[actionThemeToggle] = server.handleThemeToggle

	return server
}

// checkOrigin returns nil for gorilla's same-origin check when nothing is configured.
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	if len(allowedOrigins) == 0 {
		return nil
	}

	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.ToLower(strings.TrimSuffix(origin, "/"))] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// not a browser
			return true
		}

		return allowed[strings.ToLower(origin)]
	}
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.upgradeToWebSocket)

	return mux
}

// Start - starts WebSocket server. Open connections are closed when ctx is done.
func (that *Server) Start(ctx context.Context, port string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection and serves it until the client leaves.
func (that *Server) upgradeToWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "websocket.upgrade", trace.WithAttributes(
		attribute.String("http.url", r.URL.String()),
	))

	sessionID := ""
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		sessionID = cookie.Value
	}

	sess := that.sessions.Acquire(sessionID)
	defer that.sessions.Release(sess.ID)

	header := http.Header{}
	if sess.ID != sessionID {
		header.Add("Set-Cookie", that.sessions.Cookie(sess.ID).String())
	}

	conn, err := that.upgrader.Upgrade(w, r, header)
	if err != nil {
		that.logger.Error("failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upgrade connection")
		span.End()
		return
	}

	span.SetAttributes(attribute.String("session.id", sess.ID))
	span.End()

	log := that.logger.With("session", sess.ID)
	log.Info("WebSocket connection established")

	c := newClient(conn, log, sess.ID)
	c.ctrl = that.controller(sess.Ledger, c.pushSnapshot)

	that.serve(ctx, c)

	log.Info("WebSocket connection closed")
}

func (that *Server) serve(ctx context.Context, c *client) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.close()
			_ = c.conn.SetReadDeadline(time.Now())
		case <-c.quit:
		}
	}()

	defer func() {
		c.ctrl.Close()
		c.close()
		<-done
		_ = c.conn.Close()
	}()

	if err := c.ctrl.StartRound(); err != nil {
		c.log.Error("failed to start round", "error", err)
		return
	}

	if err := that.sendTheme(ctx, c); err != nil {
		c.log.Error("failed to send theme", "error", err)
	}

	that.handleMessages(ctx, c)
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.sendError("", "malformed message")
				continue
			}

			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error("error reading message", "error", err)
			}
			return
		}

		that.dispatch(ctx, c, &msg)
	}
}

func (that *Server) dispatch(ctx context.Context, c *client, msg *Message) {
	ctx, span := tracer.Start(ctx, "websocket.dispatch", trace.WithAttributes(
		attribute.String("session.id", c.sessionID),
		attribute.String("message.action", msg.Action),
	))
	defer span.End()

	handler, ok := that.handlers[msg.Action]
	if !ok {
		span.SetStatus(codes.Error, "unknown action")
		c.sendError(msg.Action, "unknown action")
		return
	}

	if err := handler(ctx, c, msg); err != nil {
		c.log.Error("error processing message", "action", msg.Action, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "error processing message")
	}
}
