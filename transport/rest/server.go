package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
	"github.com/rocketscienceinc/tictactoe-round/internal/session"
	"github.com/rocketscienceinc/tictactoe-round/pkg/handlers"
)

const sessionKey = "session"

type sessionRegistry interface {
	GetOrCreate(id string) *session.Session
	Cookie(id string) *http.Cookie
}

type themeManager interface {
	Get(ctx context.Context, sessionID string) (entity.Theme, error)
	Set(ctx context.Context, sessionID string, darkMode bool) (entity.Theme, error)
	Toggle(ctx context.Context, sessionID string) (entity.Theme, error)
}

type Server struct {
	logger   *slog.Logger
	sessions sessionRegistry
	themes   themeManager
	router   *gin.Engine
}

func New(logger *slog.Logger, sessions sessionRegistry, themes themeManager) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		logger:   logger.With("component", "rest"),
		sessions: sessions,
		themes:   themes,
		router:   gin.New(),
	}

	server.router.Use(gin.Recovery(), server.requestLogger())
	server.router.GET("/ping", handlers.PingHandler)

	api := server.router.Group("/api", server.withSession)
	api.GET("/theme", server.getTheme)
	api.PUT("/theme", server.setTheme)
	api.POST("/theme/toggle", server.toggleTheme)
	api.GET("/scores", server.getScores)
	api.DELETE("/scores", server.resetScores)

	return server
}

func (that *Server) Handler() http.Handler {
	return that.router
}

// Start - starts HTTP server and shuts it down when ctx is done.
func (that *Server) Start(ctx context.Context, port string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
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

// withSession resolves the user_session cookie, issuing a new one when absent.
func (that *Server) withSession(c *gin.Context) {
	id, err := c.Cookie(session.CookieName)
	if err != nil {
		id = ""
	}

	sess := that.sessions.GetOrCreate(id)
	if sess.ID != id {
		http.SetCookie(c.Writer, that.sessions.Cookie(sess.ID))
	}

	c.Set(sessionKey, sess)
	c.Next()
}

func (that *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		that.logger.Debug("request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func currentSession(c *gin.Context) *session.Session {
	sess, _ := c.MustGet(sessionKey).(*session.Session)
	return sess
}
