package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
)

type themeResponse struct {
	DarkMode bool   `json:"dark_mode"`
	Class    string `json:"class"`
}

type setThemeRequest struct {
	DarkMode *bool `json:"dark_mode" binding:"required"`
}

func newThemeResponse(theme entity.Theme) themeResponse {
	return themeResponse{DarkMode: theme.DarkMode, Class: theme.Class()}
}

func (that *Server) getTheme(c *gin.Context) {
	sess := currentSession(c)

	theme, err := that.themes.Get(c.Request.Context(), sess.ID)
	if err != nil {
		that.logger.Error("failed to get theme", "session", sess.ID, "error", err)
		errorResponse(c, http.StatusInternalServerError, "failed to get theme")
		return
	}

	successResponse(c, newThemeResponse(theme))
}

func (that *Server) setTheme(c *gin.Context) {
	sess := currentSession(c)

	var req setThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "dark_mode is required")
		return
	}

	theme, err := that.themes.Set(c.Request.Context(), sess.ID, *req.DarkMode)
	if err != nil {
		that.logger.Error("failed to set theme", "session", sess.ID, "error", err)
		errorResponse(c, http.StatusInternalServerError, "failed to save theme")
		return
	}

	successResponse(c, newThemeResponse(theme))
}

func (that *Server) toggleTheme(c *gin.Context) {
	sess := currentSession(c)

	theme, err := that.themes.Toggle(c.Request.Context(), sess.ID)
	if err != nil {
		that.logger.Error("failed to toggle theme", "session", sess.ID, "error", err)
		errorResponse(c, http.StatusInternalServerError, "failed to toggle theme")
		return
	}

	successResponse(c, newThemeResponse(theme))
}

func (that *Server) getScores(c *gin.Context) {
	successResponse(c, currentSession(c).Ledger.Scores())
}

func (that *Server) resetScores(c *gin.Context) {
	sess := currentSession(c)
	sess.Ledger.Reset()

	successResponse(c, sess.Ledger.Scores())
}
