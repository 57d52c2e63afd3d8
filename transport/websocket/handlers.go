package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-round/internal/apperror"
)

// isRejectedMove reports engine rejections. They are no-ops for the client.
func isRejectedMove(err error) bool {
	return errors.Is(err, apperror.ErrGameFinished) ||
		errors.Is(err, apperror.ErrNotYourTurn) ||
		errors.Is(err, apperror.ErrCellOccupied) ||
		errors.Is(err, apperror.ErrInvalidCell)
}

func (that *Server) handleGameTurn(_ context.Context, c *client, msg *Message) error {
	var payload TurnPayload
	if err := decodePayload(msg, &payload); err != nil {
		c.sendError(msg.Action, "cell must be a number from 0 to 8")
		return nil
	}

	err := c.ctrl.PlayCell(*payload.Cell)
	if isRejectedMove(err) {
		c.log.Debug("move rejected", "cell", *payload.Cell, "reason", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to play cell: %w", err)
	}

	return nil
}

func (that *Server) handleGameRestart(_ context.Context, c *client, _ *Message) error {
	if err := c.ctrl.StartRound(); err != nil {
		return fmt.Errorf("failed to restart round: %w", err)
	}

	return nil
}

func (that *Server) handleGameOpponent(_ context.Context, c *client, msg *Message) error {
	var payload OpponentPayload
	if err := decodePayload(msg, &payload); err != nil {
		c.sendError(msg.Action, "opponent must be human or computer")
		return nil
	}

	if err := c.ctrl.SetOpponent(payload.Opponent); err != nil {
		return fmt.Errorf("failed to set opponent: %w", err)
	}

	return nil
}

func (that *Server) handleScoreReset(_ context.Context, c *client, _ *Message) error {
	if err := c.ctrl.ResetScores(); err != nil {
		return fmt.Errorf("failed to reset scores: %w", err)
	}

	return nil
}

func (that *Server) handleThemeToggle(ctx context.Context, c *client, msg *Message) error {
	theme, err := that.themes.Toggle(ctx, c.sessionID)
	if err != nil {
		c.sendError(msg.Action, "failed to toggle theme")
		return fmt.Errorf("failed to toggle theme: %w", err)
	}

	c.send(actionTheme, ThemePayload{DarkMode: theme.DarkMode, Class: theme.Class()})

	return nil
}

func (that *Server) sendTheme(ctx context.Context, c *client) error {
	theme, err := that.themes.Get(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("failed to get theme: %w", err)
	}

	c.send(actionTheme, ThemePayload{DarkMode: theme.DarkMode, Class: theme.Class()})

	return nil
}
