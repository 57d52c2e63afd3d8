package repository

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
)

var ErrThemeNotFound = errors.New("theme preference not found")

type ThemeRepository interface {
	Get(ctx context.Context, sessionID string) (entity.Theme, error)
	Save(ctx context.Context, sessionID string, theme entity.Theme) error
}
