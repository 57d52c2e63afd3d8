package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
	"github.com/rocketscienceinc/tictactoe-round/internal/repository"
)

type themeRepo interface {
	Get(ctx context.Context, sessionID string) (entity.Theme, error)
	Save(ctx context.Context, sessionID string, theme entity.Theme) error
}

// ThemeManager keeps the per-session dark mode preference. It knows nothing
// about rounds.
type ThemeManager struct {
	logger *slog.Logger
	repo   themeRepo
}

func NewThemeManager(logger *slog.Logger, repo themeRepo) *ThemeManager {
	return &ThemeManager{
		logger: logger.With("component", "theme_manager"),
		repo:   repo,
	}
}

// Get returns the stored preference, light when nothing was stored yet.
func (that *ThemeManager) Get(ctx context.Context, sessionID string) (entity.Theme, error) {
	theme, err := that.repo.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrThemeNotFound) {
		return entity.Theme{}, nil
	}
	if err != nil {
		return entity.Theme{}, fmt.Errorf("failed to get theme: %w", err)
	}

	return theme, nil
}

func (that *ThemeManager) Set(ctx context.Context, sessionID string, darkMode bool) (entity.Theme, error) {
	theme := entity.Theme{DarkMode: darkMode}

	if err := that.repo.Save(ctx, sessionID, theme); err != nil {
		return entity.Theme{}, fmt.Errorf("failed to save theme: %w", err)
	}

	that.logger.Debug("theme saved", "session", sessionID, "class", theme.Class())

	return theme, nil
}

func (that *ThemeManager) Toggle(ctx context.Context, sessionID string) (entity.Theme, error) {
	current, err := that.Get(ctx, sessionID)
	if err != nil {
		return entity.Theme{}, err
	}

	return that.Set(ctx, sessionID, !current.DarkMode)
}
