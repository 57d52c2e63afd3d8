package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
)

type dbTheme struct {
	client *redis.Client
}

func NewThemeRepository(client *redis.Client) ThemeRepository {
	return &dbTheme{
		client: client,
	}
}

func themeKey(sessionID string) string {
	return "theme:" + sessionID
}

func (that *dbTheme) Get(ctx context.Context, sessionID string) (entity.Theme, error) {
	response, err := that.client.Get(ctx, themeKey(sessionID)).Result()

	if errors.Is(err, redis.Nil) {
		return entity.Theme{}, ErrThemeNotFound
	}

	if err != nil {
		return entity.Theme{}, fmt.Errorf("failed to get theme: %w", err)
	}

	// only a stored "true" enables dark mode
	return entity.Theme{DarkMode: response == "true"}, nil
}

func (that *dbTheme) Save(ctx context.Context, sessionID string, theme entity.Theme) error {
	err := that.client.Set(ctx, themeKey(sessionID), strconv.FormatBool(theme.DarkMode), 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set theme: %w", err)
	}

	return nil
}
