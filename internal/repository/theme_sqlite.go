package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
)

type sqliteTheme struct {
	conn *sql.DB
}

func NewSQLiteThemeRepository(conn *sql.DB) ThemeRepository {
	return &sqliteTheme{
		conn: conn,
	}
}

func (that *sqliteTheme) Get(ctx context.Context, sessionID string) (entity.Theme, error) {
	query := `SELECT dark_mode FROM theme_preferences WHERE session_id = ?`

	var darkMode bool

	err := that.conn.QueryRowContext(ctx, query, sessionID).Scan(&darkMode)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Theme{}, ErrThemeNotFound
	}
	if err != nil {
		return entity.Theme{}, fmt.Errorf("can't get theme: %w", err)
	}

	return entity.Theme{DarkMode: darkMode}, nil
}

func (that *sqliteTheme) Save(ctx context.Context, sessionID string, theme entity.Theme) error {
	query := `INSERT INTO theme_preferences (session_id, dark_mode) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET dark_mode = excluded.dark_mode`

	_, err := that.conn.ExecContext(ctx, query, sessionID, theme.DarkMode)
	if err != nil {
		return fmt.Errorf("can't save theme: %w", err)
	}

	return nil
}
