package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-round/internal/config"
	"github.com/rocketscienceinc/tictactoe-round/internal/entity"
	"github.com/rocketscienceinc/tictactoe-round/internal/repository"
	"github.com/rocketscienceinc/tictactoe-round/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-round/internal/scoreboard"
	"github.com/rocketscienceinc/tictactoe-round/internal/service"
	"github.com/rocketscienceinc/tictactoe-round/internal/session"
	"github.com/rocketscienceinc/tictactoe-round/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-round/transport/rest"
	"github.com/rocketscienceinc/tictactoe-round/transport/websocket"
)

var (
	ErrAddrNotFound        = errors.New("redis address string is empty")
	ErrUnknownThemeStorage = errors.New("unknown theme storage")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	themeRepo, closeStorage, err := newThemeRepository(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closeStorage(); err != nil {
			log.Error("could not close theme storage", "error", err)
		}
	}()

	clk := clock.New()
	sessions := session.NewManager(logger, clk)
	themes := usecase.NewThemeManager(logger, themeRepo)
	bot := service.NewBotService(nil)

	settings := usecase.RoundSettings{
		Opponent:      entity.Opponent(conf.Round.Opponent),
		ComputerMark:  entity.Mark(conf.Round.ComputerMark),
		TickInterval:  conf.Round.TickInterval,
		OpponentDelay: conf.Round.OpponentDelay,
		ResetDelay:    conf.Round.ResetDelay,
	}

	newController := func(ledger *scoreboard.Ledger, listener func(usecase.Snapshot)) websocket.RoundController {
		return usecase.NewRoundController(logger, clk, ledger, bot, settings, listener)
	}

	restServer := rest.New(logger, sessions, themes)
	wsServer := websocket.New(logger, sessions, themes, newController, conf.AllowedOrigins)

	group, ctx := errgroup.WithContext(ctx)

	// run HTTP server
	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(ctx, conf.HTTPPort, conf.ShutdownTimeout); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}
		return nil
	})

	// run Websocket server
	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort, conf.ShutdownTimeout); wsErr != nil {
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}
		return nil
	})

	group.Go(func() error {
		return sessions.RunSweeper(ctx, conf.Session.SweepInterval, conf.Session.IdleTimeout)
	})

	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Application stopped")

	return nil
}

func newThemeRepository(ctx context.Context, conf *config.Config) (repository.ThemeRepository, func() error, error) {
	switch conf.ThemeStorage {
	case config.ThemeStorageRedis:
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return nil, nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return repository.NewThemeRepository(redisStorage.Connection), redisStorage.Close, nil

	case config.ThemeStorageSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			_ = sqliteStorage.Close()
			return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		return repository.NewSQLiteThemeRepository(sqliteStorage.Connection), sqliteStorage.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownThemeStorage, conf.ThemeStorage)
	}
}
