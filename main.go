package main

import (
	"fmt"
	"log/slog"
	"os"

	app "github.com/rocketscienceinc/tictactoe-round/internal"
	"github.com/rocketscienceinc/tictactoe-round/internal/config"
)

const defaultConfigPath = "config.yml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tictactoe-round: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	conf, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		return err
	}

	slog.SetDefault(logger)
	logger.Info("starting", "config", path, "http_port", conf.HTTPPort, "socket_port", conf.SocketPort,
		"theme_storage", conf.ThemeStorage)

	if err = app.RunApp(logger, conf); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

// newLogger accepts the level names slog itself understands.
func newLogger(levelName string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("service", "tictactoe-round"), nil
}
