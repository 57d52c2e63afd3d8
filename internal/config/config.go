package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ThemeStorageRedis  = "redis"
	ThemeStorageSQLite = "sqlite"
)

type Config struct {
	LogLevel          string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	HTTPPort          string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090" validate:"required,numeric"`
	SocketPort        string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091" validate:"required,numeric"`
	ThemeStorage      string        `yaml:"theme-storage" env:"THEME_STORAGE" env-default:"redis" validate:"oneof=redis sqlite"`
	SQLiteStoragePath string        `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./theme.db" validate:"required_if=ThemeStorage sqlite"`
	Redis             Redis         `yaml:"redis"`
	Round             Round         `yaml:"round"`
	Session           Session       `yaml:"session"`
	AllowedOrigins    []string      `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-separator:"," validate:"dive,url"`
	ShutdownTimeout   time.Duration `yaml:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s" validate:"gt=0"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Round holds the timings of the round controller, in real time units.
type Round struct {
	Opponent      string        `yaml:"opponent" env:"ROUND_OPPONENT" env-default:"human" validate:"oneof=human computer"`
	ComputerMark  string        `yaml:"computer-mark" env:"ROUND_COMPUTER_MARK" env-default:"O" validate:"oneof=X O"`
	TickInterval  time.Duration `yaml:"tick-interval" env:"ROUND_TICK_INTERVAL" env-default:"1s" validate:"gt=0"`
	OpponentDelay time.Duration `yaml:"opponent-delay" env:"ROUND_OPPONENT_DELAY" env-default:"600ms" validate:"gt=0"`
	ResetDelay    time.Duration `yaml:"reset-delay" env:"ROUND_RESET_DELAY" env-default:"2s" validate:"gt=0"`
}

type Session struct {
	IdleTimeout   time.Duration `yaml:"idle-timeout" env:"SESSION_IDLE_TIMEOUT" env-default:"24h" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"SESSION_SWEEP_INTERVAL" env-default:"10m" validate:"gt=0"`
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(that); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
