package internal

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Addr                 string        `env:"ADDR,default=:8080"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4096"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	HTTPRateRPS          float64       `env:"HTTP_RATE_RPS,default=20"`
	HTTPRateBurst        int           `env:"HTTP_RATE_BURST,default=40"`
	SessionRateRPS       float64       `env:"SESSION_RATE_RPS,default=20"`
	SessionRateBurst     int           `env:"SESSION_RATE_BURST,default=40"`
}

// NewLogger builds the process-wide slog logger from the configured
// level string.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
