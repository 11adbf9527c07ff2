package main

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=3000"`
	AdminPort            int           `env:"ADMIN_PORT,default=3001"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=1000"`
	CommandBufferSize    int           `env:"COMMAND_BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH"`
	CensoredCharacter    string        `env:"CENSORED_CHARACTER,default=*"`
	EnableCensorship     bool          `env:"ENABLE_CENSORSHIP,default=false"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Origins splits the comma separated ALLOWED_ORIGINS value.
func (c Config) Origins() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}
	return strings.Split(c.AllowedOrigins, ",")
}

// CensorRune is the first rune of CENSORED_CHARACTER, '*' when unset.
func (c Config) CensorRune() rune {
	r, _ := utf8.DecodeRuneInString(c.CensoredCharacter)
	if r == utf8.RuneError {
		return '*'
	}
	return r
}
