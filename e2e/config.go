package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL is the websocket endpoint, e.g. ws://localhost:3000/ws. Empty skips the suites.
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	AdminAddr string `envconfig:"E2E_ADMIN_ADDR" default:"localhost:3001"`
	// E2E_DEBUG_JSON dumps every frame and gRPC body
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
