package client

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment by command-line tools.
type Config struct {
	BaseURL     string        `env:"IFS_API_BASE_URL"     envDefault:"http://localhost:8080"`
	Timeout     time.Duration `env:"IFS_API_TIMEOUT"      envDefault:"10s"`
	RefreshWait time.Duration `env:"IFS_API_REFRESH_WAIT" envDefault:"30s"`
	SessionFile string        `env:"IFS_SESSION_FILE"`
}

// LoadConfig parses Config from the environment. SessionFile defaults to a
// file under the user config directory.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		cfg.SessionFile = filepath.Join(dir, "ifs", "session.json")
	}
	return cfg, nil
}
