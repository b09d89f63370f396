package cli

import (
	"github.com/mcoot/playersync/internal/config"
)

// Config holds CLI configuration. Flags override the environment.
type Config struct {
	ServerURL string `env:"PLAYERSYNC_SERVER" envDefault:"http://localhost:8080"`
	User      string `env:"PLAYERSYNC_USERNAME"`
	Password  string `env:"PLAYERSYNC_PASSWORD"`
	Output    string `env:"PLAYERSYNC_OUTPUT" envDefault:"text"`
	Verbose   bool   `env:"PLAYERSYNC_VERBOSE"`
}

// DefaultConfig returns a Config populated from the environment
func DefaultConfig() (*Config, error) {
	c := &Config{}
	if err := config.ParseEnv(c); err != nil {
		return nil, err
	}
	return c, nil
}
