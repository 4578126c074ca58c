package config

import (
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// DefaultPort is the server port when neither RULES_PORT nor -port is set
const DefaultPort = 8080

// Config holds defaults loaded from environment variables. Command line flags take precedence.
type Config struct {
	// DataDir is the database directory.
	// Environment variable: RULES_DATA
	DataDir string `koanf:"RULES_DATA"`

	// Port is the HTTP server port.
	// Environment variable: RULES_PORT
	Port uint `koanf:"RULES_PORT"`

	// VersionControl commits every database write to a git repository in DataDir.
	// Environment variable: RULES_VCS
	VersionControl bool `koanf:"RULES_VCS"`

	// Development switches to human-readable debug logging.
	// Environment variable: DEVELOPMENT
	Development bool `koanf:"DEVELOPMENT"`
}

// FromEnv loads Config from the process environment
func FromEnv() (Config, error) {
	return load(env.Provider("", ".", nil))
}

func load(provider koanf.Provider) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(provider, nil); err != nil {
		return Config{}, errors.Wrap(err, "Failed to load config from environment")
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, errors.Wrap(err, "Failed to parse config")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return cfg, cfg.Validate()
}

// Validate checks values that can be verified without touching the file system
func (c Config) Validate() error {
	if c.Port > 1<<16-1 {
		return errors.Errorf("Port number must be a positive 16-bit integer: %d", c.Port)
	}
	return nil
}
