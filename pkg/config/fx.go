package config

import (
	"os"

	"go.uber.org/fx"
)

// DefaultConfigFile is the configuration file looked for in the working
// directory when --config is not given.
const DefaultConfigFile = "ejimporter.yaml"

var Module = fx.Module("config", fx.Provide(
	// Function attempts to load the configuration from ejimporter.yaml if it
	// exists, falling back to a defaults-only config so fully env-driven
	// invocations (the legacy deployment style) still work. Environment
	// overrides apply in both cases; validation happens per command so
	// help/version never require a target database.
	func() (*Config, error) {
		cfg := Default()
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			loaded, err := LoadConfigFile(DefaultConfigFile)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}

		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	},
))
