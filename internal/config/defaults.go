package config

import (
	"fmt"

	defaults "github.com/mcuadros/go-defaults"
)

// GetDefaultConfig returns the configuration used when no file sets anything.
func GetDefaultConfig() Config {
	var cfg Config
	defaults.SetDefaults(&cfg)
	return cfg
}

// Validate checks the values that cannot be caught while decoding.
func (c Config) Validate() error {
	switch c.Environment.Source {
	case SourceOS, SourceStatic:
	case SourceFile:
		if c.Environment.File == "" {
			return fmt.Errorf("environment source %q requires environment.file", SourceFile)
		}
	case SourceConfigMap:
		if c.Environment.ConfigMap.Name == "" {
			return fmt.Errorf("environment source %q requires environment.configMap.name", SourceConfigMap)
		}
	default:
		return fmt.Errorf("unknown environment source %q", c.Environment.Source)
	}

	switch c.Run.Output {
	case OutputConsole, OutputQuiet, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Run.Output)
	}

	if c.Run.Parallel < 0 {
		return fmt.Errorf("run.parallel must not be negative, got %d", c.Run.Parallel)
	}
	return nil
}
