package msgbus

import (
	"errors"

	"github.com/rs/zerolog"
)

var (
	// ErrEmptyName is returned when the bus name is empty.
	ErrEmptyName = errors.New("bus name cannot be empty")
)

// Config represents configuration for a Bus.
type Config struct {
	// Name identifies this bus in log output. A process normally has exactly
	// one bus, so the default is fine unless several coexist in tests.
	Name string

	// Logger receives structured diagnostics: swallowed async faults and
	// compaction sweeps. Defaults to a no-op logger; the bus never requires
	// logging to operate.
	Logger zerolog.Logger
}

// NewConfig creates a Bus configuration with safe defaults.
func NewConfig() *Config {
	return &Config{
		Name:   "msgbus",
		Logger: zerolog.Nop(),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// WithName sets the bus name used in log output.
func (c *Config) WithName(name string) *Config {
	c.Name = name
	return c
}

// WithLogger sets the structured logger.
func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	c.Logger = logger
	return c
}
