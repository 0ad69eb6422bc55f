// Package config holds server configuration: the device-bridge binary,
// device selection defaults, timeouts, and payload limits. Configuration
// is loaded once at startup from a KDL file and is immutable afterwards.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete server configuration.
type Config struct {
	// ADBPath is the device-bridge binary (empty = auto-discover).
	ADBPath string

	// DefaultDevice is the serial used when a request names no device.
	DefaultDevice string

	// CommandTimeout bounds ordinary bridge invocations.
	CommandTimeout time.Duration

	// InstallTimeout bounds package installs, which run much longer.
	InstallTimeout time.Duration

	// MaxProcs caps concurrently running bridge processes.
	MaxProcs int

	// MaxArtifactBytes caps inline binary payloads (screenshots, pulled files).
	MaxArtifactBytes int64

	// SocketPath is the unix socket the server listens on (empty = default).
	SocketPath string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CommandTimeout:   30 * time.Second,
		InstallTimeout:   2 * time.Minute,
		MaxProcs:         4,
		MaxArtifactBytes: 8 << 20,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %s", c.CommandTimeout)
	}
	if c.InstallTimeout < c.CommandTimeout {
		return fmt.Errorf("install timeout %s must be at least the command timeout %s",
			c.InstallTimeout, c.CommandTimeout)
	}
	if c.MaxProcs < 1 {
		return fmt.Errorf("max procs must be at least 1, got %d", c.MaxProcs)
	}
	if c.MaxArtifactBytes < 1024 {
		return fmt.Errorf("max artifact bytes must be at least 1024, got %d", c.MaxArtifactBytes)
	}
	return nil
}
