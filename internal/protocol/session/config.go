package session

import (
	"time"

	"github.com/danmuck/tracilink/internal/protocol/frame"
)

// BackoffConfig defines connect retry behavior. The delay grows linearly:
// Base + attempt*Step.
type BackoffConfig struct {
	Base        time.Duration
	Step        time.Duration
	MaxAttempts int
}

// Config defines transport defaults for one simulator session.
type Config struct {
	ConnectTimeout time.Duration
	// ReadTimeout and WriteTimeout bound a single message exchange. Zero
	// disables the deadline and a hung simulator hangs the caller.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Backoff      BackoffConfig
	Limits       frame.Limits
}

// DefaultConfig returns the connect schedule the simulator needs to open its
// listening socket: ten attempts, 1s + attempt*250ms apart.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		Backoff: BackoffConfig{
			Base:        time.Second,
			Step:        250 * time.Millisecond,
			MaxAttempts: 10,
		},
		Limits: frame.DefaultLimits(),
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	if c.Backoff.MaxAttempts <= 0 {
		c.Backoff.MaxAttempts = def.Backoff.MaxAttempts
	}
	if c.Backoff.Base < 0 {
		c.Backoff.Base = def.Backoff.Base
	}
	if c.Backoff.Step < 0 {
		c.Backoff.Step = def.Backoff.Step
	}
	if c.Limits.MaxMessageBytes == 0 {
		c.Limits = def.Limits
	}
	return c
}
