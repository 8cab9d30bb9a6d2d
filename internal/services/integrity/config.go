package integrity

import (
	"errors"
	"time"
)

// Config bounds the timing of one connection's exchange.
type Config struct {
	// RequestTimeout is how long a check request may stay unanswered.
	RequestTimeout time.Duration
	// CheckInterval separates a verified check from the next request.
	CheckInterval time.Duration
	// CheckJitter adds a random delay in [0, CheckJitter) to every interval.
	CheckJitter time.Duration
	// HandshakeTimeout bounds the time from Init to a verified challenge.
	// Zero disables it.
	HandshakeTimeout time.Duration
	// EagerChallenge sends the seed challenge together with the module
	// announcement instead of waiting for MODULE_OK.
	EagerChallenge bool
}

func (c Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout required")
	}
	if c.CheckInterval <= 0 {
		return errors.New("check interval required")
	}
	if c.CheckJitter < 0 {
		return errors.New("check jitter must not be negative")
	}
	if c.HandshakeTimeout < 0 {
		return errors.New("handshake timeout must not be negative")
	}
	return nil
}
