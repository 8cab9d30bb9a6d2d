package app

import (
	"errors"
	"time"

	"warden/internal/services/integrity"
	"warden/internal/transport/ws"
)

// Config holds runtime options for the warden server.
type Config struct {
	Addr       string // listen address, e.g. :8085
	Manifest   string // module manifest, optionally .sealed
	Passphrase string // opens a sealed manifest
	Sessions   string // JSON session fixture

	Policy           string // log | kick | ban
	RequestTimeout   time.Duration
	CheckInterval    time.Duration
	CheckJitter      time.Duration
	HandshakeTimeout time.Duration
	EagerChallenge   bool
	TickInterval     time.Duration

	AdmissionRate  float64 // upgrades per second per IP; 0 disables
	AdmissionBurst int

	LogLevel        string
	LogDev          bool
	ShutdownTimeout time.Duration
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address required")
	}
	if c.Manifest == "" {
		return errors.New("module manifest required")
	}
	if c.Sessions == "" {
		return errors.New("session table required")
	}
	if _, err := ws.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if c.AdmissionRate < 0 {
		return errors.New("admission rate must not be negative")
	}
	return c.Integrity().Validate()
}

// Integrity returns the per-connection engine configuration.
func (c Config) Integrity() integrity.Config {
	return integrity.Config{
		RequestTimeout:   c.RequestTimeout,
		CheckInterval:    c.CheckInterval,
		CheckJitter:      c.CheckJitter,
		HandshakeTimeout: c.HandshakeTimeout,
		EagerChallenge:   c.EagerChallenge,
	}
}
