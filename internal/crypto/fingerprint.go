package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"warden/internal/domain"
)

// Fingerprint returns a short hex fingerprint of key material.
//
// It hashes with SHA-256 and truncates to 6 bytes (12 hex chars), enough to
// correlate log lines without exposing the key.
func Fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:6])
}

// KeyFingerprint fingerprints a directional key.
func KeyFingerprint(k domain.DirectionalKey) string { return Fingerprint(k[:]) }
