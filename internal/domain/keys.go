package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// KeySize is the length of every directional, module and seed value.
const KeySize = 16

// ------------- Directional keys -------------

// DirectionalKey keys the stream cipher of a single traffic direction.
type DirectionalKey [KeySize]byte

func (k DirectionalKey) Slice() []byte { return k[:] }

// ------------- Module identity -------------

// ModuleID is the MD5 digest of a module's compressed payload.
type ModuleID [KeySize]byte

// ModuleKey is the key the client uses to unwrap the delivered module.
type ModuleKey [KeySize]byte

func (id ModuleID) Slice() []byte { return id[:] }
func (k ModuleKey) Slice() []byte { return k[:] }

func (id ModuleID) String() string { return strings.ToUpper(hex.EncodeToString(id[:])) }

// ------------- Challenge seed -------------

// Seed is the nonce sent with the hash challenge.
type Seed [KeySize]byte

func (s Seed) Slice() []byte { return s[:] }
func (s Seed) String() string { return strings.ToUpper(hex.EncodeToString(s[:])) }

// ParseModuleID decodes a 32 character hex string.
func ParseModuleID(s string) (ModuleID, error) {
	var out ModuleID
	if err := decodeFixed("module id", s, out[:]); err != nil {
		return ModuleID{}, err
	}
	return out, nil
}

// ParseModuleKey decodes a 32 character hex string.
func ParseModuleKey(s string) (ModuleKey, error) {
	var out ModuleKey
	if err := decodeFixed("module key", s, out[:]); err != nil {
		return ModuleKey{}, err
	}
	return out, nil
}

// ParseSeed decodes a 32 character hex string.
func ParseSeed(s string) (Seed, error) {
	var out Seed
	if err := decodeFixed("seed", s, out[:]); err != nil {
		return Seed{}, err
	}
	return out, nil
}

// MustSeed is ParseSeed for compile-time constants.
func MustSeed(s string) Seed {
	seed, err := ParseSeed(s)
	if err != nil {
		panic(err)
	}
	return seed
}

func decodeFixed(what, s string, dst []byte) error {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%s: want %d bytes, got %d", what, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
