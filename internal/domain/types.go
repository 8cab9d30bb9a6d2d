package domain

import "errors"

// ErrUnsupportedPlatform is returned by a ModuleSelector that has no module
// for the requested client platform.
var ErrUnsupportedPlatform = errors.New("unsupported client platform")

// Platform identifies the client build/OS a module is compiled for
// (for example "OSX" or "Win").
type Platform string

// CipherSuite names the stream cipher used to frame warden traffic.
type CipherSuite string

const (
	SuiteRC4      CipherSuite = "rc4"
	SuiteChaCha20 CipherSuite = "chacha20"
)

// CheckSet describes the periodic integrity check a module answers.
//
// The client proves execution by returning SHA1(probe || magic) and MD5(probe).
type CheckSet struct {
	Probe          string
	Magic          uint32
	RandomizeProbe bool
}

// Module is an immutable catalog entry delivered to clients.
type Module struct {
	Name      string
	Platforms []Platform
	Key       ModuleKey
	ID        ModuleID
	Payload   []byte // compressed, exactly as sent to the client
	Seed      Seed
	Suite     CipherSuite
	Checks    CheckSet
}

// CompressedSize is the size announced to the client before transfer.
func (m Module) CompressedSize() uint32 { return uint32(len(m.Payload)) }

// Supports reports whether the module was built for p.
func (m Module) Supports(p Platform) bool {
	for _, candidate := range m.Platforms {
		if candidate == p {
			return true
		}
	}
	return false
}
