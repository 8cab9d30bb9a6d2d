package crypto

import (
	"crypto/cipher"
	"crypto/rc4"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"warden/internal/domain"
	"warden/internal/util/memzero"
)

// chacha20Info labels the HKDF expansion of a directional key.
const chacha20Info = "warden|chacha20"

var (
	ErrInactive     = errors.New("stream direction not activated")
	ErrUnknownSuite = errors.New("unknown cipher suite")
)

// Direction selects one half of a Channel.
type Direction uint8

const (
	Inbound  Direction = iota // client -> server
	Outbound                  // server -> client
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Channel holds one keystream per direction.
//
// Concurrency: Channel is NOT safe for concurrent use. Each direction's
// position advances with every transformed byte.
type Channel struct {
	suite   domain.CipherSuite
	streams [2]cipher.Stream
}

// NewChannel returns an inactive channel for suite. An empty suite means RC4.
func NewChannel(suite domain.CipherSuite) (*Channel, error) {
	if suite == "" {
		suite = domain.SuiteRC4
	}
	switch suite {
	case domain.SuiteRC4, domain.SuiteChaCha20:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, suite)
	}
	return &Channel{suite: suite}, nil
}

// Suite reports the cipher suite in use.
func (c *Channel) Suite() domain.CipherSuite { return c.suite }

// Activate (re)keys one direction, restarting its keystream.
func (c *Channel) Activate(dir Direction, key domain.DirectionalKey) error {
	if dir > Outbound {
		return fmt.Errorf("activate %s: invalid direction", dir)
	}
	s, err := newStream(c.suite, key)
	if err != nil {
		return fmt.Errorf("activate %s: %w", dir, err)
	}
	c.streams[dir] = s
	return nil
}

// Active reports whether dir has been keyed.
func (c *Channel) Active(dir Direction) bool {
	return dir <= Outbound && c.streams[dir] != nil
}

// Transform applies dir's keystream to buf in place.
func (c *Channel) Transform(dir Direction, buf []byte) error {
	if !c.Active(dir) {
		return fmt.Errorf("%s: %w", dir, ErrInactive)
	}
	c.streams[dir].XORKeyStream(buf, buf)
	return nil
}

// Encrypt transforms an outbound buffer in place.
func (c *Channel) Encrypt(buf []byte) error { return c.Transform(Outbound, buf) }

// Decrypt transforms an inbound buffer in place.
func (c *Channel) Decrypt(buf []byte) error { return c.Transform(Inbound, buf) }

func newStream(suite domain.CipherSuite, key domain.DirectionalKey) (cipher.Stream, error) {
	switch suite {
	case domain.SuiteRC4:
		s, err := rc4.NewCipher(key[:])
		if err != nil {
			return nil, err
		}
		return s, nil
	case domain.SuiteChaCha20:
		var material [chacha20.KeySize + chacha20.NonceSize]byte
		defer memzero.Zero(material[:])
		r := hkdf.New(sha256.New, key[:], nil, []byte(chacha20Info))
		if _, err := io.ReadFull(r, material[:]); err != nil {
			return nil, err
		}
		s, err := chacha20.NewUnauthenticatedCipher(material[:chacha20.KeySize], material[chacha20.KeySize:])
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, suite)
	}
}
