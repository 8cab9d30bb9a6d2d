// Package simclient is a reference warden peer. It answers server frames the
// way a genuine client running the delivered module does, and can be told to
// misbehave for testing.
package simclient

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"

	"warden/internal/crypto"
	"warden/internal/domain"
	"warden/internal/protocol/warden"
)

var (
	ErrUnexpected   = errors.New("unexpected server frame")
	ErrModuleTooBig = errors.New("module data exceeds announced size")
)

// Options selects client behaviour. The zero value is a genuine client.
type Options struct {
	// Suite must match the module's cipher suite. Empty means RC4.
	Suite domain.CipherSuite
	// Magic is the check suffix the module was built with. Zero means
	// warden.DefaultMagic.
	Magic uint32
	// Cached reports the module as already present instead of downloading it.
	Cached bool
	// TamperHash flips one bit of the challenge digest.
	TamperHash bool
	// TamperChecks flips one bit of every check result.
	TamperChecks bool
	// IgnoreChecks leaves check requests unanswered.
	IgnoreChecks bool
}

// Client is the client side of one session. Not safe for concurrent use.
type Client struct {
	opts    Options
	channel *crypto.Channel

	use     *warden.ModuleUse
	module  []byte
	loaded  bool
	seed    *domain.Seed
	rotated bool
	checks  int
}

// New keys a client from the shared session secret.
func New(secret []byte, opts Options) (*Client, error) {
	if opts.Magic == 0 {
		opts.Magic = warden.DefaultMagic
	}
	ch, err := crypto.NewChannel(opts.Suite)
	if err != nil {
		return nil, err
	}
	serverIn, serverOut := crypto.DeriveDirectionalKeys(secret)
	c := &Client{opts: opts, channel: ch}
	if err := c.key(serverIn, serverOut); err != nil {
		return nil, err
	}
	return c, nil
}

// key mirrors the server: the client writes with the server's inbound key.
func (c *Client) key(serverIn, serverOut domain.DirectionalKey) error {
	if err := c.channel.Activate(crypto.Outbound, serverIn); err != nil {
		return err
	}
	return c.channel.Activate(crypto.Inbound, serverOut)
}

// Handle decrypts one server frame and returns the encrypted replies.
func (c *Client) Handle(frame []byte) ([][]byte, error) {
	buf := bytes.Clone(frame)
	if err := c.channel.Decrypt(buf); err != nil {
		return nil, err
	}
	msg, err := warden.DecodeServerMessage(buf)
	if err != nil {
		return nil, err
	}

	var out [][]byte
	switch msg.Opcode {
	case warden.SMSGModuleUse:
		use, err := warden.DecodeModuleUse(msg.Body)
		if err != nil {
			return nil, err
		}
		c.use, c.module, c.loaded = &use, nil, false
		if c.opts.Cached {
			c.loaded = true
			out = append(out, c.Frame(warden.EncodeClientOpcode(warden.CMSGModuleOK)))
			return c.answerPending(out)
		}
		out = append(out, c.Frame(warden.EncodeClientOpcode(warden.CMSGModuleMissing)))

	case warden.SMSGModuleCache:
		if c.use == nil || c.loaded {
			return nil, fmt.Errorf("%w: %s", ErrUnexpected, msg.Opcode)
		}
		data, err := warden.DecodeModuleChunk(msg.Body)
		if err != nil {
			return nil, err
		}
		c.module = append(c.module, data...)
		switch {
		case uint32(len(c.module)) > c.use.Size:
			return nil, ErrModuleTooBig
		case uint32(len(c.module)) < c.use.Size:
			return nil, nil
		}
		if domain.ModuleID(md5.Sum(c.module)) != c.use.ID {
			c.module = nil
			out = append(out, c.Frame(warden.EncodeClientOpcode(warden.CMSGModuleFailed)))
			return out, nil
		}
		c.loaded = true
		out = append(out, c.Frame(warden.EncodeClientOpcode(warden.CMSGModuleOK)))
		return c.answerPending(out)

	case warden.SMSGHashRequest:
		seed, err := warden.DecodeHashRequest(msg.Body)
		if err != nil {
			return nil, err
		}
		c.seed = &seed
		return c.answerPending(out)

	case warden.SMSGCheatChecksRequest:
		probe, err := warden.DecodeCheckRequest(msg.Body)
		if err != nil {
			return nil, err
		}
		if c.opts.IgnoreChecks {
			return nil, nil
		}
		r := warden.ExpectedCheckResult(probe, c.opts.Magic)
		if c.opts.TamperChecks {
			r.MD5[0] ^= 0x01
		}
		c.checks++
		out = append(out, c.Frame(warden.EncodeCheckResult(r)))

	case warden.SMSGModuleInitialize, warden.SMSGMemChecksRequest:
		// The reference module does not implement these.

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpected, msg.Opcode)
	}
	return out, nil
}

// answerPending replies to a challenge once the module is loaded, then
// switches to the transformed keys.
func (c *Client) answerPending(out [][]byte) ([][]byte, error) {
	if c.seed == nil || !c.loaded {
		return out, nil
	}
	seed := *c.seed
	c.seed = nil

	digest := warden.ExpectedHashResult(seed)
	if c.opts.TamperHash {
		digest[len(digest)-1] ^= 0x01
	}
	out = append(out, c.Frame(warden.EncodeHashResult(digest)))

	in, srvOut := warden.Transform(seed)
	if err := c.key(in, srvOut); err != nil {
		return nil, err
	}
	c.rotated = true
	return out, nil
}

// Frame encrypts a plain client frame with the current outbound keystream.
func (c *Client) Frame(plain []byte) []byte {
	buf := bytes.Clone(plain)
	_ = c.channel.Encrypt(buf)
	return buf
}

// Rotated reports whether the client has answered the challenge.
func (c *Client) Rotated() bool { return c.rotated }

// ChecksAnswered counts replied check requests.
func (c *Client) ChecksAnswered() int { return c.checks }

// Module returns the downloaded module payload.
func (c *Client) Module() []byte { return c.module }
