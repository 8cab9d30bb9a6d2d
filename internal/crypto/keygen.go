package crypto

import (
	"crypto/sha1"

	"warden/internal/domain"
	"warden/internal/util/memzero"
)

// SessionKeyGenerator expands a session secret into a deterministic byte
// stream.
//
// The secret is split in halves; o1 and o2 are the SHA-1 digests of each half.
// Output is drawn from o0, refilled as SHA1(o1 || o0 || o2) whenever it is
// exhausted, starting from an all-zero o0.
type SessionKeyGenerator struct {
	o0, o1, o2 [sha1.Size]byte
	pos        int
}

// NewSessionKeyGenerator seeds a generator from secret. An empty secret is a
// caller error; it still yields a (useless) deterministic stream.
func NewSessionKeyGenerator(secret []byte) *SessionKeyGenerator {
	half := len(secret) / 2
	g := &SessionKeyGenerator{
		o1: sha1.Sum(secret[:half]),
		o2: sha1.Sum(secret[half:]),
	}
	g.fill()
	return g
}

// Read fills p with the next len(p) generator bytes. It never fails.
func (g *SessionKeyGenerator) Read(p []byte) (int, error) {
	for i := range p {
		if g.pos == len(g.o0) {
			g.fill()
		}
		p[i] = g.o0[g.pos]
		g.pos++
	}
	return len(p), nil
}

// Wipe clears the generator state.
func (g *SessionKeyGenerator) Wipe() {
	memzero.Zero(g.o0[:], g.o1[:], g.o2[:])
	g.pos = len(g.o0)
}

func (g *SessionKeyGenerator) fill() {
	h := sha1.New()
	h.Write(g.o1[:])
	h.Write(g.o0[:])
	h.Write(g.o2[:])
	h.Sum(g.o0[:0])
	g.pos = 0
}

// DeriveDirectionalKeys returns the client->server (inbound) and
// server->client (outbound) keys for a session, in that draw order.
func DeriveDirectionalKeys(secret []byte) (inbound, outbound domain.DirectionalKey) {
	g := NewSessionKeyGenerator(secret)
	defer g.Wipe()
	_, _ = g.Read(inbound[:])
	_, _ = g.Read(outbound[:])
	return inbound, outbound
}
