package crypto_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"warden/internal/crypto"
	"warden/internal/domain"
)

// pair returns a server channel and the matching client channel.
func pair(t *testing.T, suite domain.CipherSuite) (server, client *crypto.Channel) {
	t.Helper()
	in, out := crypto.DeriveDirectionalKeys(sequentialSecret())

	var err error
	if server, err = crypto.NewChannel(suite); err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	if client, err = crypto.NewChannel(suite); err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	mustActivate(t, server, crypto.Inbound, in)
	mustActivate(t, server, crypto.Outbound, out)
	// The client sends with the server's inbound key.
	mustActivate(t, client, crypto.Outbound, in)
	mustActivate(t, client, crypto.Inbound, out)
	return server, client
}

func mustActivate(t *testing.T, c *crypto.Channel, dir crypto.Direction, key domain.DirectionalKey) {
	t.Helper()
	if err := c.Activate(dir, key); err != nil {
		t.Fatalf("Activate %s: %v", dir, err)
	}
}

func TestChannel_RoundTrip(t *testing.T) {
	for _, suite := range []domain.CipherSuite{domain.SuiteRC4, domain.SuiteChaCha20} {
		t.Run(string(suite), func(t *testing.T) {
			server, client := pair(t, suite)

			for _, msg := range []string{"module use", "", "hash request with seed", "x"} {
				buf := []byte(msg)
				if err := server.Encrypt(buf); err != nil {
					t.Fatalf("Encrypt: %v", err)
				}
				if len(msg) > 4 && bytes.Equal(buf, []byte(msg)) {
					t.Fatalf("ciphertext equals plaintext for %q", msg)
				}
				if err := client.Decrypt(buf); err != nil {
					t.Fatalf("Decrypt: %v", err)
				}
				if string(buf) != msg {
					t.Fatalf("got %q, want %q", buf, msg)
				}
			}

			reply := []byte("hash result")
			_ = client.Encrypt(reply)
			_ = server.Decrypt(reply)
			if string(reply) != "hash result" {
				t.Fatalf("client->server got %q", reply)
			}
		})
	}
}

func TestChannel_WrongDirectionKeyGarbles(t *testing.T) {
	in, out := crypto.DeriveDirectionalKeys(sequentialSecret())
	sender, _ := crypto.NewChannel(domain.SuiteRC4)
	wrong, _ := crypto.NewChannel(domain.SuiteRC4)
	mustActivate(t, sender, crypto.Outbound, out)
	mustActivate(t, wrong, crypto.Inbound, in)

	msg := []byte("cheat checks request: Test string!")
	buf := append([]byte(nil), msg...)
	_ = sender.Encrypt(buf)
	_ = wrong.Decrypt(buf)
	if bytes.Equal(buf, msg) {
		t.Fatal("decrypting with the other direction's key recovered the plaintext")
	}
}

func TestChannel_KeystreamContinuesAcrossCalls(t *testing.T) {
	server, _ := pair(t, domain.SuiteRC4)
	other, _ := pair(t, domain.SuiteRC4)

	whole := []byte("abcdefghijklmnop")
	_ = server.Encrypt(whole)

	first, second := []byte("abcdefgh"), []byte("ijklmnop")
	_ = other.Encrypt(first)
	_ = other.Encrypt(second)
	if !bytes.Equal(whole, append(first, second...)) {
		t.Fatal("split encryption must equal one-shot encryption")
	}
}

func TestChannel_RC4KnownVector(t *testing.T) {
	in, _ := crypto.DeriveDirectionalKeys(sequentialSecret())
	c, _ := crypto.NewChannel("")
	if c.Suite() != domain.SuiteRC4 {
		t.Fatalf("default suite: got %q", c.Suite())
	}
	mustActivate(t, c, crypto.Inbound, in)

	buf, _ := hex.DecodeString("054d808d2c77d905c41a6380ec08586afe")
	_ = c.Decrypt(buf)
	if got := hex.EncodeToString(buf); got != "3dcc6758073fe0ee62357dfc7a0b4977e6" {
		t.Fatalf("rc4 output: got %s", got)
	}
}

func TestChannel_ReactivationRestartsKeystream(t *testing.T) {
	key := domain.DirectionalKey{1, 2, 3}
	c, _ := crypto.NewChannel(domain.SuiteChaCha20)
	mustActivate(t, c, crypto.Outbound, key)

	a := make([]byte, 8)
	_ = c.Encrypt(a)
	mustActivate(t, c, crypto.Outbound, key)
	b := make([]byte, 8)
	_ = c.Encrypt(b)
	if !bytes.Equal(a, b) {
		t.Fatal("re-activating with the same key must restart the keystream")
	}
}

func TestChannel_Errors(t *testing.T) {
	if _, err := crypto.NewChannel("des"); !errors.Is(err, crypto.ErrUnknownSuite) {
		t.Fatalf("want ErrUnknownSuite, got %v", err)
	}
	c, _ := crypto.NewChannel(domain.SuiteRC4)
	if err := c.Encrypt([]byte("x")); !errors.Is(err, crypto.ErrInactive) {
		t.Fatalf("want ErrInactive, got %v", err)
	}
}
