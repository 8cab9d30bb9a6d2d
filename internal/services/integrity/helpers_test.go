package integrity_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"warden/internal/catalog"
	"warden/internal/domain"
	"warden/internal/services/integrity"
	"warden/internal/simclient"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef01234567")

var testConfig = integrity.Config{
	RequestTimeout: 10 * time.Second,
	CheckInterval:  30 * time.Second,
}

var errLinkDown = errors.New("link down")

type recordingConn struct {
	frames [][]byte
	sent   int
	err    error
}

func (c *recordingConn) SendFrame(f []byte) error {
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, bytes.Clone(f))
	c.sent++
	return nil
}

func (c *recordingConn) AccountID() uint32 { return 42 }

func (c *recordingConn) drain() [][]byte {
	f := c.frames
	c.frames = nil
	return f
}

type countingPenalizer struct {
	calls   int
	reasons []error
}

func (p *countingPenalizer) ApplyPenalty(reason error) string {
	p.calls++
	p.reasons = append(p.reasons, reason)
	return "Kick"
}

type fixture struct {
	eng     *integrity.Engine
	conn    *recordingConn
	pen     *countingPenalizer
	client  *simclient.Client
	module  domain.Module
	catalog *catalog.Catalog
}

func testModule() domain.Module {
	payload := bytes.Repeat([]byte("module "), 172)[:1201]
	return catalog.NewModule("mac", payload, domain.ModuleKey{0x4F, 0x10}, "OSX")
}

func newFixture(t *testing.T, cfg integrity.Config, m domain.Module, opts simclient.Options, mutate ...func(*integrity.Deps)) *fixture {
	t.Helper()
	cat, err := catalog.New(m)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	f := &fixture{conn: &recordingConn{}, pen: &countingPenalizer{}, module: m, catalog: cat}
	deps := integrity.Deps{Conn: f.conn, Modules: cat, Penalizer: f.pen}
	for _, fn := range mutate {
		fn(&deps)
	}
	f.eng, err = integrity.New(cfg, deps)
	if err != nil {
		t.Fatalf("integrity.New: %v", err)
	}
	opts.Suite = m.Suite
	f.client, err = simclient.New(testSecret, opts)
	if err != nil {
		t.Fatalf("simclient.New: %v", err)
	}
	return f
}

// pump delivers server frames to the client and its replies back to the
// engine until neither side has anything left to say.
func (f *fixture) pump(t *testing.T) error {
	t.Helper()
	for len(f.conn.frames) > 0 {
		for _, frame := range f.conn.drain() {
			replies, err := f.client.Handle(frame)
			if err != nil {
				t.Fatalf("client: %v", err)
			}
			for _, r := range replies {
				if err := f.eng.HandleData(r); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (f *fixture) handshake(t *testing.T) {
	t.Helper()
	if err := f.eng.Init(testSecret, "OSX"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := f.pump(t); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if f.eng.Stage() != integrity.StageVerified {
		t.Fatalf("stage after handshake: %s", f.eng.Stage())
	}
}
