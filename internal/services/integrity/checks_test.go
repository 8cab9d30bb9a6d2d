package integrity_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"warden/internal/services/integrity"
	"warden/internal/simclient"
)

func TestCheckCycle_Verified(t *testing.T) {
	now := time.Unix(1700000000, 0)
	f := newFixture(t, testConfig, testModule(), simclient.Options{}, func(d *integrity.Deps) {
		d.Now = func() time.Time { return now }
	})
	f.handshake(t)

	if err := f.eng.Tick(testConfig.CheckInterval - time.Second); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(f.conn.frames) != 0 {
		t.Fatal("check issued before the interval elapsed")
	}
	if err := f.eng.Tick(time.Second); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(f.conn.frames) != 1 {
		t.Fatalf("frames: got %d, want 1", len(f.conn.frames))
	}
	if f.eng.Snapshot().Cycle != integrity.CycleRequestSent {
		t.Fatalf("cycle: %s", f.eng.Snapshot().Cycle)
	}

	now = now.Add(2 * time.Second)
	if err := f.pump(t); err != nil {
		t.Fatalf("check result: %v", err)
	}
	snap := f.eng.Snapshot()
	if snap.Cycle != integrity.CycleIdle || snap.ChecksVerified != 1 {
		t.Fatalf("after verification: %+v", snap)
	}

	// The next cycle starts a full interval after verification.
	if err := f.eng.Tick(testConfig.CheckInterval - time.Nanosecond); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(f.conn.frames) != 0 {
		t.Fatal("next check issued early")
	}
	if err := f.eng.Tick(time.Nanosecond); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := f.pump(t); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if f.eng.Snapshot().ChecksVerified != 2 || f.client.ChecksAnswered() != 2 {
		t.Fatal("second cycle not verified")
	}
	if f.pen.calls != 0 {
		t.Fatalf("penalty calls: %d", f.pen.calls)
	}
}

func TestCheckCycle_SingleOutstandingRequest(t *testing.T) {
	cfg := testConfig
	cfg.RequestTimeout = time.Hour
	f := newFixture(t, cfg, testModule(), simclient.Options{IgnoreChecks: true})
	f.handshake(t)

	for i := 0; i < 10; i++ {
		if err := f.eng.Tick(cfg.CheckInterval); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}
	if len(f.conn.frames) != 1 {
		t.Fatalf("outstanding requests: got %d, want 1", len(f.conn.frames))
	}
}

func TestCheckCycle_Timeout(t *testing.T) {
	f := newFixture(t, testConfig, testModule(), simclient.Options{IgnoreChecks: true})
	f.handshake(t)

	if err := f.eng.Tick(testConfig.CheckInterval); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := f.pump(t); err != nil {
		t.Fatalf("pump: %v", err)
	}
	if err := f.eng.Tick(testConfig.RequestTimeout); err != nil {
		t.Fatalf("timeout bound is exclusive: %v", err)
	}

	err := f.eng.Tick(time.Millisecond)
	if !integrity.IsKind(err, integrity.KindCheckTimeout) {
		t.Fatalf("want KindCheckTimeout, got %v", err)
	}
	if f.pen.calls != 1 {
		t.Fatalf("penalty calls: got %d, want 1", f.pen.calls)
	}
	snap := f.eng.Snapshot()
	if snap.Cycle != integrity.CycleTimedOut || snap.Stage != integrity.StageFailed {
		t.Fatalf("after timeout: %+v", snap)
	}

	if err := f.eng.Tick(time.Hour); !errors.Is(err, integrity.ErrTerminated) {
		t.Fatalf("second Tick: %v", err)
	}
	if f.pen.calls != 1 {
		t.Fatalf("penalty re-invoked: %d", f.pen.calls)
	}
}

func TestCheckCycle_Mismatch(t *testing.T) {
	f := newFixture(t, testConfig, testModule(), simclient.Options{TamperChecks: true})
	f.handshake(t)

	if err := f.eng.Tick(testConfig.CheckInterval); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	err := f.pump(t)
	if !integrity.IsKind(err, integrity.KindCheckMismatch) {
		t.Fatalf("want KindCheckMismatch, got %v", err)
	}
	if f.pen.calls != 1 {
		t.Fatalf("penalty calls: %d", f.pen.calls)
	}
	if f.eng.Snapshot().Cycle != integrity.CycleFailed {
		t.Fatalf("cycle: %s", f.eng.Snapshot().Cycle)
	}
}

func TestCheckCycle_WrongMagic(t *testing.T) {
	f := newFixture(t, testConfig, testModule(), simclient.Options{Magic: 0xCAFEBABE})
	f.handshake(t)

	if err := f.eng.Tick(testConfig.CheckInterval); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := f.pump(t); !integrity.IsKind(err, integrity.KindCheckMismatch) {
		t.Fatalf("want KindCheckMismatch, got %v", err)
	}
}

func TestCheckCycle_UnsolicitedResult(t *testing.T) {
	f := newFixture(t, testConfig, testModule(), simclient.Options{})
	f.handshake(t)

	frame := f.client.Frame(append([]byte{2}, make([]byte, 36)...))
	if err := f.eng.HandleData(frame); !integrity.IsKind(err, integrity.KindMalformed) {
		t.Fatalf("want KindMalformed, got %v", err)
	}
	if f.pen.calls != 1 {
		t.Fatalf("penalty calls: %d", f.pen.calls)
	}
}

func TestCheckCycle_Jitter(t *testing.T) {
	cfg := testConfig
	cfg.CheckJitter = 10 * time.Second
	f := newFixture(t, cfg, testModule(), simclient.Options{}, func(d *integrity.Deps) {
		d.Jitter = func(max time.Duration) time.Duration { return 4 * time.Second }
	})
	f.handshake(t)

	if err := f.eng.Tick(cfg.CheckInterval); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(f.conn.frames) != 0 {
		t.Fatal("jitter not applied")
	}
	if err := f.eng.Tick(4 * time.Second); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(f.conn.frames) != 1 {
		t.Fatal("check not issued after interval plus jitter")
	}
}

func TestCheckCycle_RandomizedProbe(t *testing.T) {
	m := testModule()
	m.Checks.RandomizeProbe = true
	f := newFixture(t, testConfig, m, simclient.Options{}, func(d *integrity.Deps) {
		d.Rand = bytes.NewReader(bytes.Repeat([]byte{0xA5}, 64))
	})
	f.handshake(t)

	for i := 0; i < 2; i++ {
		if err := f.eng.Tick(testConfig.CheckInterval); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if err := f.pump(t); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	if f.eng.Snapshot().ChecksVerified != 2 {
		t.Fatal("randomized checks not verified")
	}
}
