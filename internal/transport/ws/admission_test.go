package ws

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestAdmission_LimitsPerAddress(t *testing.T) {
	a := newAdmission(rate.Every(time.Hour), 1)
	clock := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return clock }

	if !a.Allow("10.0.0.1") {
		t.Fatal("first attempt rejected")
	}
	if a.Allow("10.0.0.1") {
		t.Fatal("burst exceeded but admitted")
	}
	if !a.Allow("10.0.0.2") {
		t.Fatal("other address shares a bucket")
	}
}

func TestAdmission_EvictsIdleAddresses(t *testing.T) {
	a := newAdmission(rate.Every(time.Hour), 1)
	clock := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return clock }

	a.Allow("10.0.0.1")
	a.Allow("10.0.0.2")
	if a.Len() != 2 {
		t.Fatalf("tracked %d addresses, want 2", a.Len())
	}

	clock = clock.Add(admissionIdle / 2)
	a.Allow("10.0.0.3")
	if a.Len() != 3 {
		t.Fatalf("swept too early: %d", a.Len())
	}

	clock = clock.Add(admissionIdle)
	if !a.Allow("10.0.0.4") {
		t.Fatal("new address rejected")
	}
	if a.Len() != 1 {
		t.Fatalf("idle limiters kept: %d", a.Len())
	}
}

func TestAdmission_ZeroLimitAdmitsAll(t *testing.T) {
	a := newAdmission(0, 0)
	for i := 0; i < 5; i++ {
		if !a.Allow("10.0.0.1") {
			t.Fatal("zero limit rejected")
		}
	}
	if a.Len() != 0 {
		t.Fatal("zero limit must not track addresses")
	}
}
