package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"warden/internal/domain"
	"warden/internal/metrics"
	"warden/internal/services/integrity"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := metrics.NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	m := domain.Module{Name: "mac"}

	r.ModuleAnnounced(m)
	r.ModuleTransferred(m, 3)
	r.ChallengeVerified(m)
	r.CheckIssued()
	r.CheckVerified(150 * time.Millisecond)
	r.Failed(integrity.KindCheckTimeout, "Kick")
	r.Failed(integrity.KindUnsupportedPlatform, "")
	r.ConnectionOpened()
	r.ConnectionOpened()
	r.ConnectionClosed()

	if got := testutil.ToFloat64(r.ChunksSent); got != 3 {
		t.Fatalf("chunks: %v", got)
	}
	if got := testutil.ToFloat64(r.Verified.WithLabelValues("mac")); got != 1 {
		t.Fatalf("verified: %v", got)
	}
	if got := testutil.ToFloat64(r.Failures.WithLabelValues("check_timeout", "Kick")); got != 1 {
		t.Fatalf("timeouts: %v", got)
	}
	if got := testutil.ToFloat64(r.Failures.WithLabelValues("unsupported_platform", "none")); got != 1 {
		t.Fatalf("rejections: %v", got)
	}
	if got := testutil.ToFloat64(r.Connections); got != 1 {
		t.Fatalf("connections: %v", got)
	}

	want := `
# HELP warden_checks_issued_total Integrity check requests sent.
# TYPE warden_checks_issued_total counter
warden_checks_issued_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "warden_checks_issued_total"); err != nil {
		t.Fatalf("exposition: %v", err)
	}
	if n := testutil.CollectAndCount(r.CheckLatency); n != 1 {
		t.Fatalf("latency series: %d", n)
	}
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := metrics.NewRecorder(reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := metrics.NewRecorder(reg); err == nil {
		t.Fatal("second registration must fail")
	}
}
