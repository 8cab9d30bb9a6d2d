// Package metrics exports integrity engine events to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"warden/internal/domain"
	"warden/internal/services/integrity"
)

const namespace = "warden"

// Recorder implements integrity.Observer on top of Prometheus collectors.
// One Recorder is shared by every connection.
type Recorder struct {
	Modules      *prometheus.CounterVec // module announcements and transfers by module and event
	Verified     *prometheus.CounterVec // verified challenges by module
	ChecksIssued prometheus.Counter     // check requests sent
	CheckLatency prometheus.Histogram   // time from request to verified result
	Failures     *prometheus.CounterVec // failures by kind and penalty
	ChunksSent   prometheus.Counter     // MODULE_CACHE frames
	Connections  prometheus.Gauge       // engines currently running
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		Modules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_events_total",
			Help:      "Module announcements and transfers.",
		}, []string{"module", "event"}),
		Verified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_verified_total",
			Help:      "Clients that passed the seed challenge.",
		}, []string{"module"}),
		ChecksIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_issued_total",
			Help:      "Integrity check requests sent.",
		}),
		CheckLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_latency_seconds",
			Help:      "Time between a check request and its verified result.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Integrity failures by kind and penalty applied.",
		}, []string{"kind", "penalty"}),
		ChunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_chunks_sent_total",
			Help:      "MODULE_CACHE frames sent.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Connections currently hosting an engine.",
		}),
	}
	for _, c := range []prometheus.Collector{
		r.Modules, r.Verified, r.ChecksIssued, r.CheckLatency, r.Failures, r.ChunksSent, r.Connections,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ModuleAnnounced(m domain.Module) {
	r.Modules.WithLabelValues(m.Name, "announced").Inc()
}

func (r *Recorder) ModuleTransferred(m domain.Module, chunks int) {
	r.Modules.WithLabelValues(m.Name, "transferred").Inc()
	r.ChunksSent.Add(float64(chunks))
}

func (r *Recorder) ChallengeVerified(m domain.Module) {
	r.Verified.WithLabelValues(m.Name).Inc()
}

func (r *Recorder) CheckIssued() { r.ChecksIssued.Inc() }

func (r *Recorder) CheckVerified(latency time.Duration) {
	r.CheckLatency.Observe(latency.Seconds())
}

func (r *Recorder) Failed(kind integrity.ErrKind, penalty string) {
	if penalty == "" {
		penalty = "none"
	}
	r.Failures.WithLabelValues(kind.String(), penalty).Inc()
}

// ConnectionOpened and ConnectionClosed track live engines.
func (r *Recorder) ConnectionOpened() { r.Connections.Inc() }
func (r *Recorder) ConnectionClosed() { r.Connections.Dec() }

var _ integrity.Observer = (*Recorder)(nil)
