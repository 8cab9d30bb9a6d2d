package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"warden/internal/catalog"
	"warden/internal/metrics"
	"warden/internal/transport/ws"
)

// Wire bundles the server's dependency graph.
type Wire struct {
	Logger   *zap.Logger
	Catalog  *catalog.Catalog
	Sessions *ws.SessionTable
	Bans     *ws.BanList
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder
	Handler  *ws.Handler
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, logger *zap.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := catalog.LoadManifest(cfg.Manifest, cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	sessions, err := ws.LoadSessionTable(cfg.Sessions)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, err
	}

	policy, _ := ws.ParsePolicy(cfg.Policy)
	bans := ws.NewBanList()
	handler, err := ws.NewHandler(cat, sessions, bans, ws.HandlerConfig{
		Integrity:      cfg.Integrity(),
		TickInterval:   cfg.TickInterval,
		Policy:         policy,
		AdmissionRate:  rate.Limit(cfg.AdmissionRate),
		AdmissionBurst: cfg.AdmissionBurst,
		Logger:         logger,
		Observer:       rec,
	})
	if err != nil {
		return nil, err
	}

	for _, m := range cat.Modules() {
		logger.Info("module loaded",
			zap.String("module", m.Name),
			zap.Stringer("id", m.ID),
			zap.Uint32("size", m.CompressedSize()),
			zap.String("cipher", string(m.Suite)),
		)
	}

	return &Wire{
		Logger:   logger,
		Catalog:  cat,
		Sessions: sessions,
		Bans:     bans,
		Registry: reg,
		Metrics:  rec,
		Handler:  handler,
	}, nil
}

// Mux routes the warden endpoint and the metrics exposition.
func (w *Wire) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/warden", w.Handler)
	mux.Handle("/metrics", promhttp.HandlerFor(w.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	return mux
}
