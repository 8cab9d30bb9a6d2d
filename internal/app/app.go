package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 5 * time.Second

// Run serves the wired handlers on cfg.Addr until ctx is cancelled.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	w, err := NewWire(cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           w.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		w.Logger.Info("warden listening", zap.String("addr", cfg.Addr), zap.Int("modules", w.Catalog.Len()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		w.Handler.Close()
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err = srv.Shutdown(sctx)
	w.Handler.Close()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	w.Logger.Info("warden stopped")
	return err
}
