package ws

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"warden/internal/domain"
	"warden/internal/services/integrity"
)

const (
	defaultTickInterval = time.Second
	defaultWriteTimeout = 10 * time.Second
	inboundQueue        = 16
)

type HandlerConfig struct {
	Integrity integrity.Config
	// TickInterval is how often engines are advanced.
	TickInterval time.Duration
	WriteTimeout time.Duration
	Policy       Policy
	// AdmissionRate limits upgrades per remote IP; zero disables limiting.
	AdmissionRate  rate.Limit
	AdmissionBurst int
	Logger         *zap.Logger
	Observer       integrity.Observer
}

// connectionTracker is implemented by observers that count live connections.
type connectionTracker interface {
	ConnectionOpened()
	ConnectionClosed()
}

type Handler struct {
	cfg       HandlerConfig
	modules   domain.ModuleSelector
	sessions  SessionResolver
	bans      *BanList
	admission *admission
	log       *zap.Logger
	upgrader  websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

func NewHandler(modules domain.ModuleSelector, sessions SessionResolver, bans *BanList, cfg HandlerConfig) (*Handler, error) {
	if err := cfg.Integrity.Validate(); err != nil {
		return nil, err
	}
	if modules == nil || sessions == nil {
		return nil, errors.New("module selector and session resolver required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyKick
	}
	if cfg.AdmissionBurst <= 0 {
		cfg.AdmissionBurst = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Observer == nil {
		cfg.Observer = integrity.NopObserver{}
	}
	if bans == nil {
		bans = NewBanList()
	}

	return &Handler{
		cfg:       cfg,
		modules:   modules,
		sessions:  sessions,
		bans:      bans,
		admission: newAdmission(cfg.AdmissionRate, cfg.AdmissionBurst),
		log:       cfg.Logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		quit: make(chan struct{}),
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.Handle(w, r) }

// Handle upgrades GET /warden?account=<id>&platform=<p> and runs the engine.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.admission.Allow(remoteIP(r)) {
		http.Error(w, "rate limit", http.StatusTooManyRequests)
		return
	}
	q := r.URL.Query()
	account64, err := strconv.ParseUint(q.Get("account"), 10, 32)
	if err != nil {
		http.Error(w, "missing account", http.StatusBadRequest)
		return
	}
	account := uint32(account64)
	platform := domain.Platform(q.Get("platform"))
	if platform == "" {
		http.Error(w, "missing platform", http.StatusBadRequest)
		return
	}
	if _, banned := h.bans.Banned(account); banned {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	secret, ok := h.sessions.Secret(account)
	if !ok {
		http.Error(w, ErrUnknownAccount.Error(), http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", zap.Uint32("account", account), zap.Error(err))
		return
	}
	h.wg.Add(1)
	defer h.wg.Done()
	h.serve(conn, account, platform, secret)
}

func (h *Handler) serve(conn *websocket.Conn, account uint32, platform domain.Platform, secret []byte) {
	log := h.log.With(zap.Uint32("account", account), zap.String("platform", string(platform)))
	wc := &wsConn{conn: conn, account: account, writeTimeout: h.cfg.WriteTimeout}
	pen := &penalty{policy: h.cfg.Policy, bans: h.bans, account: account}

	eng, err := integrity.New(h.cfg.Integrity, integrity.Deps{
		Conn:      wc,
		Modules:   h.modules,
		Penalizer: pen,
		Logger:    h.cfg.Logger,
		Observer:  h.cfg.Observer,
	})
	if err != nil {
		log.Error("engine setup failed", zap.Error(err))
		wc.close(websocket.CloseInternalServerErr, "")
		return
	}
	defer eng.Close()

	if t, ok := h.cfg.Observer.(connectionTracker); ok {
		t.ConnectionOpened()
		defer t.ConnectionClosed()
	}

	if err := eng.Init(secret, platform); err != nil {
		log.Info("session rejected", zap.Error(err))
		wc.close(websocket.ClosePolicyViolation, "")
		return
	}

	done := make(chan struct{})
	defer close(done)
	frames := make(chan []byte, inboundQueue)
	readErr := make(chan error, 1)
	go readLoop(conn, frames, readErr, done)

	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		var err error
		select {
		case frame := <-frames:
			err = eng.HandleData(frame)
		case now := <-ticker.C:
			err = eng.Tick(now.Sub(last))
			last = now
		case rerr := <-readErr:
			if !websocket.IsCloseError(rerr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read failed", zap.Error(rerr))
			}
			_ = conn.Close()
			return
		case <-h.quit:
			wc.close(websocket.CloseGoingAway, "")
			return
		}

		switch {
		case err == nil, errors.Is(err, integrity.ErrTerminated):
		case integrity.IsKind(err, integrity.KindTransport):
			log.Debug("send failed", zap.Error(err))
			_ = conn.Close()
			return
		case pen.disconnect():
			// No reason text: the client learns nothing about what was detected.
			wc.close(websocket.ClosePolicyViolation, "")
			return
		}
	}
}

func readLoop(conn *websocket.Conn, frames chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		select {
		case frames <- data:
		case <-done:
			return
		}
	}
}

// Close ends every served connection and waits for their goroutines.
func (h *Handler) Close() {
	h.quitOnce.Do(func() { close(h.quit) })
	h.wg.Wait()
}

// Bans exposes the handler's ban list.
func (h *Handler) Bans() *BanList { return h.bans }

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
