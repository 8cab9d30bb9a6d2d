package integrity

import (
	"bytes"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"warden/internal/crypto"
	"warden/internal/domain"
	"warden/internal/protocol/warden"
	"warden/internal/util/memzero"
)

// randomProbeSize is the nonce length of a randomized probe, before hex.
const randomProbeSize = 8

// Stage is the position of a connection in the warden exchange.
type Stage uint8

const (
	StageNew Stage = iota
	StageModuleAnnounced
	StageModuleTransferred
	StageChallengeSent
	StageVerified
	StageFailed
	StageClosed
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageModuleAnnounced:
		return "module_announced"
	case StageModuleTransferred:
		return "module_transferred"
	case StageChallengeSent:
		return "challenge_sent"
	case StageVerified:
		return "verified"
	case StageFailed:
		return "failed"
	case StageClosed:
		return "closed"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Deps are the collaborators of an Engine. Conn, Modules and Penalizer are
// required; the rest default to no-op or system implementations.
type Deps struct {
	Conn      domain.Connection
	Modules   domain.ModuleSelector
	Penalizer domain.Penalizer
	Logger    *zap.Logger
	Observer  Observer
	Now       func() time.Time
	// Jitter returns a duration in [0, max).
	Jitter func(max time.Duration) time.Duration
	// Rand sources randomized probes.
	Rand io.Reader
}

// Engine is the integrity state of one connection.
type Engine struct {
	cfg       Config
	conn      domain.Connection
	modules   domain.ModuleSelector
	penalizer domain.Penalizer
	log       *zap.Logger
	observer  Observer
	now       func() time.Time
	rand      io.Reader

	stage            Stage
	module           domain.Module
	inKey, outKey    domain.DirectionalKey
	channel          *crypto.Channel
	sched            *Scheduler
	initialized      bool
	handshakeElapsed time.Duration
	checksVerified   uint64
	failure          error
}

// New constructs an engine for one connection.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Conn == nil:
		return nil, errors.New("connection required")
	case deps.Modules == nil:
		return nil, errors.New("module selector required")
	case deps.Penalizer == nil:
		return nil, errors.New("penalizer required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Jitter == nil {
		deps.Jitter = uniformJitter
	}
	if deps.Rand == nil {
		deps.Rand = crand.Reader
	}

	return &Engine{
		cfg:       cfg,
		conn:      deps.Conn,
		modules:   deps.Modules,
		penalizer: deps.Penalizer,
		log:       deps.Logger.Named("warden").With(zap.Uint32("account", deps.Conn.AccountID())),
		observer:  deps.Observer,
		now:       deps.Now,
		rand:      deps.Rand,
		sched:     NewScheduler(cfg, deps.Jitter),
	}, nil
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// Init keys the channel from the session secret and announces the module for
// platform. The secret is not retained.
func (e *Engine) Init(secret []byte, platform domain.Platform) error {
	switch {
	case e.stage >= StageFailed:
		return ErrTerminated
	case e.stage != StageNew:
		return ErrInitialized
	}

	m, err := e.modules.SelectModule(platform)
	if err != nil {
		e.stage = StageFailed
		e.failure = Wrap(KindUnsupportedPlatform, fmt.Sprintf("platform %q", platform), err)
		e.log.Info("rejecting client", zap.String("platform", string(platform)), zap.Error(err))
		e.observer.Failed(KindUnsupportedPlatform, "")
		return e.failure
	}
	channel, err := crypto.NewChannel(m.Suite)
	if err != nil {
		e.stage = StageFailed
		e.failure = Wrap(KindUnsupportedPlatform, fmt.Sprintf("module %q", m.Name), err)
		return e.failure
	}

	e.module = m
	e.channel = channel
	e.log = e.log.With(zap.String("module", m.Name))
	e.inKey, e.outKey = crypto.DeriveDirectionalKeys(secret)
	if err := e.activate(); err != nil {
		return err
	}
	e.log.Debug("session keys derived",
		zap.String("suite", string(channel.Suite())),
		zap.String("inbound", crypto.KeyFingerprint(e.inKey)),
		zap.String("outbound", crypto.KeyFingerprint(e.outKey)),
	)

	use := warden.ModuleUse{ID: m.ID, Key: m.Key, Size: m.CompressedSize()}
	if err := e.send(warden.EncodeModuleUse(use)); err != nil {
		return err
	}
	e.stage = StageModuleAnnounced
	e.observer.ModuleAnnounced(m)
	e.log.Debug("module announced", zap.Stringer("id", m.ID), zap.Uint32("size", use.Size))

	if e.cfg.EagerChallenge {
		return e.sendChallenge()
	}
	return nil
}

// HandleData decrypts and processes one client frame. frame is not modified.
func (e *Engine) HandleData(frame []byte) error {
	switch {
	case e.stage >= StageFailed:
		return ErrTerminated
	case e.stage == StageNew:
		return ErrNotInitialized
	}

	buf := bytes.Clone(frame)
	if err := e.channel.Decrypt(buf); err != nil {
		return e.fail(Wrap(KindMalformed, "decrypt", err))
	}
	msg, err := warden.DecodeClientMessage(buf)
	if err != nil {
		return e.fail(Wrap(KindMalformed, "decode frame", err))
	}

	switch msg.Opcode {
	case warden.CMSGModuleMissing:
		return e.handleModuleMissing(msg.Body)
	case warden.CMSGModuleOK:
		return e.handleModuleOK(msg.Body)
	case warden.CMSGHashResult:
		return e.handleHashResult(msg.Body)
	case warden.CMSGCheatChecksResult:
		return e.handleCheckResult(msg.Body)
	case warden.CMSGMemChecksResult:
		e.log.Debug("memory check result ignored", zap.Int("size", len(msg.Body)))
		return nil
	case warden.CMSGModuleFailed:
		e.log.Warn("client failed to load module")
		return nil
	default:
		return e.fail(NewError(KindMalformed, fmt.Sprintf("unknown opcode %s", msg.Opcode)))
	}
}

func (e *Engine) handleModuleMissing(body []byte) error {
	if len(body) != 0 {
		return e.fail(Wrap(KindMalformed, "module missing", warden.ErrTrailingBytes))
	}
	switch e.stage {
	case StageModuleAnnounced, StageModuleTransferred, StageChallengeSent:
	default:
		return e.fail(e.outOfStage(warden.CMSGModuleMissing))
	}

	chunks := warden.EncodeModuleChunks(e.module.Payload)
	for _, c := range chunks {
		if err := e.send(c); err != nil {
			return err
		}
	}
	if e.stage == StageModuleAnnounced {
		e.stage = StageModuleTransferred
	}
	e.observer.ModuleTransferred(e.module, len(chunks))
	e.log.Debug("module transferred", zap.Int("chunks", len(chunks)))
	return nil
}

func (e *Engine) handleModuleOK(body []byte) error {
	if len(body) != 0 {
		return e.fail(Wrap(KindMalformed, "module ok", warden.ErrTrailingBytes))
	}
	switch {
	case e.stage == StageModuleAnnounced || e.stage == StageModuleTransferred:
		return e.sendChallenge()
	case e.stage == StageChallengeSent && e.cfg.EagerChallenge:
		return nil
	default:
		return e.fail(e.outOfStage(warden.CMSGModuleOK))
	}
}

func (e *Engine) sendChallenge() error {
	if err := e.send(warden.EncodeHashRequest(e.module.Seed)); err != nil {
		return err
	}
	e.stage = StageChallengeSent
	e.log.Debug("hash challenge sent", zap.Stringer("seed", e.module.Seed))
	return nil
}

func (e *Engine) handleHashResult(body []byte) error {
	if e.stage != StageChallengeSent {
		return e.fail(e.outOfStage(warden.CMSGHashResult))
	}
	digest, err := warden.DecodeHashResult(body)
	if err != nil {
		return e.fail(Wrap(KindMalformed, "hash result", err))
	}
	if !warden.VerifyHashResult(e.module.Seed, digest) {
		return e.fail(NewError(KindChallengeMismatch, "hash result does not match seed transform"))
	}

	// The client switches to the transformed keys right after sending.
	in, out := warden.Transform(e.module.Seed)
	if err := e.rotate(in, out); err != nil {
		return err
	}
	e.initialized = true
	e.stage = StageVerified
	e.sched.Start()
	e.observer.ChallengeVerified(e.module)
	e.log.Info("client verified",
		zap.String("inbound", crypto.KeyFingerprint(e.inKey)),
		zap.String("outbound", crypto.KeyFingerprint(e.outKey)),
	)
	return nil
}

func (e *Engine) handleCheckResult(body []byte) error {
	if e.stage != StageVerified {
		return e.fail(e.outOfStage(warden.CMSGCheatChecksResult))
	}
	pending, ok := e.sched.Pending()
	if !ok {
		return e.fail(Wrap(KindMalformed, "unsolicited check result", ErrNoPendingCheck))
	}
	got, err := warden.DecodeCheckResult(body)
	if err != nil {
		return e.fail(Wrap(KindMalformed, "check result", err))
	}
	if bad := warden.Mismatches(pending.Want, got); bad != nil {
		_, _ = e.sched.Resolve(CycleFailed)
		return e.fail(NewError(KindCheckMismatch, "check result mismatch: "+strings.Join(bad, ",")))
	}

	p, err := e.sched.Resolve(CycleVerified)
	if err != nil {
		return err
	}
	e.checksVerified++
	latency := e.now().Sub(p.IssuedAt)
	e.observer.CheckVerified(latency)
	e.log.Debug("check verified", zap.Duration("latency", latency), zap.Duration("next_in", e.sched.NextCheckIn()))
	return nil
}

// Tick advances the handshake deadline and the check timers by elapsed.
func (e *Engine) Tick(elapsed time.Duration) error {
	switch {
	case e.stage >= StageFailed:
		return ErrTerminated
	case e.stage == StageNew:
		return nil
	}

	if !e.initialized {
		if e.cfg.HandshakeTimeout <= 0 {
			return nil
		}
		e.handshakeElapsed += elapsed
		if e.handshakeElapsed > e.cfg.HandshakeTimeout {
			return e.fail(NewError(KindHandshakeTimeout, fmt.Sprintf("not verified after %s in stage %s", e.handshakeElapsed, e.stage)))
		}
		return nil
	}

	switch e.sched.Advance(elapsed) {
	case ActionIssue:
		return e.requestChecks()
	case ActionTimeout:
		waited := e.sched.ResponseElapsed()
		_, _ = e.sched.Resolve(CycleTimedOut)
		return e.fail(NewError(KindCheckTimeout, fmt.Sprintf("no check result after %s", waited)))
	}
	return nil
}

func (e *Engine) requestChecks() error {
	probe, err := e.probe()
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	frame, err := warden.EncodeCheckRequest(probe)
	if err != nil {
		return fmt.Errorf("check request: %w", err)
	}
	if err := e.send(frame); err != nil {
		return err
	}
	if err := e.sched.Issue(PendingCheck{
		IssuedAt: e.now(),
		Probe:    probe,
		Want:     warden.ExpectedCheckResult(probe, e.module.Checks.Magic),
	}); err != nil {
		return err
	}
	e.observer.CheckIssued()
	e.log.Debug("check requested", zap.Int("probe_len", len(probe)))
	return nil
}

func (e *Engine) probe() ([]byte, error) {
	if !e.module.Checks.RandomizeProbe {
		return []byte(e.module.Checks.Probe), nil
	}
	var nonce [randomProbeSize]byte
	if _, err := io.ReadFull(e.rand, nonce[:]); err != nil {
		return nil, err
	}
	return []byte(hex.EncodeToString(nonce[:])), nil
}

// send encrypts frame in place and hands it to the connection.
func (e *Engine) send(frame []byte) error {
	op := warden.ServerOpcode(frame[0])
	if err := e.channel.Encrypt(frame); err != nil {
		return Wrap(KindTransport, "encrypt "+op.String(), err)
	}
	if err := e.conn.SendFrame(frame); err != nil {
		return Wrap(KindTransport, "send "+op.String(), err)
	}
	return nil
}

func (e *Engine) activate() error {
	if err := e.channel.Activate(crypto.Inbound, e.inKey); err != nil {
		return err
	}
	return e.channel.Activate(crypto.Outbound, e.outKey)
}

func (e *Engine) rotate(in, out domain.DirectionalKey) error {
	memzero.Zero(e.inKey[:], e.outKey[:])
	e.inKey, e.outKey = in, out
	return e.activate()
}

func (e *Engine) outOfStage(op warden.ClientOpcode) *Error {
	return NewError(KindMalformed, fmt.Sprintf("%s in stage %s", op, e.stage))
}

// fail ends the session and applies the penalty.
func (e *Engine) fail(err *Error) error {
	e.stage = StageFailed
	e.failure = err
	e.sched.Abort()

	penalty := e.penalizer.ApplyPenalty(err)
	e.log.Warn("integrity verification failed",
		zap.Stringer("kind", err.Kind),
		zap.Error(err),
		zap.String("penalty", penalty),
	)
	e.observer.Failed(err.Kind, penalty)
	return err
}

// Close wipes key material. The connection itself is left to the caller.
func (e *Engine) Close() {
	memzero.Zero(e.inKey[:], e.outKey[:])
	e.channel = nil
	if e.stage < StageFailed {
		e.sched.Abort()
	}
	e.stage = StageClosed
}

// Stage reports the exchange position.
func (e *Engine) Stage() Stage { return e.stage }

// Initialized reports whether the challenge has been verified.
func (e *Engine) Initialized() bool { return e.initialized }

// Failure returns the error that ended the session, if any.
func (e *Engine) Failure() error { return e.failure }

// Snapshot is a diagnostic view of an Engine.
type Snapshot struct {
	Stage          Stage
	Cycle          CycleState
	Module         string
	ModuleID       string
	Suite          domain.CipherSuite
	InboundKey     string
	OutboundKey    string
	Initialized    bool
	ChecksVerified uint64
	Failure        string
}

// Snapshot reports the current state with keys reduced to fingerprints.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Stage:          e.stage,
		Cycle:          e.sched.State(),
		Initialized:    e.initialized,
		ChecksVerified: e.checksVerified,
	}
	if e.stage != StageNew && e.module.Name != "" {
		s.Module = e.module.Name
		s.ModuleID = e.module.ID.String()
		s.Suite = e.module.Suite
	}
	if e.channel != nil {
		s.InboundKey = crypto.KeyFingerprint(e.inKey)
		s.OutboundKey = crypto.KeyFingerprint(e.outKey)
	}
	if e.failure != nil {
		s.Failure = e.failure.Error()
	}
	return s
}
