package integrity

import (
	"errors"
	"fmt"
	"time"

	"warden/internal/protocol/warden"
)

// CycleState is the position of the check cycle.
type CycleState uint8

const (
	CycleIdle CycleState = iota
	CycleRequestSent
	CycleVerified
	CycleFailed
	CycleTimedOut
)

func (s CycleState) String() string {
	switch s {
	case CycleIdle:
		return "idle"
	case CycleRequestSent:
		return "request_sent"
	case CycleVerified:
		return "verified"
	case CycleFailed:
		return "failed"
	case CycleTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("cycle(%d)", uint8(s))
	}
}

func (s CycleState) terminal() bool { return s == CycleFailed || s == CycleTimedOut }

// Action tells the engine what a tick requires.
type Action uint8

const (
	ActionNone Action = iota
	ActionIssue
	ActionTimeout
)

var (
	ErrRequestOutstanding = errors.New("check request already outstanding")
	ErrNoPendingCheck     = errors.New("no check request outstanding")
	ErrSchedulerStopped   = errors.New("check scheduler stopped")
)

// PendingCheck is the single outstanding check request.
type PendingCheck struct {
	IssuedAt time.Time
	Probe    []byte
	Want     warden.CheckResult
	Timeout  time.Duration
}

// Scheduler decides when check requests are issued and when the outstanding
// one has timed out. It holds at most one PendingCheck.
type Scheduler struct {
	interval time.Duration
	jitter   time.Duration
	timeout  time.Duration
	randDur  func(max time.Duration) time.Duration

	armed     bool
	state     CycleState
	countdown time.Duration
	elapsed   time.Duration
	pending   *PendingCheck
}

// NewScheduler returns an unarmed scheduler. randDur draws the jitter added
// to each interval; nil disables jitter.
func NewScheduler(cfg Config, randDur func(max time.Duration) time.Duration) *Scheduler {
	return &Scheduler{
		interval: cfg.CheckInterval,
		jitter:   cfg.CheckJitter,
		timeout:  cfg.RequestTimeout,
		randDur:  randDur,
	}
}

// Start arms the scheduler; the first request fires after one interval.
func (s *Scheduler) Start() {
	if s.state.terminal() {
		return
	}
	s.armed = true
	s.state = CycleIdle
	s.countdown = s.next()
}

func (s *Scheduler) next() time.Duration {
	d := s.interval
	if s.jitter > 0 && s.randDur != nil {
		d += s.randDur(s.jitter)
	}
	return d
}

// Advance moves the timers forward by elapsed.
func (s *Scheduler) Advance(elapsed time.Duration) Action {
	if !s.armed {
		return ActionNone
	}
	switch s.state {
	case CycleIdle:
		if elapsed >= s.countdown {
			s.countdown = 0
			return ActionIssue
		}
		s.countdown -= elapsed
	case CycleRequestSent:
		s.elapsed += elapsed
		if s.elapsed > s.pending.Timeout {
			return ActionTimeout
		}
	}
	return ActionNone
}

// Issue records p as the outstanding request.
func (s *Scheduler) Issue(p PendingCheck) error {
	if s.pending != nil {
		return ErrRequestOutstanding
	}
	if !s.armed || s.state.terminal() {
		return ErrSchedulerStopped
	}
	if p.Timeout <= 0 {
		p.Timeout = s.timeout
	}
	s.pending = &p
	s.state = CycleRequestSent
	s.elapsed = 0
	return nil
}

// Resolve clears the outstanding request with outcome. CycleVerified
// schedules the next cycle; CycleFailed and CycleTimedOut stop the scheduler.
func (s *Scheduler) Resolve(outcome CycleState) (PendingCheck, error) {
	if s.pending == nil {
		return PendingCheck{}, ErrNoPendingCheck
	}
	switch outcome {
	case CycleVerified, CycleFailed, CycleTimedOut:
	default:
		return PendingCheck{}, fmt.Errorf("resolve: invalid outcome %s", outcome)
	}
	p := *s.pending
	s.pending = nil
	s.elapsed = 0

	if outcome == CycleVerified {
		s.state = CycleIdle
		s.countdown = s.next()
	} else {
		s.state = outcome
		s.armed = false
	}
	return p, nil
}

// Abort discards any outstanding request and stops the scheduler.
func (s *Scheduler) Abort() {
	s.pending = nil
	s.armed = false
	if !s.state.terminal() {
		s.state = CycleFailed
	}
}

// Pending returns the outstanding request, if any.
func (s *Scheduler) Pending() (PendingCheck, bool) {
	if s.pending == nil {
		return PendingCheck{}, false
	}
	return *s.pending, true
}

func (s *Scheduler) State() CycleState { return s.state }

// ResponseElapsed is the time the outstanding request has been waiting.
func (s *Scheduler) ResponseElapsed() time.Duration { return s.elapsed }

// NextCheckIn is the time left before the next request fires.
func (s *Scheduler) NextCheckIn() time.Duration { return s.countdown }
