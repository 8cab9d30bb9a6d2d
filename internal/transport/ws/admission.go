package ws

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// admissionIdle is how long an address may stay silent before its limiter
// is dropped.
const admissionIdle = 10 * time.Minute

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// admission limits connection attempts per remote address.
type admission struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	visitors  map[string]*visitor
}

func newAdmission(limit rate.Limit, burst int) *admission {
	return &admission{
		limit:    limit,
		burst:    burst,
		idle:     admissionIdle,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow consumes one token for addr. A zero limit admits everything.
func (a *admission) Allow(addr string) bool {
	if a.limit == 0 {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if now.Sub(a.lastSweep) >= a.idle {
		a.sweep(now)
	}
	v, ok := a.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(a.limit, a.burst)}
		a.visitors[addr] = v
	}
	v.seen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for at least a.idle. Caller holds a.mu.
func (a *admission) sweep(now time.Time) {
	for addr, v := range a.visitors {
		if now.Sub(v.seen) >= a.idle {
			delete(a.visitors, addr)
		}
	}
	a.lastSweep = now
}

func (a *admission) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.visitors)
}
