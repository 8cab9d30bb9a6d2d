package ws

import (
	"fmt"
	"strings"
	"sync"
)

// Policy is the server's reaction to a failed verification.
type Policy string

const (
	PolicyLog  Policy = "log"
	PolicyKick Policy = "kick"
	PolicyBan  Policy = "ban"
)

// ParsePolicy accepts the names above, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyLog, PolicyKick, PolicyBan:
		return p, nil
	default:
		return "", fmt.Errorf("unknown penalty policy %q", s)
	}
}

// Description is the penalty text reported to the engine.
func (p Policy) Description() string {
	switch p {
	case PolicyKick:
		return "Kick"
	case PolicyBan:
		return "Ban"
	default:
		return "None"
	}
}

// Disconnects reports whether the policy ends the connection.
func (p Policy) Disconnects() bool { return p == PolicyKick || p == PolicyBan }

// BanList records accounts banned for failed verification.
type BanList struct {
	mu   sync.RWMutex
	bans map[uint32]string
}

func NewBanList() *BanList { return &BanList{bans: make(map[uint32]string)} }

func (b *BanList) Ban(account uint32, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bans[account] = reason
}

func (b *BanList) Banned(account uint32) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.bans[account]
	return r, ok
}

func (b *BanList) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bans)
}

// penalty applies a Policy to one connection.
type penalty struct {
	policy  Policy
	bans    *BanList
	account uint32
	applied bool
}

func (p *penalty) ApplyPenalty(reason error) string {
	p.applied = true
	if p.policy == PolicyBan {
		p.bans.Ban(p.account, reason.Error())
	}
	return p.policy.Description()
}

// disconnect reports whether the connection must now be closed.
func (p *penalty) disconnect() bool { return p.applied && p.policy.Disconnects() }
