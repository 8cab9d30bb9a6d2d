package ws

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

var ErrUnknownAccount = errors.New("unknown account")

// SessionResolver returns the session secret negotiated at logon for account.
type SessionResolver interface {
	Secret(account uint32) ([]byte, bool)
}

// SessionTable is an in-memory SessionResolver.
type SessionTable struct {
	mu      sync.RWMutex
	secrets map[uint32][]byte
}

func NewSessionTable() *SessionTable {
	return &SessionTable{secrets: make(map[uint32][]byte)}
}

// Put stores a copy of secret for account.
func (t *SessionTable) Put(account uint32, secret []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.secrets[account] = append([]byte(nil), secret...)
}

// Secret returns a copy of the secret for account.
func (t *SessionTable) Secret(account uint32) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.secrets[account]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), s...), true
}

// Len reports the number of stored sessions.
func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.secrets)
}

type sessionFile struct {
	Sessions []struct {
		Account uint32 `json:"account"`
		Secret  string `json:"secret"`
	} `json:"sessions"`
}

// LoadSessionTable reads a JSON fixture of hex encoded session secrets.
func LoadSessionTable(path string) (*SessionTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f sessionFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	t := NewSessionTable()
	for _, s := range f.Sessions {
		secret, err := hex.DecodeString(s.Secret)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", s.Account, err)
		}
		if len(secret) == 0 {
			return nil, fmt.Errorf("account %d: empty secret", s.Account)
		}
		t.Put(s.Account, secret)
	}
	return t, nil
}
