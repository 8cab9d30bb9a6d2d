package catalog

import (
	"crypto/md5"
	"errors"
	"fmt"

	"warden/internal/domain"
	"warden/internal/protocol/warden"
)

var (
	ErrModuleIDMismatch = errors.New("module id does not match payload digest")
	ErrEmptyPayload     = errors.New("module payload is empty")
	ErrNoPlatforms      = errors.New("module lists no platforms")
	ErrDuplicateName    = errors.New("duplicate module name")
)

// Catalog maps client platforms to modules. Safe for concurrent use.
type Catalog struct {
	modules []domain.Module
}

// NewModule builds an entry for payload with the reference seed and checks.
// The id is the MD5 digest of payload.
func NewModule(name string, payload []byte, key domain.ModuleKey, platforms ...domain.Platform) domain.Module {
	return domain.Module{
		Name:      name,
		Platforms: platforms,
		Key:       key,
		ID:        ModuleID(payload),
		Payload:   payload,
		Seed:      warden.DefaultSeed,
		Suite:     domain.SuiteRC4,
		Checks:    DefaultChecks(),
	}
}

// ModuleID returns the identity of a compressed payload.
func ModuleID(payload []byte) domain.ModuleID {
	return domain.ModuleID(md5.Sum(payload))
}

// DefaultChecks returns the check set answered by the reference Mac module.
func DefaultChecks() domain.CheckSet {
	return domain.CheckSet{Probe: warden.DefaultProbe, Magic: warden.DefaultMagic}
}

// New validates modules and returns a catalog over them. When two modules
// list the same platform the first one wins.
func New(modules ...domain.Module) (*Catalog, error) {
	seen := make(map[string]struct{}, len(modules))
	out := make([]domain.Module, 0, len(modules))
	for _, m := range modules {
		if err := validate(m); err != nil {
			return nil, fmt.Errorf("module %q: %w", m.Name, err)
		}
		if _, dup := seen[m.Name]; dup {
			return nil, fmt.Errorf("module %q: %w", m.Name, ErrDuplicateName)
		}
		seen[m.Name] = struct{}{}
		if m.Suite == "" {
			m.Suite = domain.SuiteRC4
		}
		out = append(out, m)
	}
	return &Catalog{modules: out}, nil
}

func validate(m domain.Module) error {
	switch {
	case len(m.Payload) == 0:
		return ErrEmptyPayload
	case len(m.Platforms) == 0:
		return ErrNoPlatforms
	case m.ID != ModuleID(m.Payload):
		return fmt.Errorf("%w: have %s", ErrModuleIDMismatch, m.ID)
	case len(m.Checks.Probe) > warden.MaxProbeLen:
		return warden.ErrProbeTooLong
	}
	switch m.Suite {
	case "", domain.SuiteRC4, domain.SuiteChaCha20:
		return nil
	default:
		return fmt.Errorf("unknown cipher %q", m.Suite)
	}
}

// SelectModule returns the module built for p.
func (c *Catalog) SelectModule(p domain.Platform) (domain.Module, error) {
	for _, m := range c.modules {
		if m.Supports(p) {
			return m, nil
		}
	}
	return domain.Module{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedPlatform, p)
}

// Modules returns the entries in catalog order.
func (c *Catalog) Modules() []domain.Module {
	out := make([]domain.Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Len reports the number of modules.
func (c *Catalog) Len() int { return len(c.modules) }
