package integrity

import (
	"time"

	"warden/internal/domain"
)

// Observer receives engine milestones. Implementations must not block.
type Observer interface {
	ModuleAnnounced(m domain.Module)
	ModuleTransferred(m domain.Module, chunks int)
	ChallengeVerified(m domain.Module)
	CheckIssued()
	CheckVerified(latency time.Duration)
	Failed(kind ErrKind, penalty string)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ModuleAnnounced(domain.Module)        {}
func (NopObserver) ModuleTransferred(domain.Module, int) {}
func (NopObserver) ChallengeVerified(domain.Module)      {}
func (NopObserver) CheckIssued()                         {}
func (NopObserver) CheckVerified(time.Duration)          {}
func (NopObserver) Failed(ErrKind, string)               {}
