package domain

// Connection is the borrowed view of a client connection the engine needs.
// The engine never closes it.
type Connection interface {
	// SendFrame transmits one already-encrypted protocol frame.
	SendFrame(frame []byte) error
	// AccountID identifies the account behind the connection.
	AccountID() uint32
}

// Penalizer applies the server's policy to a failed verification and
// returns a description of the action taken ("None", "Kick", ...).
type Penalizer interface {
	ApplyPenalty(reason error) string
}

// PenaltyFunc adapts a function to Penalizer.
type PenaltyFunc func(reason error) string

func (f PenaltyFunc) ApplyPenalty(reason error) string { return f(reason) }

// ModuleSelector picks the module matching a client platform.
type ModuleSelector interface {
	SelectModule(p Platform) (Module, error)
}
