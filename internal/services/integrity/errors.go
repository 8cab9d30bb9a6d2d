package integrity

import (
	stderrors "errors"
	"fmt"
)

// ErrKind categorizes engine failures.
//
// Verification kinds are terminal and invoke the penalty once.
// KindUnsupportedPlatform rejects the session at Init without a penalty, and
// KindTransport is returned to the caller with the engine left intact.
type ErrKind uint8

const (
	KindUnsupportedPlatform ErrKind = iota + 1
	KindChallengeMismatch
	KindCheckMismatch
	KindCheckTimeout
	KindHandshakeTimeout
	KindMalformed
	KindTransport
)

func (k ErrKind) String() string {
	switch k {
	case KindUnsupportedPlatform:
		return "unsupported_platform"
	case KindChallengeMismatch:
		return "challenge_mismatch"
	case KindCheckMismatch:
		return "check_mismatch"
	case KindCheckTimeout:
		return "check_timeout"
	case KindHandshakeTimeout:
		return "handshake_timeout"
	case KindMalformed:
		return "malformed"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	ErrTerminated     = stderrors.New("integrity engine terminated")
	ErrNotInitialized = stderrors.New("integrity engine not initialized")
	ErrInitialized    = stderrors.New("integrity engine already initialized")
)

type Error struct {
	Kind  ErrKind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Inner == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Inner.Error()
}

func (e *Error) Unwrap() error { return e.Inner }

// NewError returns an engine error of the given kind.
func NewError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind ErrKind, msg string, inner error) *Error {
	return &Error{Kind: kind, Msg: msg, Inner: inner}
}

func IsKind(err error, kind ErrKind) bool {
	var ie *Error
	if stderrors.As(err, &ie) {
		return ie.Kind == kind
	}
	return false
}

// KindOf extracts the kind of err, if it carries one.
func KindOf(err error) (ErrKind, bool) {
	var ie *Error
	if stderrors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}
