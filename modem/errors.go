package modem

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sim7000-go/sim7000/atproto"
)

// Kind enumerates the coarse failure categories a Modem operation can
// report.
type Kind int

const (
	KindInvalidUTF8 Kind = iota
	KindBufferOverflow
	KindSim
	KindTimeout
	KindSerial
	KindNoApn
	KindHttptofs
	KindXtra
)

// XtraFailure distinguishes the two ways an XTRA assistance download can
// fail short of a transport error.
type XtraFailure int

const (
	XtraFileDoesntExist XtraFailure = iota
	XtraNotEffective
)

func (x XtraFailure) String() string {
	if x == XtraFileDoesntExist {
		return "xtra file does not exist"
	}
	return "xtra file is not effective"
}

// Error is the modem package's error type. Kind drives programmatic
// branching (e.g. DropMessage.Run tolerating KindSim); the wrapped cause,
// where present, carries the human-readable detail.
type Error struct {
	Kind        Kind
	SimError    atproto.SimError
	HTTPStatus  int
	XtraFailure XtraFailure
	cause       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidUTF8:
		return "modem: invalid utf-8 on the wire"
	case KindBufferOverflow:
		return "modem: line buffer overflow"
	case KindSim:
		return "modem: " + e.SimError.Error()
	case KindTimeout:
		return "modem: command timed out"
	case KindSerial:
		if e.cause != nil {
			return fmt.Sprintf("modem: serial error: %s", e.cause)
		}
		return "modem: serial error"
	case KindNoApn:
		return "modem: no default APN was configured, and the network did not provide one"
	case KindHttptofs:
		return fmt.Sprintf("modem: http-to-filesystem download failed with status %d", e.HTTPStatus)
	case KindXtra:
		return "modem: " + e.XtraFailure.String()
	default:
		return "modem: unknown error"
	}
}

func (e *Error) Unwrap() error { return e.cause }

// wrapCodecError adapts the atproto codec's ErrInvalidUTF8 /
// ErrBufferOverflow sentinel errors into modem.Error values, preserving the
// Kind taxonomy across the package boundary; any other error becomes
// KindSerial.
func wrapCodecError(err error) error {
	switch {
	case errors.Is(err, atproto.ErrInvalidUTF8):
		return &Error{Kind: KindInvalidUTF8, cause: err}
	case errors.Is(err, atproto.ErrBufferOverflow):
		return &Error{Kind: KindBufferOverflow, cause: err}
	default:
		return &Error{Kind: KindSerial, cause: err}
	}
}

// simError wraps a SimError response as a modem.Error of KindSim.
func simError(sim atproto.SimError) error {
	return &Error{Kind: KindSim, SimError: sim}
}

// ErrTimeout reports that a command runner wait exceeded its deadline.
func ErrTimeout() error { return &Error{Kind: KindTimeout} }

// ErrNoApn reports that no APN was available from either configuration or
// the network.
func ErrNoApn() error { return &Error{Kind: KindNoApn} }

// ErrHttptofs reports a non-success HTTPTOFS status code.
func ErrHttptofs(status int) error { return &Error{Kind: KindHttptofs, HTTPStatus: status} }

// ErrXtra reports an XTRA assistance-file failure.
func ErrXtra(failure XtraFailure) error { return &Error{Kind: KindXtra, XtraFailure: failure} }

// IsSimError reports whether err is a modem.Error wrapping a SIM-side
// ERROR response, the one failure DropMessage.Run is allowed to swallow.
func IsSimError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindSim
	}
	return false
}
