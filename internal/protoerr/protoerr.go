// Package protoerr defines the closed set of protocol and query-control
// atoms that can appear as the argument of an exception(...) reply. Each
// atom doubles as a Go error value, so protocol code can return it with
// ordinary error handling and the communication worker can recognize it
// by identity when deciding how to serialize a reply.
package protoerr

import "errors"

// Atom is a protocol-error tag as written into an exception(Atom) reply.
type Atom string

const (
	PasswordMismatch      Atom = "password_mismatch"
	FrameError            Atom = "frame_error"
	CouldNotParseCommand  Atom = "could_not_parse_command"
	UnknownCommand        Atom = "unknown_command"
	NoQuery               Atom = "no_query"
	ResultNotAvailable    Atom = "result_not_available"
	NoMoreResults         Atom = "no_more_results"
	TimeLimitExceeded     Atom = "time_limit_exceeded"
	CancelGoal            Atom = "cancel_goal"
	ConnectionFailed      Atom = "connection_failed"
)

// sentinel mirrors each Atom as an error, so functions that return error
// can propagate an exact protocol condition and callers can test it with
// errors.Is.
type sentinel struct{ atom Atom }

func (s sentinel) Error() string { return string(s.atom) }

// Atom returns the protocol atom carried by this error, if any.
func (s sentinel) Atom() Atom { return s.atom }

var (
	ErrPasswordMismatch      = sentinel{PasswordMismatch}
	ErrFrame                 = sentinel{FrameError}
	ErrCouldNotParseCommand  = sentinel{CouldNotParseCommand}
	ErrUnknownCommand        = sentinel{UnknownCommand}
	ErrNoQuery               = sentinel{NoQuery}
	ErrResultNotAvailable    = sentinel{ResultNotAvailable}
	ErrNoMoreResults         = sentinel{NoMoreResults}
	ErrTimeLimitExceeded     = sentinel{TimeLimitExceeded}
	ErrCancelGoal            = sentinel{CancelGoal}
	ErrConnectionFailed      = sentinel{ConnectionFailed}
)

// errConnectionClosed signals that the peer closed the stream mid-frame;
// distinct from ErrFrame, which signals malformed framing.
var errConnectionClosed = errors.New("connection_closed")

// ErrConnectionClosed is returned by the frame codec on a clean EOF
// before a full frame was read.
func ErrConnectionClosed() error { return errConnectionClosed }

// AsAtom reports whether err carries a protocol Atom, unwrapping through
// fmt.Errorf("%w", ...) chains.
func AsAtom(err error) (Atom, bool) {
	var s sentinel
	if errors.As(err, &s) {
		return s.atom, true
	}
	return "", false
}
