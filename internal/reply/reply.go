// Package reply implements the reply serializer of spec.md §4.1/§6: it
// builds the JSON envelopes (true/false/exception, the handshake and
// the fixed acknowledgement) written back over the wire. Answer rows go
// through term.Encoder; an exception's payload comes from ErrorValue,
// which uses the error's message text and does not go through
// term.Encoder.
package reply

import (
	"encoding/json"
	"fmt"

	"github.com/codefionn/queryserverd/internal/term"
)

// JSON is the {"functor":...,"args":[...]} envelope of spec.md §6.
type JSON struct {
	Functor string `json:"functor"`
	Args    []any  `json:"args"`
}

// Marshal encodes r as the framed payload bytes (without the trailing
// ".\n", which the wire codec appends).
func Marshal(r JSON) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("reply: marshal: %w", err)
	}
	return b, nil
}

// True builds {"functor":"true","args":[[[...answer rows...]]]}.
func True(answers []term.Answer, enc *term.Encoder) (JSON, error) {
	rows := make([]any, len(answers))
	for i, a := range answers {
		row, err := enc.EncodeAnswer(a)
		if err != nil {
			return JSON{}, err
		}
		rows[i] = row
	}
	return JSON{Functor: "true", Args: []any{rows}}, nil
}

// False builds {"functor":"false","args":[]}.
func False() JSON {
	return JSON{Functor: "false", Args: []any{}}
}

// Exception builds {"functor":"exception","args":[ErrorValueAsJSON]}.
// errValue is already a JSON-ready value (a string atom tag, or
// whatever Encoder produced for a structured engine error).
func Exception(errValue any) JSON {
	return JSON{Functor: "exception", Args: []any{errValue}}
}

// Functor is the generic {"functor":...,"args":[...]} shape used to
// build ad hoc reply payloads (e.g. the handshake's threads(C,G)) that
// do not go through term.Encoder.
type Functor struct {
	Functor string `json:"functor"`
	Args    []any  `json:"args"`
}

// Ack builds the fixed true([[]]) acknowledgement spec.md §4.3 specifies
// for run_async's immediate reply, close, quit, and the two cancel_async
// success cases.
func Ack() JSON {
	return JSON{Functor: "true", Args: []any{[]any{[]any{}}}}
}

// Handshake builds the true([[threads(CommId,GoalId)]]) greeting reply
// of spec.md §4.2/§8 scenario 1. Unlike ordinary answer rows, the single
// row here holds the threads(...) term directly rather than a list of
// name=value bindings, so it is assembled ad hoc instead of through
// term.Encoder.
func Handshake(commID, goalID string) JSON {
	threads := Functor{Functor: "threads", Args: []any{commID, goalID}}
	row := []any{threads}
	rows := []any{row}
	return JSON{Functor: "true", Args: []any{rows}}
}

// ErrorValue converts a Go error into the ErrorValueAsJSON spec.md §6
// describes. The builtin engine and the protocol-error sentinels both
// carry their payload as plain text, so the general case (anything not
// already term-shaped) reduces to the error's message.
//
// spec.md §6 also describes unwrapping a structured error(Inner,_Context)
// term down to Inner before stringifying. This engine never raises one
// of those (the builtin engine returns plain Go errors whose message is
// already the inner error text, such as existence_error(...), and the
// sentinels in internal/protoerr carry a bare tag), so that unwrap has
// no input to act on here; a
// term-based engine backend would need to check for the error/2 shape
// before falling through to err.Error().
func ErrorValue(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
