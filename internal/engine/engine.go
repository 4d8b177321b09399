// Package engine models the out-of-scope logic-programming evaluator
// that spec.md §1/§6 treats as a trusted external capability: something
// that takes a goal term and a set of binding names and produces a
// stream of answers or an error. The core session engine only depends
// on the Engine interface; Builtin is one small, illustrative
// implementation sufficient to exercise find-all, streaming, failure,
// and timeout behavior end to end — not a general logic-programming
// language.
package engine

import (
	"context"

	"github.com/codefionn/queryserverd/internal/term"
)

// Answer is either a successful binding list or a terminal error raised
// partway through producing the stream.
type Answer struct {
	Bindings term.Answer
	Err      error
}

// Engine evaluates a goal against binding names declared by the parser
// and streams Answers on the returned channel. The channel is closed
// when the engine has no more answers to produce (whether because the
// goal is exhausted, it failed outright, or ctx was cancelled). At most
// one Answer carrying a non-nil Err may appear, always as the last item
// before the channel closes.
type Engine interface {
	Solve(ctx context.Context, goal term.Term, bindingNames []string) (<-chan Answer, error)
}
