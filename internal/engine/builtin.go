package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/codefionn/queryserverd/internal/term"
)

// Builtin is the default Engine: a handful of illustrative predicates
// (true/0, fail/0, member/2, between/3, sleep/1, =/2) sufficient to
// drive find-all, streaming, failure, and timeout scenarios end to end.
type Builtin struct{}

// NewBuiltin returns the default built-in Engine.
func NewBuiltin() *Builtin { return &Builtin{} }

// Solve implements Engine.
func (b *Builtin) Solve(ctx context.Context, goal term.Term, bindingNames []string) (<-chan Answer, error) {
	out := make(chan Answer, 1)

	go func() {
		defer close(out)
		b.run(ctx, goal, bindingNames, out)
	}()

	return out, nil
}

func (b *Builtin) run(ctx context.Context, goal term.Term, bindingNames []string, out chan<- Answer) {
	switch g := goal.(type) {
	case term.Atom:
		switch g {
		case "true":
			emit(ctx, out, term.Answer{})
		case "fail", "false":
			// no answers
		default:
			emitErr(ctx, out, fmt.Errorf("existence_error(procedure,%s/0)", g))
		}
	case term.Bool:
		if bool(g) {
			emit(ctx, out, term.Answer{})
		}
	case term.Compound:
		b.runCompound(ctx, g, bindingNames, out)
	default:
		emitErr(ctx, out, fmt.Errorf("type_error(callable,%v)", goal))
	}
}

func (b *Builtin) runCompound(ctx context.Context, g term.Compound, bindingNames []string, out chan<- Answer) {
	switch {
	case g.Functor == "member" && len(g.Args) == 2:
		b.runMember(ctx, g, bindingNames, out)
	case g.Functor == "between" && len(g.Args) == 3:
		b.runBetween(ctx, g, bindingNames, out)
	case g.Functor == "sleep" && len(g.Args) == 1:
		b.runSleep(ctx, g, out)
	case g.Functor == "=" && len(g.Args) == 2:
		b.runUnify(ctx, g, bindingNames, out)
	default:
		emitErr(ctx, out, fmt.Errorf("existence_error(procedure,%s/%d)", g.Functor, len(g.Args)))
	}
}

func (b *Builtin) runMember(ctx context.Context, g term.Compound, bindingNames []string, out chan<- Answer) {
	v, ok := g.Args[0].(term.Var)
	if !ok {
		emitErr(ctx, out, fmt.Errorf("type_error(variable,%v)", g.Args[0]))
		return
	}
	list, ok := g.Args[1].(term.List)
	if !ok {
		emitErr(ctx, out, fmt.Errorf("type_error(list,%v)", g.Args[1]))
		return
	}
	for _, item := range list {
		if ctx.Err() != nil {
			return
		}
		if !emit(ctx, out, bindOne(bindingNames, v.Name, item)) {
			return
		}
	}
}

func (b *Builtin) runBetween(ctx context.Context, g term.Compound, bindingNames []string, out chan<- Answer) {
	low, ok1 := g.Args[0].(term.Int)
	high, ok2 := g.Args[1].(term.Int)
	v, ok3 := g.Args[2].(term.Var)
	if !ok1 || !ok2 || !ok3 {
		emitErr(ctx, out, fmt.Errorf("type_error(integer_or_variable,between/3)"))
		return
	}
	for i := int64(low); i <= int64(high); i++ {
		if ctx.Err() != nil {
			return
		}
		if !emit(ctx, out, bindOne(bindingNames, v.Name, term.Int(i))) {
			return
		}
	}
}

func (b *Builtin) runSleep(ctx context.Context, g term.Compound, out chan<- Answer) {
	var seconds float64
	switch n := g.Args[0].(type) {
	case term.Int:
		seconds = float64(n)
	case term.Float:
		seconds = float64(n)
	default:
		emitErr(ctx, out, fmt.Errorf("type_error(number,%v)", g.Args[0]))
		return
	}

	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-timer.C:
		emit(ctx, out, term.Answer{})
	case <-ctx.Done():
		return
	}
}

func (b *Builtin) runUnify(ctx context.Context, g term.Compound, bindingNames []string, out chan<- Answer) {
	lhs, lhsVar := g.Args[0].(term.Var)
	rhs, rhsVar := g.Args[1].(term.Var)

	switch {
	case lhsVar && !rhsVar:
		emit(ctx, out, bindOne(bindingNames, lhs.Name, g.Args[1]))
	case rhsVar && !lhsVar:
		emit(ctx, out, bindOne(bindingNames, rhs.Name, g.Args[0]))
	case lhsVar && rhsVar:
		a := bindOne(bindingNames, lhs.Name, g.Args[1])
		emit(ctx, out, a)
	default:
		if termsEqual(g.Args[0], g.Args[1]) {
			emit(ctx, out, term.Answer{})
		}
	}
}

// bindOne produces an Answer with every name in bindingNames bound: the
// given name to value, any other declared name retaining its own name
// (spec.md §4.4: "unbound variables retain their name").
func bindOne(bindingNames []string, name string, value term.Term) term.Answer {
	ans := make(term.Answer, 0, len(bindingNames))
	for _, n := range bindingNames {
		if n == name {
			ans = append(ans, term.Binding{Name: n, Value: value})
		} else {
			ans = append(ans, term.Binding{Name: n, Value: term.Var{Name: n}})
		}
	}
	return ans
}

func termsEqual(a, b term.Term) bool {
	return a.String() == b.String()
}

// emit sends ans on out, returning false if ctx was cancelled first so
// callers can stop producing further answers.
func emit(ctx context.Context, out chan<- Answer, ans term.Answer) bool {
	select {
	case out <- Answer{Bindings: ans}:
		return true
	case <-ctx.Done():
		return false
	}
}

func emitErr(ctx context.Context, out chan<- Answer, err error) {
	select {
	case out <- Answer{Err: err}:
	case <-ctx.Done():
	}
}
