package session

import "github.com/codefionn/queryserverd/internal/term"

// ResultKind tags which of the three shapes spec.md §3 allows for a
// goal-outbox element.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultFailure
	ResultException
)

// Result is one element the goal worker places on its outbox: exactly
// one of success(Answers, find_all), failure(find_all), or
// exception(ErrorValue, find_all).
type Result struct {
	Kind    ResultKind
	Answers []term.Answer
	Err     error
	FindAll bool
}

// Terminal reports whether r ends the outbox stream for its query.
// Every exception is terminal regardless of mode. A find_all query's
// single success or failure result is terminal, since it is the whole
// answer. A streamed (non-find_all) failure is deliberately NOT
// terminal: per spec.md §8, a streamed goal with no answers is followed
// by a terminal exception(no_more_results), so the false the goal
// worker publishes first must still leave query_in_progress set for
// that next message to be consumed.
func (r Result) Terminal() bool {
	return r.Kind == ResultException || r.FindAll
}

// QueryRequest is the goal(Goal, BindingNames, Timeout, FindAll)
// message the communication worker dispatches to the goal worker.
type QueryRequest struct {
	Goal         term.Term
	BindingNames []string
	TimeoutSecs  int
	FindAll      bool
}
