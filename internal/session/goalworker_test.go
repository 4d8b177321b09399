package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/queryserverd/internal/actor"
	"github.com/codefionn/queryserverd/internal/engine"
	"github.com/codefionn/queryserverd/internal/logger"
	"github.com/codefionn/queryserverd/internal/protoerr"
	"github.com/codefionn/queryserverd/internal/term"
)

func newTestWorker(t *testing.T) (*GoalWorker, *Pair) {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() {
		c1.Close()
		c2.Close()
	})

	log, err := logger.New(logger.LevelNone, "", "test")
	require.NoError(t, err)

	pair := NewPair("srv-1", c1)
	worker := NewGoalWorker(pair, engine.NewBuiltin(), 8, log, actor.NewSystem())
	require.NoError(t, worker.Start(context.Background()))
	t.Cleanup(worker.Abort)

	return worker, pair
}

func recvResult(t *testing.T, w *GoalWorker) Result {
	t.Helper()
	select {
	case r := <-w.Outbox():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}

func TestGoalWorkerFindAllCollectsAllAnswers(t *testing.T) {
	worker, _ := newTestWorker(t)

	goal := term.Compound{Functor: "member", Args: []term.Term{
		term.Var{Name: "X"},
		term.List{term.Atom("a"), term.Atom("b"), term.Atom("c")},
	}}
	require.NoError(t, worker.Dispatch(QueryRequest{Goal: goal, BindingNames: []string{"X"}, TimeoutSecs: -1, FindAll: true}))

	r := recvResult(t, worker)
	require.Equal(t, ResultSuccess, r.Kind)
	assert.Len(t, r.Answers, 3)
}

func TestGoalWorkerStreamModeEndsWithNoMoreResults(t *testing.T) {
	worker, _ := newTestWorker(t)

	goal := term.Compound{Functor: "member", Args: []term.Term{
		term.Var{Name: "X"},
		term.List{term.Atom("a"), term.Atom("b")},
	}}
	require.NoError(t, worker.Dispatch(QueryRequest{Goal: goal, BindingNames: []string{"X"}, TimeoutSecs: -1, FindAll: false}))

	first := recvResult(t, worker)
	require.Equal(t, ResultSuccess, first.Kind)
	assert.Len(t, first.Answers, 1)

	second := recvResult(t, worker)
	require.Equal(t, ResultSuccess, second.Kind)

	third := recvResult(t, worker)
	require.Equal(t, ResultException, third.Kind)
	assert.ErrorIs(t, third.Err, protoerr.ErrNoMoreResults)
}

func TestGoalWorkerFailingGoalYieldsFailureResult(t *testing.T) {
	worker, _ := newTestWorker(t)

	require.NoError(t, worker.Dispatch(QueryRequest{Goal: term.Atom("fail"), TimeoutSecs: -1, FindAll: true}))

	r := recvResult(t, worker)
	assert.Equal(t, ResultFailure, r.Kind)
}

// TestGoalWorkerStreamModeFailingGoalYieldsFalseThenNoMoreResults covers
// spec.md §8's boundary behaviour for a streamed (FindAll=false) goal
// with no answers: the async_result sequence must observe false before
// the terminal no_more_results, exactly as it would for the find-all
// equivalent, per original_source/swiplserver/prologserver.py's
// query_async_result() docstring ("call 1 will return False and call 2
// will return None").
func TestGoalWorkerStreamModeFailingGoalYieldsFalseThenNoMoreResults(t *testing.T) {
	worker, _ := newTestWorker(t)

	require.NoError(t, worker.Dispatch(QueryRequest{Goal: term.Atom("fail"), TimeoutSecs: -1, FindAll: false}))

	first := recvResult(t, worker)
	require.Equal(t, ResultFailure, first.Kind)

	second := recvResult(t, worker)
	require.Equal(t, ResultException, second.Kind)
	assert.ErrorIs(t, second.Err, protoerr.ErrNoMoreResults)
}

func TestGoalWorkerTimeoutProducesTimeLimitExceeded(t *testing.T) {
	worker, _ := newTestWorker(t)

	goal := term.Compound{Functor: "sleep", Args: []term.Term{term.Int(5)}}
	require.NoError(t, worker.Dispatch(QueryRequest{Goal: goal, TimeoutSecs: 1, FindAll: true}))

	r := recvResult(t, worker)
	require.Equal(t, ResultException, r.Kind)
	assert.ErrorIs(t, r.Err, protoerr.ErrTimeLimitExceeded)
}

func TestGoalWorkerCancellationDuringSleepYieldsCancelGoal(t *testing.T) {
	worker, pair := newTestWorker(t)

	goal := term.Compound{Functor: "sleep", Args: []term.Term{term.Int(5)}}
	require.NoError(t, worker.Dispatch(QueryRequest{Goal: goal, TimeoutSecs: -1, FindAll: true}))

	// Give the goal worker time to enter the cancellable region before
	// requesting cancellation.
	require.Eventually(t, func() bool {
		return pair.TryCancel()
	}, time.Second, 5*time.Millisecond)

	r := recvResult(t, worker)
	require.Equal(t, ResultException, r.Kind)
	assert.ErrorIs(t, r.Err, protoerr.ErrCancelGoal)
}
