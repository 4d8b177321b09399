package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/codefionn/queryserverd/internal/actor"
	"github.com/codefionn/queryserverd/internal/consts"
	"github.com/codefionn/queryserverd/internal/engine"
	"github.com/codefionn/queryserverd/internal/logger"
	"github.com/codefionn/queryserverd/internal/protoerr"
	"github.com/codefionn/queryserverd/internal/term"
)

// goalMsg carries one dispatched query through the actor mailbox.
type goalMsg struct{ req QueryRequest }

func (goalMsg) Type() string { return "goal" }

// GoalWorker owns one logic-engine session (here: one engine.Engine
// value, since the builtin engine is stateless) and serializes goal
// execution through an actor.ActorRef — the existing single-goroutine
// mailbox loop already gives invariant I1 ("one goal-message processed
// to completion before the next") without extra locking.
type GoalWorker struct {
	pair   *Pair
	eng    engine.Engine
	outbox chan Result
	log    *logger.Logger
	system *actor.System

	ref        *actor.ActorRef
	rootCtx    context.Context
	rootCancel context.CancelFunc

	queriesProcessed atomic.Int64
	lastGoalAt       atomic.Value // time.Time
}

// NewGoalWorker constructs a worker bound to pair, evaluating goals with
// eng and publishing Results on outbox. system is the actor system the
// worker registers itself under, the same one internal/debugsrv reports
// through /healthz.
func NewGoalWorker(pair *Pair, eng engine.Engine, outboxSize int, log *logger.Logger, system *actor.System) *GoalWorker {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &GoalWorker{
		pair:       pair,
		eng:        eng,
		outbox:     make(chan Result, outboxSize),
		log:        log,
		system:     system,
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// Outbox returns the channel the communication worker drains.
func (g *GoalWorker) Outbox() <-chan Result { return g.outbox }

// Start registers the worker's mailbox loop with the actor system under
// its GoalID, with a metrics provider so the goal worker's health
// report carries real per-connection counters rather than an empty
// CustomMetrics field.
func (g *GoalWorker) Start(ctx context.Context) error {
	ref, err := g.system.SpawnWithOptions(g.rootCtx, g.pair.GoalID, &goalActorAdapter{w: g}, consts.GoalInboxSize,
		actor.WithMetricsProvider(g.healthMetrics))
	if err != nil {
		return err
	}
	g.ref = ref
	return nil
}

// healthMetrics is the actor.ActorRef metrics provider for this worker;
// its return value lands in HealthReport.Metrics.CustomMetrics.
func (g *GoalWorker) healthMetrics() interface{} {
	var lastGoalAt time.Time
	if t, ok := g.lastGoalAt.Load().(time.Time); ok {
		lastGoalAt = t
	}
	return map[string]interface{}{
		"queries_processed": g.queriesProcessed.Load(),
		"last_goal_at":      lastGoalAt,
	}
}

// Dispatch enqueues req without blocking the caller beyond the mailbox
// capacity check, matching spec.md §4.3's "confirming inbox enqueue".
func (g *GoalWorker) Dispatch(req QueryRequest) error {
	return g.ref.Send(goalMsg{req: req})
}

// Abort hard-stops the worker: used by close and the disconnect path.
// Unlike TryCancel it tears the worker down outright (spec.md §9:
// "close followed by socket close is the only forcing path").
func (g *GoalWorker) Abort() {
	g.rootCancel()
	if g.system != nil {
		_ = g.system.Stop(context.Background(), g.pair.GoalID)
	} else if g.ref != nil {
		_ = g.ref.Stop(context.Background())
	}
}

// actor.Actor implementation -------------------------------------------------

// ID implements actor.Actor.
func (g *GoalWorker) ID() string { return g.pair.GoalID }

// actorStart backs goalActorAdapter.Start; the mailbox loop itself is
// driven by ActorRef, so there is nothing additional to initialize here.
func (g *GoalWorker) actorStart(context.Context) error { return nil }

// actorStop backs goalActorAdapter.Stop.
func (g *GoalWorker) actorStop(context.Context) error { return nil }

var _ actor.Actor = (*goalActorAdapter)(nil)

// goalActorAdapter exists only so GoalWorker's Receive can have the
// exact signature actor.Actor requires while keeping GoalWorker's own
// exported surface (Start, Dispatch, Abort) free of the actor.Actor
// method set's naming collisions (Start/Stop mean different things at
// the two layers).
type goalActorAdapter struct{ w *GoalWorker }

func (a *goalActorAdapter) ID() string                       { return a.w.ID() }
func (a *goalActorAdapter) Start(ctx context.Context) error   { return a.w.actorStart(ctx) }
func (a *goalActorAdapter) Stop(ctx context.Context) error    { return a.w.actorStop(ctx) }
func (a *goalActorAdapter) Receive(ctx context.Context, msg actor.Message) error {
	return a.w.receive(ctx, msg)
}

// receive implements the per-message body of spec.md §4.4.
func (g *GoalWorker) receive(parent context.Context, msg actor.Message) error {
	gm, ok := msg.(goalMsg)
	if !ok {
		return nil
	}
	req := gm.req
	g.queriesProcessed.Add(1)
	g.lastGoalAt.Store(time.Now())
	g.log.Debug("evaluating goal %s (timeout=%ds find_all=%v)", req.Goal, req.TimeoutSecs, req.FindAll)

	queryCtx, queryCancel := context.WithCancel(parent)
	var timedOut atomic.Bool
	var timer *time.Timer
	if req.TimeoutSecs > 0 {
		timer = time.AfterFunc(time.Duration(req.TimeoutSecs)*time.Second, func() {
			timedOut.Store(true)
			queryCancel()
		})
	}

	g.pair.beginCancellableRegion(queryCancel)

	answers, streamed, terminalErr := g.evaluate(queryCtx, req)

	wasCancelled := g.pair.endCancellableRegion()
	if timer != nil {
		timer.Stop()
	}
	queryCancel()

	switch {
	case timedOut.Load():
		g.publish(Result{Kind: ResultException, Err: protoerr.ErrTimeLimitExceeded, FindAll: req.FindAll})
	case wasCancelled:
		g.publish(Result{Kind: ResultException, Err: protoerr.ErrCancelGoal, FindAll: req.FindAll})
	case terminalErr != nil:
		g.publish(Result{Kind: ResultException, Err: terminalErr, FindAll: req.FindAll})
	case req.FindAll:
		if len(answers) == 0 {
			g.publish(Result{Kind: ResultFailure, FindAll: true})
		} else {
			g.publish(Result{Kind: ResultSuccess, Answers: answers, FindAll: true})
		}
	default:
		// A streamed query that produced no successes still owes the
		// client the false its find-all counterpart would have replied
		// with, before the terminal no_more_results — spec.md §8's
		// "run_async + async_result sequence yields false then
		// exception(no_more_results)", matched by
		// original_source/swiplserver/prologserver.py's
		// query_async_result() docstring for a failing find_all=False
		// goal ("call 1 will return False and call 2 will return None").
		if !streamed {
			g.publish(Result{Kind: ResultFailure, FindAll: false})
		}
		g.publish(Result{Kind: ResultException, Err: protoerr.ErrNoMoreResults, FindAll: false})
	}

	return nil
}

// evaluate drives the engine for one query. In find-all mode it
// collects every answer before returning. In stream mode it publishes
// one success(Answers=[answer]) Result per answer as it arrives and
// returns a nil answers slice plus whether at least one answer was
// published — the stream's natural termination is signalled by the
// caller's default branch in receive, not by this return value.
func (g *GoalWorker) evaluate(ctx context.Context, req QueryRequest) (answers []term.Answer, streamed bool, err error) {
	ch, err := g.eng.Solve(ctx, req.Goal, req.BindingNames)
	if err != nil {
		return nil, false, err
	}

	if req.FindAll {
		for a := range ch {
			if a.Err != nil {
				return answers, false, a.Err
			}
			answers = append(answers, a.Bindings)
		}
		return answers, false, nil
	}

	for a := range ch {
		if ctx.Err() != nil {
			return nil, streamed, nil
		}
		if a.Err != nil {
			return nil, streamed, a.Err
		}
		g.publish(Result{Kind: ResultSuccess, Answers: []term.Answer{a.Bindings}, FindAll: false})
		streamed = true
	}
	return nil, streamed, nil
}

func (g *GoalWorker) publish(r Result) {
	select {
	case g.outbox <- r:
	case <-g.rootCtx.Done():
	}
}
