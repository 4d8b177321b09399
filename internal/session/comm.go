package session

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/codefionn/queryserverd/internal/consts"
	"github.com/codefionn/queryserverd/internal/logger"
	"github.com/codefionn/queryserverd/internal/metrics"
	"github.com/codefionn/queryserverd/internal/protoerr"
	"github.com/codefionn/queryserverd/internal/reply"
	"github.com/codefionn/queryserverd/internal/secret"
	"github.com/codefionn/queryserverd/internal/term"
	"github.com/codefionn/queryserverd/internal/wire"
)

// Outcome reports why Comm.Run returned, so the listener/supervisor can
// decide whether the disconnect warrants the halt-on-connection-failure
// policy of spec.md §4.2/§6.
type Outcome int

const (
	// outcomeReady is an internal sentinel meaning "the greeting
	// succeeded, keep serving"; it never escapes Run.
	outcomeReady Outcome = iota

	// OutcomeClosed covers both an explicit close and the greeting's
	// password-mismatch termination: a deliberate protocol exit, never
	// a halt trigger.
	OutcomeClosed

	// OutcomeQuit means the client sent quit; the supervisor should
	// begin orderly process termination.
	OutcomeQuit

	// OutcomeFailed means an unexpected I/O failure tore the
	// connection down; the disconnect path applies, including halt if
	// the server is configured for it.
	OutcomeFailed
)

// Comm is the communication worker of spec.md §4.2: it owns the socket
// exclusively, runs the protocol state machine, and is the only thing
// that calls GoalWorker.Dispatch/Abort or Pair.TryCancel for its pair.
// Grounded on the teacher's Client read/write-pump split, collapsed
// here to one goroutine per connection since the heartbeat tick and the
// socket read do not need to run concurrently with each other — only
// the goal worker's evaluation needs to run concurrently with this
// worker's heartbeat loop, and that concurrency is already provided by
// GoalWorker's own actor mailbox goroutine.
type Comm struct {
	pair     *Pair
	goal     *GoalWorker
	conn     net.Conn
	parser   *term.Parser
	encoder  *term.Encoder
	password *secret.Password
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewComm constructs a communication worker for pair, dispatching
// queries to goal and authenticating against password. m may be nil
// when the debug metrics listener is disabled.
func NewComm(pair *Pair, goal *GoalWorker, password *secret.Password, log *logger.Logger, m *metrics.Metrics) *Comm {
	return &Comm{
		pair:     pair,
		goal:     goal,
		conn:     pair.Conn,
		parser:   term.NewParser(),
		encoder:  term.NewEncoder(),
		password: password,
		log:      log,
		metrics:  m,
	}
}

// Run drives the connection to completion: greeting, then the Ready
// loop of §4.2, until close/quit/failure. ctx is the supervisor's
// shutdown context; cancelling it force-closes the socket, unblocking
// whatever read or write Run is currently suspended on.
func (c *Comm) Run(ctx context.Context) Outcome {
	defer c.goal.Abort()
	defer c.conn.Close()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-stopWatch:
		}
	}()

	br := bufio.NewReader(c.conn)
	if o := c.greet(br); o != outcomeReady {
		return o
	}

	for {
		payload, err := wire.Decode(br)
		if err != nil {
			c.pair.MarkConnectionFailed()
			return OutcomeFailed
		}

		cmd, cmdErr := ParseCommand(c.parser, string(payload))
		if cmdErr != nil {
			if werr := c.writeReply(reply.Exception(reply.ErrorValue(cmdErr))); werr != nil {
				c.pair.MarkConnectionFailed()
				return OutcomeFailed
			}
			continue
		}

		switch cmd.Kind {
		case CmdRun:
			rep, err := c.runSync(cmd)
			if err != nil {
				c.pair.MarkConnectionFailed()
				return OutcomeFailed
			}
			if err := c.writeReply(rep); err != nil {
				c.pair.MarkConnectionFailed()
				return OutcomeFailed
			}

		case CmdRunAsync:
			rep, err := c.runAsync(cmd)
			if err != nil {
				c.pair.MarkConnectionFailed()
				return OutcomeFailed
			}
			if err := c.writeReply(rep); err != nil {
				c.pair.MarkConnectionFailed()
				return OutcomeFailed
			}

		case CmdAsyncResult:
			rep := c.asyncResult(cmd)
			if err := c.writeReply(rep); err != nil {
				c.pair.MarkConnectionFailed()
				return OutcomeFailed
			}

		case CmdCancelAsync:
			rep := c.cancelAsync()
			if err := c.writeReply(rep); err != nil {
				c.pair.MarkConnectionFailed()
				return OutcomeFailed
			}

		case CmdClose:
			_ = c.writeReply(reply.Ack())
			c.goal.Abort()
			return OutcomeClosed

		case CmdQuit:
			_ = c.writeReply(reply.Ack())
			return OutcomeQuit
		}
	}
}

// greet implements §4.2 state 1: read one frame, compare it byte-exact
// with the password, reply accordingly.
func (c *Comm) greet(br *bufio.Reader) Outcome {
	payload, err := wire.Decode(br)
	if err != nil {
		c.pair.MarkConnectionFailed()
		return OutcomeFailed
	}

	if !c.password.Equal(string(payload)) {
		_ = c.writeReply(reply.Exception(reply.ErrorValue(protoerr.ErrPasswordMismatch)))
		return OutcomeClosed
	}

	if err := c.writeReply(reply.Handshake(c.pair.CommID, c.pair.GoalID)); err != nil {
		c.pair.MarkConnectionFailed()
		return OutcomeFailed
	}
	return outcomeReady
}

// runSync implements the run/2 command: drain, dispatch, block in
// Running-sync (heartbeating every 2s), reply with the terminal result.
func (c *Comm) runSync(cmd Command) (reply.JSON, error) {
	if c.pair.ConnectionFailed() {
		return reply.Exception(reply.ErrorValue(protoerr.ErrConnectionFailed)), nil
	}
	if err := c.drainIfNeeded(true); err != nil {
		return reply.JSON{}, err
	}
	if err := c.dispatch(cmd); err != nil {
		c.pair.MarkConnectionFailed()
		return reply.Exception(reply.ErrorValue(protoerr.ErrConnectionFailed)), nil
	}

	r, err := c.waitOutbox(true)
	if err != nil {
		return reply.JSON{}, err
	}
	c.pair.SetQueryInProgress(!r.Terminal())
	c.recordTerminal(r)
	return c.resultToReply(r), nil
}

// runAsync implements run_async/3: drain synchronously (no heartbeat
// needed since there is nothing to wait on), dispatch, and acknowledge
// immediately.
func (c *Comm) runAsync(cmd Command) (reply.JSON, error) {
	if c.pair.ConnectionFailed() {
		return reply.Exception(reply.ErrorValue(protoerr.ErrConnectionFailed)), nil
	}
	if err := c.drainIfNeeded(false); err != nil {
		return reply.JSON{}, err
	}
	if err := c.dispatch(cmd); err != nil {
		c.pair.MarkConnectionFailed()
		return reply.Exception(reply.ErrorValue(protoerr.ErrConnectionFailed)), nil
	}
	return reply.Ack(), nil
}

// asyncResult implements async_result/1.
func (c *Comm) asyncResult(cmd Command) reply.JSON {
	if !c.pair.QueryInProgress() {
		return reply.Exception(reply.ErrorValue(protoerr.ErrNoQuery))
	}

	r, err := c.pullResult(cmd.Timeout)
	if err != nil {
		// query_in_progress stays set: nothing was consumed.
		return reply.Exception(reply.ErrorValue(err))
	}
	if r.Terminal() {
		c.pair.SetQueryInProgress(false)
		c.recordTerminal(r)
	}
	return c.resultToReply(r)
}

// cancelAsync implements cancel_async per spec.md §4.3/§9's preserved
// open question: a pending-but-uninjected cancellation still replies
// true([[]]), not a distinct tag.
func (c *Comm) cancelAsync() reply.JSON {
	if c.pair.TryCancel() {
		return reply.Ack()
	}
	if c.pair.QueryInProgress() {
		return reply.Ack()
	}
	return reply.Exception(reply.ErrorValue(protoerr.ErrNoQuery))
}

// dispatch sends req to the goal worker, asserting query_in_progress
// first per invariant I2 ("asserted when a goal is dispatched").
func (c *Comm) dispatch(cmd Command) error {
	req := QueryRequest{
		Goal:         cmd.Goal,
		BindingNames: cmd.BindingNames,
		TimeoutSecs:  cmd.Timeout,
		FindAll:      cmd.FindAll,
	}
	c.pair.SetQueryInProgress(true)
	if err := c.goal.Dispatch(req); err != nil {
		c.pair.SetQueryInProgress(false)
		return err
	}
	if c.metrics != nil {
		c.metrics.QueriesRun.Inc()
	}
	return nil
}

// recordTerminal updates the cancellation/timeout counters for a
// terminal Result, a no-op for every other kind.
func (c *Comm) recordTerminal(r Result) {
	if c.metrics == nil || r.Kind != ResultException {
		return
	}
	switch {
	case r.Err == protoerr.ErrCancelGoal:
		c.metrics.QueriesCancelled.Inc()
	case r.Err == protoerr.ErrTimeLimitExceeded:
		c.metrics.QueriesTimedOut.Inc()
	}
}

// drainIfNeeded implements §4.2 state 5: if a prior async session left
// query_in_progress set, silently consume outbox messages until the
// terminal one, heartbeating meanwhile if heartbeat is true.
func (c *Comm) drainIfNeeded(heartbeat bool) error {
	if !c.pair.QueryInProgress() {
		return nil
	}
	for {
		r, err := c.waitOutbox(heartbeat)
		if err != nil {
			return err
		}
		if r.Terminal() {
			c.pair.SetQueryInProgress(false)
			return nil
		}
	}
}

// waitOutbox blocks for the next goal-worker result, writing a raw '.'
// heartbeat byte every 2s while heartbeat is true. A heartbeat write
// failure means the peer is gone, per §4.2 state 3.
//
// The first probe fires immediately on entry rather than waiting for
// the initial tick: a query that finishes in under consts.HeartbeatInterval
// (e.g. spec.md §8's timeout scenario, which times out around 1s) would
// otherwise return before the peer ever saw a liveness byte, since
// time.NewTicker's first tick only arrives after a full interval.
func (c *Comm) waitOutbox(heartbeat bool) (Result, error) {
	if !heartbeat {
		return <-c.goal.Outbox(), nil
	}

	select {
	case r := <-c.goal.Outbox():
		return r, nil
	default:
		if err := wire.WriteHeartbeat(c.conn); err != nil {
			return Result{}, err
		}
	}

	ticker := time.NewTicker(consts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case r := <-c.goal.Outbox():
			return r, nil
		case <-ticker.C:
			if err := wire.WriteHeartbeat(c.conn); err != nil {
				return Result{}, err
			}
		}
	}
}

// pullResult implements async_result's own Timeout, which bounds only
// the outbox dequeue (§5): negative waits forever, zero polls once,
// positive waits up to that many seconds.
func (c *Comm) pullResult(timeoutSecs int) (Result, error) {
	switch {
	case timeoutSecs == 0:
		select {
		case r := <-c.goal.Outbox():
			return r, nil
		default:
			return Result{}, protoerr.ErrResultNotAvailable
		}
	case timeoutSecs < 0:
		return <-c.goal.Outbox(), nil
	default:
		timer := time.NewTimer(time.Duration(timeoutSecs) * time.Second)
		defer timer.Stop()
		select {
		case r := <-c.goal.Outbox():
			return r, nil
		case <-timer.C:
			return Result{}, protoerr.ErrResultNotAvailable
		}
	}
}

// resultToReply implements the reply serializer's Result half, the
// other half (encoding term.Answer values) lives in internal/reply.
func (c *Comm) resultToReply(r Result) reply.JSON {
	switch r.Kind {
	case ResultSuccess:
		rep, err := reply.True(r.Answers, c.encoder)
		if err != nil {
			return reply.Exception(reply.ErrorValue(err))
		}
		return rep
	case ResultFailure:
		return reply.False()
	default:
		return reply.Exception(reply.ErrorValue(r.Err))
	}
}

func (c *Comm) writeReply(rep reply.JSON) error {
	b, err := reply.Marshal(rep)
	if err != nil {
		return err
	}
	return wire.Encode(c.conn, b)
}
