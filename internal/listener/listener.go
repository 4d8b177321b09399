// Package listener implements the listener and supervisor of spec.md
// §4.5: it binds the TCP-loopback or local-socket endpoint, accepts
// connections, spawns a {communication worker, goal worker} pair per
// accept, and owns orderly shutdown including the local-socket file's
// invariant I5 cleanup.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codefionn/queryserverd/internal/actor"
	"github.com/codefionn/queryserverd/internal/config"
	"github.com/codefionn/queryserverd/internal/consts"
	"github.com/codefionn/queryserverd/internal/engine"
	"github.com/codefionn/queryserverd/internal/logger"
	"github.com/codefionn/queryserverd/internal/metrics"
	"github.com/codefionn/queryserverd/internal/secret"
	"github.com/codefionn/queryserverd/internal/securemem"
	"github.com/codefionn/queryserverd/internal/session"
)

// ErrDomain is returned when unix_domain_socket is configured with a
// relative path, matching spec.md §4.5's "reject with domain_error".
var ErrDomain = errors.New("domain_error: unix_domain_socket must be an absolute path")

// Supervisor owns the listening endpoint and the set of live connection
// pairs, implementing start/accept/stop and the halt-on-connection-
// failure policy of spec.md §6.
type Supervisor struct {
	serverID string
	cfg      *config.Config
	password *secret.Password
	eng      engine.Engine
	log      *logger.Logger
	metrics  *metrics.Metrics
	actors   *actor.System

	ln       net.Listener
	endpoint string // decimal TCP port, or the absolute socket path

	mu    sync.Mutex
	conns map[string]net.Conn

	stopCtx    context.Context
	stopCancel context.CancelFunc
	stopOnce   sync.Once

	// exitCh receives the process exit code exactly once: from quit
	// or Stop (code 0) or from an unexpected disconnect while
	// halt_on_connection_failure is set (implementation-defined
	// non-zero, here 1).
	exitCh chan int
}

// New binds the configured endpoint and constructs a Supervisor ready
// to Serve. The caller is responsible for writing the startup output
// (WriteConnectionValues) before or after Serve, per its own
// write_connection_values policy.
func New(cfg *config.Config, password *secret.Password, eng engine.Engine, log *logger.Logger, m *metrics.Metrics) (*Supervisor, error) {
	ln, endpoint, err := bind(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		serverID:   uuid.NewString(),
		cfg:        cfg,
		password:   password,
		eng:        eng,
		log:        log,
		metrics:    m,
		actors:     actor.NewSystem(),
		ln:         ln,
		endpoint:   endpoint,
		conns:      make(map[string]net.Conn),
		stopCtx:    ctx,
		stopCancel: cancel,
		exitCh:     make(chan int, 1),
	}, nil
}

// bind implements spec.md §4.5's endpoint creation: TCP loopback (port
// 0 ⇒ kernel-assigned) or a local socket (absolute path required, stale
// file removed first, per invariant I5).
func bind(cfg *config.Config) (net.Listener, string, error) {
	if cfg.UnixDomainSocket != "" {
		if !filepath.IsAbs(cfg.UnixDomainSocket) {
			return nil, "", ErrDomain
		}
		if err := os.Remove(cfg.UnixDomainSocket); err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("listener: remove stale socket file: %w", err)
		}
		ln, err := net.Listen("unix", cfg.UnixDomainSocket)
		if err != nil {
			return nil, "", fmt.Errorf("listener: listen unix %s: %w", cfg.UnixDomainSocket, err)
		}
		return ln, cfg.UnixDomainSocket, nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	if err != nil {
		return nil, "", fmt.Errorf("listener: listen tcp: %w", err)
	}
	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		ln.Close()
		return nil, "", fmt.Errorf("listener: unexpected listener address type %T", ln.Addr())
	}
	return ln, strconv.Itoa(addr.Port), nil
}

// Endpoint returns the decimal TCP port or the absolute socket path the
// server bound to.
func (s *Supervisor) Endpoint() string { return s.endpoint }

// ActorSystem returns the actor system every goal worker registers
// under, for internal/debugsrv's /healthz to report against.
func (s *Supervisor) ActorSystem() *actor.System { return s.actors }

// WriteConnectionValues writes "<endpoint>\n<password>\n" to w, per
// spec.md §6's write_connection_values option.
func (s *Supervisor) WriteConnectionValues(w interface{ Write([]byte) (int, error) }) error {
	revealed := s.password.Reveal()
	defer securemem.SecureWipeString(&revealed)
	_, err := fmt.Fprintf(w, "%s\n%s\n", s.endpoint, revealed)
	return err
}

// Serve runs the accept loop until Stop closes the listener. It always
// blocks the calling goroutine; Run below is what decides, per
// spec.md §6's run_server_on_thread option, whether that goroutine is
// the caller's own or one spawned for it.
//
// The bind backlog itself is left at Go's default (net.Listen always
// requests the kernel's SOMAXCONN, read from /proc/sys/net/core/somaxconn
// on Linux): honoring an arbitrary smaller pending_connections value
// would require replacing net.Listen with a raw socket()/bind()/listen()
// sequence, since the backlog is an argument to the listen(2) syscall
// itself rather than a setsockopt, and net.ListenConfig's Control hook
// runs before that internal listen(2) call without a way to override
// its backlog argument. cfg.PendingConnections is still accepted and
// stored (spec.md §6 lists it as a recognized option) but is otherwise
// informational; see DESIGN.md.
func (s *Supervisor) Serve() {
	go s.healthSweep()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopCtx.Done():
				return
			default:
				s.log.Error("listener: accept: %v", err)
				return
			}
		}
		go s.handle(conn)
	}
}

// healthSweep periodically walks the actor system and logs any goal
// worker whose status is not healthy (degraded or unhealthy), so a
// stuck connection shows up in the
// server log even if nobody is polling /healthz.
func (s *Supervisor) healthSweep() {
	ticker := time.NewTicker(consts.DefaultHealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCtx.Done():
			return
		case <-ticker.C:
			for id, report := range s.actors.HealthCheck(s.stopCtx) {
				if report.Status != actor.HealthStatusHealthy {
					s.log.Warn("listener: goal worker %s reports %s: %s", id, report.Status, report.Message)
				}
			}
		}
	}
}

func (s *Supervisor) handle(conn net.Conn) {
	pair := session.NewPair(s.serverID, conn)
	commLog := s.log.WithConn("comm", pair.CommID)
	goalLog := s.log.WithConn("goal", pair.GoalID)

	goalWorker := session.NewGoalWorker(pair, s.eng, consts.GoalOutboxSize, goalLog, s.actors)
	if err := goalWorker.Start(s.stopCtx); err != nil {
		s.log.Error("listener: spawn goal worker for %s: %v", pair.CommID, err)
		conn.Close()
		return
	}
	comm := session.NewComm(pair, goalWorker, s.password, commLog, s.metrics)

	s.mu.Lock()
	s.conns[pair.CommID] = conn
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ConnectionsAccepted.Inc()
		s.metrics.ActivePairs.Inc()
	}

	outcome := comm.Run(s.stopCtx)

	s.mu.Lock()
	delete(s.conns, pair.CommID)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ActivePairs.Dec()
	}

	switch outcome {
	case session.OutcomeQuit:
		s.requestExit(0)
	case session.OutcomeFailed:
		if s.cfg.HaltOnConnectionFailure {
			s.requestExit(1)
		}
	}
}

func (s *Supervisor) requestExit(code int) {
	select {
	case s.exitCh <- code:
	default:
	}
}

// Wait blocks until quit, Stop, or a halt-triggering disconnect occurs,
// stops the supervisor, and returns the process exit code the launch
// glue should use.
func (s *Supervisor) Wait() int {
	code := <-s.exitCh
	_ = s.Stop()
	return code
}

// Run starts the accept loop and blocks until the server exits,
// implementing spec.md §6's run_server_on_thread option: when
// runOnThread is true the accept loop itself runs on a spawned
// goroutine (mirroring the original library's threaded launch, where
// the caller gets control back immediately once the socket is bound);
// when false, Serve runs directly on the calling goroutine instead, so
// a caller that wants to block on the server "on its own thread"
// (rather than handing that thread to a background goroutine before
// waiting on it separately) gets exactly that. Either way Run itself
// returns only once the server has fully stopped, since the caller
// still needs the process exit code.
func (s *Supervisor) Run(runOnThread bool) int {
	codeCh := make(chan int, 1)
	go func() {
		codeCh <- s.Wait()
	}()

	if runOnThread {
		go s.Serve()
	} else {
		s.Serve()
	}

	return <-codeCh
}

// Stop closes the listener (unblocking Serve's Accept) and force-closes
// every live connection pair; for a local-socket endpoint it also
// unlinks the socket file, per invariant I5. Unless an exit code was
// already recorded, it records 0, so Run and Wait return success. Safe
// to call more than once and safe to call concurrently with Serve/Wait.
func (s *Supervisor) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.requestExit(0)
		s.stopCancel()
		err = s.ln.Close()
		_ = s.actors.StopAll(context.Background())

		s.mu.Lock()
		conns := make([]net.Conn, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}

		if s.cfg.UnixDomainSocket != "" {
			_ = os.Remove(s.cfg.UnixDomainSocket)
		}
	})
	return err
}
