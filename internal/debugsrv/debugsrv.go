// Package debugsrv implements the optional loopback-only debug listener
// (spec.md's DOMAIN STACK: julienschmidt/httprouter + prometheus
// client_golang). It is separate from the query-server protocol itself
// — nothing in internal/session or internal/listener depends on it —
// and exists purely so an operator can curl /healthz and /metrics
// without speaking the frame protocol.
package debugsrv

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codefionn/queryserverd/internal/actor"
	"github.com/codefionn/queryserverd/internal/logger"
	"github.com/codefionn/queryserverd/internal/metrics"
)

// Server is a tiny HTTP server bound to a loopback address, never the
// same socket the query protocol uses.
type Server struct {
	httpSrv *http.Server
	actors  *actor.System
	log     *slog.Logger
}

// New builds a debug server listening on addr (e.g. "127.0.0.1:9090").
// actors, if non-nil, is the supervisor's actor system: /healthz then
// reports per-connection goal worker health instead of a bare "ok".
// log drives the slog.Handler adapter over internal/logger so the
// debug listener's own request log lands in the same log file and
// prefix scheme as the rest of the server.
func New(addr string, m *metrics.Metrics, actors *actor.System, log *logger.Logger) *Server {
	s := &Server{
		actors: actors,
		log:    slog.New(logger.NewSlogHandler(log.WithPrefix("debugsrv"))),
	}

	router := httprouter.New()
	router.GET("/healthz", s.healthz)
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// healthzReport is the JSON body /healthz returns once an actor system
// is wired in.
type healthzReport struct {
	Status      string                        `json:"status"`
	ActiveGoals int                           `json:"active_goals"`
	GoalWorkers map[string]actor.HealthReport `json:"goal_workers,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.log.Debug("healthz request", "remote_addr", r.RemoteAddr)

	if s.actors == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
		return
	}

	reports := s.actors.HealthCheck(r.Context())
	status := "healthy"
	for _, report := range reports {
		if report.Status != actor.HealthStatusHealthy {
			status = "degraded"
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthzReport{
		Status:      status,
		ActiveGoals: s.actors.Count(),
		GoalWorkers: reports,
	})
}

// ListenAndServe blocks until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe() error {
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
