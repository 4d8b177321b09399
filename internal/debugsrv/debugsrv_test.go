package debugsrv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codefionn/queryserverd/internal/actor"
	"github.com/codefionn/queryserverd/internal/logger"
	"github.com/codefionn/queryserverd/internal/metrics"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.LevelNone, "", "test")
	require.NoError(t, err)
	return log
}

func TestHealthzWithoutActorSystemReturnsPlainOK(t *testing.T) {
	srv := New("127.0.0.1:0", metrics.New(), nil, testLogger(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.httpSrv.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok\n", w.Body.String())
}

func TestHealthzWithActorSystemReportsRegisteredActors(t *testing.T) {
	system := actor.NewSystem()
	_, err := system.Spawn(context.Background(), "goal-1", &noopActor{id: "goal-1"}, 1)
	require.NoError(t, err)

	srv := New("127.0.0.1:0", metrics.New(), system, testLogger(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.httpSrv.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report healthzReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, 1, report.ActiveGoals)
	require.Contains(t, report.GoalWorkers, "goal-1")
}

type noopActor struct{ id string }

func (a *noopActor) ID() string                                   { return a.id }
func (a *noopActor) Start(context.Context) error                  { return nil }
func (a *noopActor) Stop(context.Context) error                   { return nil }
func (a *noopActor) Receive(context.Context, actor.Message) error { return nil }
