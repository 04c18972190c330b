package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kmkrofficial/signature/internal/logging"
	"github.com/kmkrofficial/signature/internal/session"
)

type discardLogger struct{}

func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

func waitIdle(t *testing.T, m *Manager, name string) TaskStatus {
	t.Helper()
	var status TaskStatus
	require.Eventually(t, func() bool {
		for _, s := range m.ListStatus() {
			if s.Name == name && !s.Running && !s.LastRun.IsZero() {
				status = s
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestManager_TriggerAndLogs(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager()
	defer m.Stop()

	m.Register(TaskDefinition{
		Name:   "ok",
		Target: "memory",
		Handler: func(ctx context.Context, logger logging.InternalLogger) (Outcome, error) {
			logger.Info("hello %s", "world")
			return Outcome{Summary: "removed 3 expired session(s)", Affected: 3}, nil
		},
	})
	m.Register(TaskDefinition{
		Name: "fail",
		Handler: func(ctx context.Context, logger logging.InternalLogger) (Outcome, error) {
			return Outcome{}, errors.New("boom")
		},
	})

	require.NoError(t, m.Trigger("ok"))
	require.NoError(t, m.Trigger("fail"))

	ok := waitIdle(t, m, "ok")
	assert.True(t, ok.Succeeded())
	assert.Equal(t, "memory", ok.Target)
	assert.Equal(t, 1, ok.Runs)
	assert.Zero(t, ok.Failures)
	assert.Equal(t, Outcome{Summary: "removed 3 expired session(s)", Affected: 3}, ok.LastOutcome)

	failed := waitIdle(t, m, "fail")
	assert.Equal(t, "failed: boom", failed.LastResult)
	assert.False(t, failed.Succeeded())
	assert.Equal(t, 1, failed.Failures)

	logs, err := m.GetLogs("ok")
	require.NoError(t, err)
	var messages []string
	for _, l := range logs {
		assert.Equal(t, 1, l.Run)
		messages = append(messages, l.Message)
	}
	assert.Contains(t, messages, "hello world")
	assert.Contains(t, messages, "removed 3 expired session(s)")

	err = m.Trigger("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	var notFound TaskNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"fail", "ok"}, notFound.Known)
	assert.Contains(t, err.Error(), "known: fail, ok")

	_, err = m.GetLogs("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	statuses := m.ListStatus()
	require.Len(t, statuses, 2)
	assert.Equal(t, "fail", statuses[0].Name)
}

func TestManager_TriggerWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager()
	defer m.Stop()

	release := make(chan struct{})
	m.Register(TaskDefinition{
		Name: "slow",
		Handler: func(ctx context.Context, _ logging.InternalLogger) (Outcome, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return Outcome{}, nil
		},
	})

	require.NoError(t, m.Trigger("slow"))
	require.Eventually(t, func() bool { return m.ListStatus()[0].Running }, 2*time.Second, time.Millisecond)

	assert.ErrorIs(t, m.Trigger("slow"), ErrTaskRunning)

	close(release)
	status := waitIdle(t, m, "slow")
	assert.Equal(t, 1, status.Runs)

	// each run starts a fresh log
	require.NoError(t, m.Trigger("slow"))
	require.Eventually(t, func() bool { return m.ListStatus()[0].Runs == 2 && !m.ListStatus()[0].Running }, 2*time.Second, time.Millisecond)
	logs, err := m.GetLogs("slow")
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	for _, l := range logs {
		assert.Equal(t, 2, l.Run)
	}
}

func TestManager_SchedulerStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	m := NewManager()
	m.Register(TaskDefinition{
		Name:     "tick",
		Interval: 5 * time.Millisecond,
		Handler: func(ctx context.Context, _ logging.InternalLogger) (Outcome, error) {
			runs.Add(1)
			return Outcome{}, nil
		},
	})

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, time.Millisecond)
	m.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestSessionSweep(t *testing.T) {
	store := session.NewInMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, session.Record{ID: "old", LastActivity: now.Add(-7 * time.Hour)}))
	require.NoError(t, store.Create(ctx, session.Record{ID: "new", LastActivity: now.Add(-time.Hour)}))

	fn := SessionSweep(store, 6*time.Hour, func() time.Time { return now })
	outcome, err := fn(ctx, discardLogger{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, outcome.Affected)
	assert.Equal(t, "removed 1 expired session(s)", outcome.Summary)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestKeepAlive(t *testing.T) {
	var userAgent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.UserAgent())
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	outcome, err := KeepAlive(srv.Client(), srv.URL+"/up")(ctx, discardLogger{})
	require.NoError(t, err)
	assert.Contains(t, outcome.Summary, srv.URL+"/up answered 200")
	assert.True(t, strings.HasPrefix(userAgent.Load().(string), "Signature/"))
	assert.Contains(t, userAgent.Load().(string), "task=keep-alive")

	outcome, err = KeepAlive(srv.Client(), srv.URL+"/down")(ctx, discardLogger{})
	assert.ErrorContains(t, err, "502")
	assert.Equal(t, srv.URL+"/down answered 502", outcome.Summary)

	_, err = KeepAlive(nil, "")(ctx, discardLogger{})
	assert.Error(t, err)
}
