package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type RunnableTask struct {
	Name     string
	Target   string
	Interval time.Duration
	Handler  TaskFunc

	registeredAt time.Time

	mu           sync.RWMutex
	Running      bool
	Runs         int
	Failures     int
	LastRun      time.Time
	LastDuration time.Duration
	LastResult   string
	LastOutcome  Outcome
	Logs         []LogEntry
}

// DefaultTimeout bounds a single task execution.
const DefaultTimeout = 5 * time.Minute

// begin marks the task running and returns the new run number, or false if a run is in progress.
func (t *RunnableTask) begin() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Running {
		return 0, false
	}
	t.Running = true
	t.Runs++
	t.Logs = make([]LogEntry, 0)
	return t.Runs, true
}

func (t *RunnableTask) Run(parent context.Context) {
	run, ok := t.begin()
	if !ok {
		log.Warn().Str("task", t.Name).Msg("task is already running, skipping execution")
		return
	}

	logger := newRunLogger(t, run, log.Logger)
	logger.Info("starting run #%d on %s", run, t.targetOrDefault())

	ctx, cancel := context.WithTimeout(parent, DefaultTimeout)
	defer cancel()

	start := time.Now()
	outcome, err := t.Handler(ctx, logger)
	took := time.Since(start)

	t.mu.Lock()
	t.Running = false
	t.LastRun = time.Now()
	t.LastDuration = took
	t.LastOutcome = outcome
	if err != nil {
		t.Failures++
		t.LastResult = fmt.Sprintf("failed: %v", err)
	} else {
		t.LastResult = ResultSuccess
	}
	t.mu.Unlock()

	if err != nil {
		logger.Error("run #%d failed after %s: %v", run, took.Round(time.Millisecond), err)
		return
	}
	if outcome.Summary != "" {
		logger.Info("%s", outcome.Summary)
	}
	logger.Info("run #%d completed in %s", run, took.Round(time.Millisecond))
}

func (t *RunnableTask) targetOrDefault() string {
	if t.Target == "" {
		return "(no target)"
	}
	return t.Target
}

func (t *RunnableTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var nextTime time.Time
	if t.Interval > 0 {
		if !t.LastRun.IsZero() {
			nextTime = t.LastRun.Add(t.Interval)
		} else {
			nextTime = t.registeredAt.Add(t.Interval)
		}
	}

	return TaskStatus{
		Name:         t.Name,
		Target:       t.Target,
		Running:      t.Running,
		Runs:         t.Runs,
		Failures:     t.Failures,
		LastRun:      t.LastRun,
		LastDuration: t.LastDuration,
		LastResult:   t.LastResult,
		LastOutcome:  t.LastOutcome,
		NextRun:      nextTime,
	}
}

func (t *RunnableTask) GetLogs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cpy := make([]LogEntry, len(t.Logs))
	copy(cpy, t.Logs)
	return cpy
}

func (t *RunnableTask) AppendLog(run int, level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Logs = append(t.Logs, LogEntry{
		Time:    time.Now(),
		Run:     run,
		Level:   level,
		Message: msg,
	})

	if len(t.Logs) > MaxLogsPerTask {
		t.Logs = t.Logs[1:]
	}
}
