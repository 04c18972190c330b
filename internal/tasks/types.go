package tasks

import (
	"context"
	"time"

	"github.com/kmkrofficial/signature/internal/logging"
)

// ResultSuccess is the LastResult of a run that returned no error.
const ResultSuccess = "success"

// TaskFunc is one run of a maintenance job. Its Outcome becomes the task's last
// outcome; the logger output is kept until the next run.
type TaskFunc func(ctx context.Context, logger logging.InternalLogger) (Outcome, error)

// Outcome summarizes what a run did, e.g. how many idle sessions a sweep removed.
type Outcome struct {
	Summary  string `json:"summary,omitempty"`
	Affected int64  `json:"affected,omitempty"`
}

type TaskDefinition struct {
	Name string
	// Target is what the task acts on: the session backend or the pinged url.
	Target   string
	Interval time.Duration
	Handler  TaskFunc
}

type TaskStatus struct {
	Name     string `json:"name"`
	Target   string `json:"target,omitempty"`
	Running  bool   `json:"running,omitempty"`
	Runs     int    `json:"runs"`
	Failures int    `json:"failures"`

	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration,omitempty"`
	LastResult   string        `json:"last_result,omitempty"`
	LastOutcome  Outcome       `json:"last_outcome"`
	NextRun      time.Time     `json:"next_run"`
}

func (s TaskStatus) Succeeded() bool {
	return s.LastResult == ResultSuccess
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Run     int       `json:"run"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}
