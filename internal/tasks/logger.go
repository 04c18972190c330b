package tasks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kmkrofficial/signature/internal/logging"
)

var _ logging.InternalLogger = runLogger{}

// runLogger keeps a run's output on its task, tagged with the run number, so
// `signature tasks logs` can show what the last sweep or ping did.
type runLogger struct {
	task *RunnableTask
	run  int
}

func (l runLogger) Info(format string, args ...any) {
	l.task.AppendLog(l.run, "info", fmt.Sprintf(format, args...))
}

func (l runLogger) Warn(format string, args ...any) {
	l.task.AppendLog(l.run, "warn", fmt.Sprintf(format, args...))
}

func (l runLogger) Error(format string, args ...any) {
	l.task.AppendLog(l.run, "error", fmt.Sprintf(format, args...))
}

// newRunLogger writes to zerolog, with the task, target and run as fields, and to the task's log.
func newRunLogger(task *RunnableTask, run int, zlog zerolog.Logger) logging.MultiLogger {
	zlog = zlog.With().
		Str("task", task.Name).
		Str("target", task.Target).
		Int("run", run).
		Logger()
	return logging.NewMultiLogger(
		logging.NewZLogger(zlog),
		runLogger{task: task, run: run},
	)
}
