package cmd

import (
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/kmkrofficial/signature/internal/tasks"
)

func TestFilterLogs(t *testing.T) {
	entries := []tasks.LogEntry{
		{Level: "info", Message: "starting"},
		{Level: "warn", Message: "slow"},
		{Level: "error", Message: "failed"},
	}

	assert.Len(t, filterLogs(entries, false), 3)

	problems := filterLogs(entries, true)
	assert.Equal(t, []string{"slow", "failed"}, []string{problems[0].Message, problems[1].Message})
	assert.Len(t, entries, 3, "input is left alone")
}

func TestTaskCells(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	sweep := tasks.TaskStatus{
		Name:         tasks.SessionSweepTask,
		Runs:         3,
		Failures:     1,
		LastRun:      time.Now().Add(-time.Minute),
		LastDuration: 12 * time.Millisecond,
		LastResult:   tasks.ResultSuccess,
		LastOutcome:  tasks.Outcome{Summary: "removed 2 expired session(s)", Affected: 2},
	}
	assert.Contains(t, outcomeCell(sweep), "removed 2 expired session(s)")
	assert.Equal(t, "3 (1 failed)", runsCell(sweep))
	assert.Contains(t, lastRunCell(sweep), "took 12ms")
	assert.Equal(t, "on trigger", nextRunCell(sweep))

	sweep.LastResult = "failed: redis down"
	assert.Contains(t, outcomeCell(sweep), "failed: redis down")

	sweep.Running = true
	assert.Equal(t, "running", lastRunCell(sweep))
}
