package tasks

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskRunning  = errors.New("task is already running")
)

// TaskNotFoundError names the unknown task and the ones that are registered.
// It matches ErrTaskNotFound with errors.Is.
type TaskNotFoundError struct {
	Name  string
	Known []string
}

func (e TaskNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("task '%s' not found, no tasks are registered", e.Name)
	}
	return fmt.Sprintf("task '%s' not found (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e TaskNotFoundError) Is(target error) bool {
	return target == ErrTaskNotFound
}
