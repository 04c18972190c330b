package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

const MaxLogsPerTask = 1000

type Manager struct {
	tasks sync.Map

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a task. With a positive interval it also runs on schedule.
func (m *Manager) Register(def TaskDefinition) {
	task := &RunnableTask{
		Name:         def.Name,
		Target:       def.Target,
		Interval:     def.Interval,
		Handler:      def.Handler,
		Logs:         make([]LogEntry, 0),
		registeredAt: time.Now(),
	}
	m.tasks.Store(def.Name, task)

	if def.Interval > 0 {
		m.wg.Add(1)
		go m.scheduler(task)
	}
}

// Stop cancels running tasks and waits for all schedulers and triggered runs to return.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Trigger starts a run in the background. It fails with ErrTaskRunning if one is in progress.
func (m *Manager) Trigger(name string) error {
	task, err := m.lookup(name)
	if err != nil {
		return err
	}
	if task.Status().Running {
		return fmt.Errorf("%w: %s", ErrTaskRunning, name)
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		task.Run(m.ctx)
	}()
	return nil
}

func (m *Manager) ListStatus() []TaskStatus {
	var list []TaskStatus
	m.tasks.Range(func(key, value any) bool {
		task := value.(*RunnableTask)
		list = append(list, task.Status())
		return true
	})
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	task, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return task.GetLogs(), nil
}

func (m *Manager) lookup(name string) (*RunnableTask, error) {
	t, ok := m.tasks.Load(name)
	if !ok {
		var known []string
		for _, s := range m.ListStatus() {
			known = append(known, s.Name)
		}
		return nil, TaskNotFoundError{Name: name, Known: known}
	}
	return t.(*RunnableTask), nil
}

func (m *Manager) scheduler(task *RunnableTask) {
	defer m.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			task.Run(m.ctx)
		}
	}
}
