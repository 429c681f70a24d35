// Package jobmgr runs named background jobs with cancellation, at most one
// job per name.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrRunning    = errors.New("job is already running")
	ErrNotRunning = errors.New("job is not running")
)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*job
}

func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*job)}
}

// Start runs fn in its own goroutine. The job is forgotten once fn returns.
func (m *Manager) Start(name string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, ok := m.jobs[name]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrRunning)
	}
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j
	m.mu.Unlock()

	go func() {
		defer close(j.done)
		defer cancel()

		log.Debug().Str("job", name).Msg("[Jobs] Started")
		err := fn(ctx)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			log.Warn().Err(err).Str("job", name).Msg("[Jobs] Failed")
		default:
			log.Debug().Str("job", name).Msg("[Jobs] Done")
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return nil
}

// Stop cancels a job without waiting for it.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotRunning)
	}
	j.cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every job and waits for them to return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	jobs := make([]*job, 0, len(m.jobs))
	for name, j := range m.jobs {
		j.cancel()
		jobs = append(jobs, j)
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	for _, j := range jobs {
		<-j.done
	}
}

// Running returns the active job names in order.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
