// Package jobmgr runs named jobs with cancellation, status callbacks, and
// in-memory tracking of running jobs. A name runs at most once at a time.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("[DEBUG] job", msg)
//	})
//
//	err := jm.StartAsync(ctx, "command-sync", func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	})
//
//	// later...
//	_ = jm.Stop("command-sync")
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrAlreadyRunning is returned when a job with the same name is active.
var ErrAlreadyRunning = errors.New("job is already running")

// DefaultManager is the global job manager.
var DefaultManager = NewManager(nil)

// Job represents a running unit of work.
// Jobs are added and removed by Manager automatically.
type Job struct {
	Name   string
	Cancel context.CancelFunc
	done   chan struct{}
}

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:command-sync
//	error:command-sync:sync global: list: 403 Forbidden
//	done:command-sync
type StatusReporter func(string)

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	Reporter StatusReporter
}

// NewManager creates a new Manager.
// The reporter callback may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartSync runs a job in the current goroutine and blocks until completion.
// It still occupies name, so an async job of the same name cannot overlap.
func (m *Manager) StartSync(ctx context.Context, name string, runner func(ctx context.Context) error) error {
	ctx, job, err := m.claim(ctx, name)
	if err != nil {
		return err
	}
	return m.run(ctx, job, runner)
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// If a job with the same name is already running, ErrAlreadyRunning is
// returned. The job's context derives from ctx.
func (m *Manager) StartAsync(ctx context.Context, name string, runner func(ctx context.Context) error) error {
	ctx, job, err := m.claim(ctx, name)
	if err != nil {
		return err
	}
	go func() { _ = m.run(ctx, job, runner) }()
	return nil
}

func (m *Manager) claim(parent context.Context, name string) (context.Context, *Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[name]; exists {
		return nil, nil, fmt.Errorf("job '%s': %w", name, ErrAlreadyRunning)
	}
	ctx, cancel := context.WithCancel(parent)
	job := &Job{Name: name, Cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = job
	return ctx, job, nil
}

func (m *Manager) run(ctx context.Context, job *Job, runner func(ctx context.Context) error) error {
	defer func() {
		job.Cancel()
		m.mu.Lock()
		if m.jobs[job.Name] == job {
			delete(m.jobs, job.Name)
		}
		m.mu.Unlock()
		close(job.done)
	}()

	m.report("running:" + job.Name)
	err := runner(ctx)
	if err != nil {
		m.report("error:" + job.Name + ":" + err.Error())
	} else {
		m.report("done:" + job.Name)
	}
	return err
}

// Stop cancels a running job by name.
// If the job is not running, an error is returned.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}

	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// Wait blocks until the named job finishes or ctx ends. It returns
// immediately when the job is not running.
func (m *Manager) Wait(ctx context.Context, name string) error {
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-job.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns the sorted names of active jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
// Example:
//
//	"Running jobs: command-sync"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

// report delivers lifecycle messages to the reporter if present.
func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
