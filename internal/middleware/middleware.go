// Package middleware runs the ordered policy checks every invocation passes
// before its command body executes.
package middleware

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/keshon/server-herald/internal/command"
)

// Kind tags an Outcome.
type Kind int

const (
	KindContinue Kind = iota
	KindHalt
	KindFail
)

func (k Kind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindHalt:
		return "halt"
	case KindFail:
		return "fail"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the result of a single check.
type Outcome struct {
	kind    Kind
	message string
	err     error
}

// Continue lets the next check run.
func Continue() Outcome { return Outcome{kind: KindContinue} }

// Halt rejects the invocation with an optional user-facing message.
func Halt(message string) Outcome { return Outcome{kind: KindHalt, message: message} }

// Fail aborts the invocation because the check itself broke.
func Fail(err error) Outcome { return Outcome{kind: KindFail, err: err} }

func (o Outcome) Kind() Kind       { return o.kind }
func (o Outcome) Message() string  { return o.message }
func (o Outcome) Err() error       { return o.err }
func (o Outcome) IsContinue() bool { return o.kind == KindContinue }

// Check is one independent policy.
type Check interface {
	Name() string
	// Priority orders checks; higher runs first.
	Priority() int
	Check(ctx context.Context, inv *command.Invocation, cmd *command.Command) Outcome
}

// Result reports how a pipeline run ended. Check is empty when every check continued.
type Result struct {
	Outcome Outcome
	Check   string
}

// Manager holds checks sorted by descending priority.
type Manager struct {
	mu     sync.RWMutex
	checks []Check
}

// NewManager returns a manager running the given checks.
func NewManager(checks ...Check) *Manager {
	m := &Manager{}
	for _, c := range checks {
		m.Add(c)
	}
	return m
}

// Add inserts c keeping the list sorted. Checks with equal priority keep
// insertion order.
func (m *Manager) Add(c Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, c)
	sort.SliceStable(m.checks, func(i, j int) bool {
		return m.checks[i].Priority() > m.checks[j].Priority()
	})
}

// Remove drops the check with the given name.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.checks {
		if c.Name() == name {
			m.checks = append(m.checks[:i:i], m.checks[i+1:]...)
			return true
		}
	}
	return false
}

// Checks returns the current order.
func (m *Manager) Checks() []Check {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Check(nil), m.checks...)
}

// Run executes the checks in order and stops at the first non-Continue outcome.
func (m *Manager) Run(ctx context.Context, inv *command.Invocation, cmd *command.Command) Result {
	for _, c := range m.Checks() {
		out := runCheck(ctx, c, inv, cmd)
		switch out.kind {
		case KindContinue:
			continue
		case KindFail:
			log.Printf("[ERR] Middleware %s failed for /%s (user %s): %v", c.Name(), inv.Path(), inv.UserID, out.err)
		}
		return Result{Outcome: out, Check: c.Name()}
	}
	return Result{Outcome: Continue()}
}

func runCheck(ctx context.Context, c Check, inv *command.Invocation, cmd *command.Command) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail(fmt.Errorf("panic: %v", r))
		}
	}()
	return c.Check(ctx, inv, cmd)
}
