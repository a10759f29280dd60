package middleware

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/keshon/server-herald/internal/command"
)

// DefaultCooldown applies to commands that declare nothing longer.
const DefaultCooldown = 3 * time.Second

type cooldownKey struct {
	command string
	user    string
}

// CooldownStore remembers when each (command, user) window ends. Entries are
// dropped once their window has passed, either on lookup or by Sweep.
type CooldownStore struct {
	mu      sync.Mutex
	expires map[cooldownKey]time.Time
	now     func() time.Time
}

// NewCooldownStore returns an empty store. now may be nil to use time.Now.
func NewCooldownStore(now func() time.Time) *CooldownStore {
	if now == nil {
		now = time.Now
	}
	return &CooldownStore{expires: make(map[cooldownKey]time.Time), now: now}
}

// Acquire starts a window of length d for (cmd, user) unless one is still
// open, in which case it returns the time left. A window is closed once
// exactly d has elapsed.
func (s *CooldownStore) Acquire(cmd, user string, d time.Duration) (time.Duration, bool) {
	key := cooldownKey{command: cmd, user: user}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if until, ok := s.expires[key]; ok {
		if now.Before(until) {
			return until.Sub(now), false
		}
		delete(s.expires, key)
	}
	s.expires[key] = now.Add(d)
	return 0, true
}

// Sweep drops every expired entry and reports how many were removed.
func (s *CooldownStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, until := range s.expires {
		if !now.Before(until) {
			delete(s.expires, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked windows, expired or not.
func (s *CooldownStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

// RunCleaner sweeps the store every interval until ctx is done.
func (s *CooldownStore) RunCleaner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("[DEBUG] Cleared %d expired cooldown(s), %d active", n, s.Len())
			}
		}
	}
}

// CooldownCheck enforces a per-command, per-user window.
type CooldownCheck struct {
	store    *CooldownStore
	fallback time.Duration
}

// NewCooldownCheck uses fallback for commands whose declared cooldown is shorter.
func NewCooldownCheck(store *CooldownStore, fallback time.Duration) *CooldownCheck {
	if fallback <= 0 {
		fallback = DefaultCooldown
	}
	return &CooldownCheck{store: store, fallback: fallback}
}

func (c *CooldownCheck) Name() string  { return "cooldown" }
func (c *CooldownCheck) Priority() int { return 300 }

func (c *CooldownCheck) Check(_ context.Context, inv *command.Invocation, cmd *command.Command) Outcome {
	d := c.fallback
	if cmd.Definition.Cooldown > d {
		d = cmd.Definition.Cooldown
	}
	left, ok := c.store.Acquire(cmd.Name(), inv.UserID, d)
	if ok {
		return Continue()
	}
	return Halt(fmt.Sprintf("Slow down! You can use `/%s` again in %s.", cmd.Name(), formatWait(left)))
}

func formatWait(d time.Duration) string {
	if d < time.Second {
		return "less than a second"
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return d.String()
}
