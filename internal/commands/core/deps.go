// Package core holds the bot's built-in commands. Each file registers its
// command into command.DefaultRegistry from init; importing the package is
// enough to load them.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/keshon/server-herald/internal/middleware"
	"github.com/keshon/server-herald/internal/storage"
	"github.com/keshon/server-herald/pkg/jobmgr"
)

// UsageSource is the read side of the usage store.
type UsageSource interface {
	Usage(ctx context.Context, day time.Time) ([]storage.UsageCount, error)
}

// BlacklistEditor persists bans.
type BlacklistEditor interface {
	BanUser(userID string) error
	BanGuild(guildID string) error
	Guilds() []string
}

// Deps are runtime collaborators wired in by main before the bot starts.
type Deps struct {
	Usage     UsageSource
	Blacklist BlacklistEditor
	// BlacklistCache is purged after a ban so it applies at once.
	BlacklistCache interface{ Purge() }
	Owner          *middleware.OwnerCheck
	Jobs           *jobmgr.Manager
	Now            func() time.Time
}

var (
	depsMu sync.RWMutex
	deps   = Deps{Jobs: jobmgr.DefaultManager, Now: time.Now}
)

// Use installs d. Zero fields keep their previous values.
func Use(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	if d.Usage != nil {
		deps.Usage = d.Usage
	}
	if d.Blacklist != nil {
		deps.Blacklist = d.Blacklist
	}
	if d.BlacklistCache != nil {
		deps.BlacklistCache = d.BlacklistCache
	}
	if d.Owner != nil {
		deps.Owner = d.Owner
	}
	if d.Jobs != nil {
		deps.Jobs = d.Jobs
	}
	if d.Now != nil {
		deps.Now = d.Now
	}
}

func current() Deps {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return deps
}
