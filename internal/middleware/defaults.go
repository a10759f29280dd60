package middleware

import "time"

// Options configures the default check set.
type Options struct {
	// BlacklistCheck is used as is when set; otherwise one is built from
	// Blacklist.
	BlacklistCheck    *BlacklistCheck
	Blacklist         BlacklistSource
	BlacklistCacheTTL time.Duration
	Cooldowns         *CooldownStore
	DefaultCooldown   time.Duration
	Owners            []string
	OwnerPrefix       string
}

// Defaults returns the standard pipeline: blacklist, guild-only, cooldown,
// permissions and owner checks. The blacklist check is omitted without a
// check or source.
func Defaults(opts Options) *Manager {
	if opts.Cooldowns == nil {
		opts.Cooldowns = NewCooldownStore(nil)
	}
	if opts.BlacklistCacheTTL <= 0 {
		opts.BlacklistCacheTTL = 5 * time.Minute
	}

	m := NewManager(
		GuildOnlyCheck{},
		NewCooldownCheck(opts.Cooldowns, opts.DefaultCooldown),
		PermissionCheck{},
		NewOwnerCheck(opts.Owners, opts.OwnerPrefix),
	)
	switch {
	case opts.BlacklistCheck != nil:
		m.Add(opts.BlacklistCheck)
	case opts.Blacklist != nil:
		m.Add(NewBlacklistCheck(opts.Blacklist, opts.BlacklistCacheTTL))
	}
	return m
}
