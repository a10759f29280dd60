package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/keshon/server-herald/internal/command"
)

// BlacklistSource answers whether a user or guild is banned from the bot.
type BlacklistSource interface {
	IsUserBlacklisted(ctx context.Context, userID string) (bool, error)
	IsGuildBlacklisted(ctx context.Context, guildID string) (bool, error)
}

const blacklistCacheSize = 4096

// BlacklistCheck rejects banned callers and guilds. Lookups are cached for ttl.
type BlacklistCheck struct {
	source BlacklistSource
	cache  *expirable.LRU[string, bool]
}

func NewBlacklistCheck(source BlacklistSource, ttl time.Duration) *BlacklistCheck {
	return &BlacklistCheck{
		source: source,
		cache:  expirable.NewLRU[string, bool](blacklistCacheSize, nil, ttl),
	}
}

func (c *BlacklistCheck) Name() string  { return "blacklist" }
func (c *BlacklistCheck) Priority() int { return 400 }

func (c *BlacklistCheck) Check(ctx context.Context, inv *command.Invocation, _ *command.Command) Outcome {
	banned, err := c.lookup("user:"+inv.UserID, func() (bool, error) {
		return c.source.IsUserBlacklisted(ctx, inv.UserID)
	})
	if err != nil {
		return Fail(fmt.Errorf("user blacklist lookup: %w", err))
	}
	if banned {
		return Halt("You are not allowed to use this bot.")
	}

	if inv.GuildID == "" {
		return Continue()
	}
	banned, err = c.lookup("guild:"+inv.GuildID, func() (bool, error) {
		return c.source.IsGuildBlacklisted(ctx, inv.GuildID)
	})
	if err != nil {
		return Fail(fmt.Errorf("guild blacklist lookup: %w", err))
	}
	if banned {
		return Halt("This bot is not available on this server.")
	}
	return Continue()
}

// Purge forgets every cached answer.
func (c *BlacklistCheck) Purge() { c.cache.Purge() }

func (c *BlacklistCheck) lookup(key string, fetch func() (bool, error)) (bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return false, err
	}
	c.cache.Add(key, v)
	return v, nil
}
