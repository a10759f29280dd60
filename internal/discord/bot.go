package discord

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	"github.com/keshon/server-herald/internal/commandsync"
	"github.com/keshon/server-herald/internal/config"
	"github.com/keshon/server-herald/internal/router"
	"github.com/keshon/server-herald/internal/storage"
	"github.com/keshon/server-herald/pkg/jobmgr"
	"github.com/keshon/server-herald/pkg/ratelimit"
)

// Bot is a Discord bot
type Bot struct {
	dg        *discordgo.Session
	cfg       *config.Config
	registry  *command.Registry
	router    *router.Router
	blacklist *storage.Blacklist
	sync      *commandsync.Synchronizer
	limiter   *ratelimit.Limiter
	jobs      *jobmgr.Manager

	mu     sync.RWMutex
	guilds map[string]string
}

// Deps are the collaborators the bot dispatches to.
type Deps struct {
	Registry  *command.Registry
	Router    *router.Router
	Blacklist *storage.Blacklist
	Jobs      *jobmgr.Manager
}

// StartBot starts the Discord bot and blocks until ctx is done.
func StartBot(ctx context.Context, cfg *config.Config, deps Deps) error {
	b := &Bot{
		cfg:       cfg,
		registry:  deps.Registry,
		router:    deps.Router,
		blacklist: deps.Blacklist,
		jobs:      deps.Jobs,
		guilds:    make(map[string]string),
	}
	if b.jobs == nil {
		b.jobs = jobmgr.DefaultManager
	}
	if err := b.run(ctx, cfg.DiscordToken); err != nil {
		return fmt.Errorf("bot run error: %w", err)
	}
	return nil
}

// NewSession creates a session configured for command handling.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds
	return dg, nil
}

// NewSynchronizer builds the synchronizer for the registry, paced by the
// configured quota. The limiter is returned so callers can report on it.
func NewSynchronizer(dg *discordgo.Session, cfg *config.Config, registry *command.Registry) (*commandsync.Synchronizer, *ratelimit.Limiter) {
	lim := ratelimit.New(cfg.SyncRateQuota, cfg.SyncRateWindow)
	return commandsync.New(NewRemote(dg), lim, registry.ApplicationCommands), lim
}

// run starts the Discord bot
func (b *Bot) run(ctx context.Context, token string) error {
	dg, err := NewSession(token)
	if err != nil {
		return err
	}
	b.dg = dg
	b.sync, b.limiter = NewSynchronizer(dg, b.cfg, b.registry)

	ready := make(chan struct{})
	var once sync.Once
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.onReady(s, r)
		once.Do(func() { close(ready) })
	})
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onGuildDelete)
	dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.onInteractionCreate(ctx, s, i)
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	go b.handleSystemEvents(ctx)

	if b.cfg.SyncOnStartup {
		go func() {
			select {
			case <-ready:
				b.startSync(ctx, func(_ *commandsync.Report, err error) {
					if err != nil {
						log.Printf("[ERR] Startup command sync failed: %v", err)
					}
				})
			case <-ctx.Done():
			}
		}()
	} else {
		log.Println("[INFO] Registering slash commands skipped")
	}

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.jobs.Wait(waitCtx, syncJob); err != nil {
		log.Println("[WARN] Command sync still running, cancelling it")
		if err := b.jobs.Stop(syncJob); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}
	// the session stays open until the router drained so late answers go out
	b.router.Shutdown()
	return nil
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.leaveIfBlacklisted(s, g.ID, g.Name) {
			continue
		}
		b.trackGuild(g.ID, g.Name)
	}
	if err := s.UpdateGameStatus(0, "/help | "+config.AppName); err != nil {
		log.Printf("[WARN] Failed to set presence: %v", err)
	}
	log.Printf("[INFO] ✅ Discord bot %v is running in %d guild(s).", r.User.Username, len(b.knownGuilds()))
}

// onGuildCreate is called when the bot joins a guild or a guild becomes available
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.leaveIfBlacklisted(s, g.Guild.ID, g.Guild.Name) {
		return
	}
	if b.trackGuild(g.Guild.ID, g.Guild.Name) {
		log.Printf("[INFO] Bot added to guild: %s (%s)", g.Guild.ID, g.Guild.Name)
	}
}

func (b *Bot) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}
	b.mu.Lock()
	delete(b.guilds, g.ID)
	b.mu.Unlock()
	log.Printf("[INFO] Bot removed from guild: %s", g.ID)
}

// onInteractionCreate hands slash commands and autocomplete to the router
func (b *Bot) onInteractionCreate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	ev, ok := newEvent(s, i, time.Now())
	if !ok {
		log.Printf("[DEBUG] Unhandled interaction type: %d", i.Type)
		return
	}
	b.router.Handle(ctx, ev)
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID, name string) bool {
	if b.blacklist == nil {
		return false
	}
	banned, err := b.blacklist.IsGuildBlacklisted(context.Background(), guildID)
	if err != nil {
		log.Printf("[WARN] Failed to check blacklist for guild %s: %v", guildID, err)
		return false
	}
	if !banned {
		return false
	}
	log.Printf("[INFO] Leaving blacklisted guild: %s (%s)", guildID, name)
	if err := s.GuildLeave(guildID); err != nil {
		log.Printf("[ERR] Failed to leave guild %s: %v", guildID, err)
	}
	return true
}

// trackGuild reports whether the guild was new.
func (b *Bot) trackGuild(id, name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, seen := b.guilds[id]
	if name != "" || !seen {
		b.guilds[id] = name
	}
	return !seen
}

func (b *Bot) knownGuilds() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.guilds))
	for id := range b.guilds {
		out = append(out, id)
	}
	return out
}

// syncCommands runs one synchronization over every guild the bot is in.
func (b *Bot) syncCommands(ctx context.Context) (*commandsync.Report, error) {
	start := time.Now()
	calls0, waited0 := b.limiter.Stats()
	report, err := b.sync.Sync(ctx, b.cfg.SyncPlan(), b.knownGuilds())
	if err != nil {
		if ratelimit.IsRateLimited(err) {
			log.Printf("[WARN] Command sync hit Discord's rate limit; consider lowering SYNC_RATE_QUOTA")
		}
		return report, err
	}
	calls, waited := b.limiter.Stats()
	log.Printf("[INFO] Command sync took %s (%d call(s), waited %s, quota %d per %s)",
		time.Since(start).Round(time.Millisecond), calls-calls0, (waited - waited0).Round(time.Millisecond),
		b.limiter.Quota(), b.limiter.Window())
	return report, nil
}
