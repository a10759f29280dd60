// cmd/sync/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/server-herald/internal/command"
	_ "github.com/keshon/server-herald/internal/commands/core"
	"github.com/keshon/server-herald/internal/commandsync"
	"github.com/keshon/server-herald/internal/config"
	"github.com/keshon/server-herald/internal/discord"
	"github.com/keshon/server-herald/pkg/jobmgr"
)

// Pushes the compiled-in command set to Discord once and exits. Only REST
// calls are made; no gateway connection is opened.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERR] %v", err)
	}

	dg, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		log.Fatalf("[ERR] %v", err)
	}

	guilds, err := userGuilds(ctx, dg)
	if err != nil {
		log.Fatalf("[ERR] list guilds: %v", err)
	}
	log.Printf("[INFO] Bot is a member of %d guild(s)", len(guilds))

	sync, limiter := discord.NewSynchronizer(dg, cfg, command.DefaultRegistry)
	jobs := jobmgr.NewManager(func(msg string) { log.Println("[DEBUG] job", msg) })

	var report *commandsync.Report
	err = jobs.StartSync(ctx, "command-sync", func(ctx context.Context) error {
		var err error
		report, err = sync.Sync(ctx, cfg.SyncPlan(), guilds)
		return err
	})
	if report != nil {
		log.Printf("[INFO] %s", report)
	}
	calls, waited := limiter.Stats()
	log.Printf("[INFO] %d API call(s), %s spent waiting for the %d per %s quota",
		calls, waited.Round(time.Millisecond), limiter.Quota(), limiter.Window())
	if err != nil {
		var syncErr *commandsync.SyncError
		if errors.As(err, &syncErr) {
			log.Printf("[ERR] Stopped at %s during %s", syncErr.Scope, syncErr.Op)
		}
		log.Printf("[ERR] %v", err)
		os.Exit(1)
	}
}

func userGuilds(ctx context.Context, dg *discordgo.Session) ([]string, error) {
	const pageSize = 200
	var (
		out   []string
		after string
	)
	for {
		page, err := dg.UserGuilds(pageSize, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, g := range page {
			out = append(out, g.ID)
		}
		if len(page) < pageSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}
