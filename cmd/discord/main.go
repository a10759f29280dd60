// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/server-herald/internal/command"
	"github.com/keshon/server-herald/internal/commands/core"
	"github.com/keshon/server-herald/internal/config"
	"github.com/keshon/server-herald/internal/discord"
	"github.com/keshon/server-herald/internal/middleware"
	"github.com/keshon/server-herald/internal/router"
	"github.com/keshon/server-herald/internal/storage"
	"github.com/keshon/server-herald/pkg/jobmgr"
)

func main() {
	log.Printf("[INFO] Starting %v bot...", config.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERR] %v", err)
	}

	store, err := storage.Open(ctx, cfg.StorageDSN)
	if err != nil {
		log.Fatalf("[ERR] open usage store: %v", err)
	}
	defer store.Close()

	blacklist, err := storage.LoadBlacklist(cfg.BlacklistPath)
	if err != nil {
		log.Fatalf("[ERR] %v", err)
	}

	cooldowns := middleware.NewCooldownStore(nil)
	go cooldowns.RunCleaner(ctx, cfg.CooldownSweepInterval)

	blacklistCheck := middleware.NewBlacklistCheck(blacklist, cfg.BlacklistCacheTTL)
	checks := middleware.Defaults(middleware.Options{
		BlacklistCheck:  blacklistCheck,
		Cooldowns:       cooldowns,
		DefaultCooldown: cfg.DefaultCooldown,
		Owners:          cfg.OwnerIDs,
		OwnerPrefix:     cfg.OwnerCommandPrefix,
	})

	core.Use(core.Deps{
		Usage:          store,
		Blacklist:      blacklist,
		BlacklistCache: blacklistCheck,
		Owner:          middleware.NewOwnerCheck(cfg.OwnerIDs, cfg.OwnerCommandPrefix),
		Jobs:           jobmgr.DefaultManager,
	})

	rt := router.New(command.DefaultRegistry, checks, router.Config{
		AckTimeout:  cfg.AckTimeout,
		ExecTimeout: cfg.ExecTimeout,
		Usage:       store,
	})
	log.Printf("[INFO] Loaded %d commands: %v", len(command.DefaultRegistry.Names()), command.DefaultRegistry.Names())

	errCh := make(chan error, 1)
	go func() {
		if err := discord.StartBot(ctx, cfg, discord.Deps{
			Registry:  command.DefaultRegistry,
			Router:    rt,
			Blacklist: blacklist,
			Jobs:      jobmgr.DefaultManager,
		}); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
		// StartBot drains in-flight interactions before returning
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	}

	log.Println("[INFO] Discord bot exited cleanly")
}
