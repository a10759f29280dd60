package discord

import (
	"context"
	"errors"
	"log"

	"github.com/keshon/server-herald/internal/commandsync"
	"github.com/keshon/server-herald/pkg/jobmgr"
)

const syncJob = "command-sync"

func (b *Bot) handleSystemEvents(ctx context.Context) {
	for {
		select {
		case ev := <-SystemEvents():
			switch ev.Type {
			case SystemEventRefreshCommands:
				log.Printf("[INFO] Command refresh requested (guild %s)", ev.GuildID)
				b.startSync(ctx, ev.Done)
			default:
				log.Printf("[DEBUG] Unknown system event: %s", ev.Type)
			}
		case <-ctx.Done():
			return
		}
	}
}

// startSync runs a synchronization as the single "command-sync" job. A
// request arriving while one is in flight is answered with the error.
func (b *Bot) startSync(ctx context.Context, done func(*commandsync.Report, error)) {
	err := b.jobs.StartAsync(ctx, syncJob, func(ctx context.Context) error {
		report, err := b.syncCommands(ctx)
		if done != nil {
			done(report, err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, jobmgr.ErrAlreadyRunning) {
			log.Printf("[INFO] Command sync already running, request skipped")
		}
		if done != nil {
			done(nil, err)
		}
	}
}
